package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planbot/app/util/ratelimit"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubPending int

func (s stubPending) Count() int {
	return int(s)
}

func TestCheck(t *testing.T) {
	limiter := ratelimit.New()
	limiter.SetBudget("openai", ratelimit.Budget{Requests: 4, Tokens: 100, Window: time.Minute})
	require.NoError(t, limiter.TryAcquire("openai", 50))

	s := &Service{
		limiter: limiter,
		pending: stubPending(2),
		pingers: map[string]pinger{
			"openai":  stubPinger{},
			"caldav":  stubPinger{err: errors.New("dial tcp: connection refused")},
			"todoist": stubPinger{},
		},
	}

	report := s.Check(context.Background())

	assert.Equal(t, 2, report.Pending)
	require.Len(t, report.Providers, 3)

	openaiStatus := report.Providers["openai"]
	assert.True(t, openaiStatus.Reachable)
	assert.InDelta(t, 0.25, openaiStatus.RequestsUtilization, 0.001)
	assert.InDelta(t, 0.5, openaiStatus.TokensUtilization, 0.001)

	caldavStatus := report.Providers["caldav"]
	assert.False(t, caldavStatus.Reachable)
	assert.Contains(t, caldavStatus.Error, "connection refused")

	assert.True(t, report.Providers["todoist"].Reachable)
}
