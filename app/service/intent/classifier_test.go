package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planbot/app/config"
	"planbot/app/util/fault"
	"planbot/app/util/ratelimit"
	"planbot/app/util/retry"
)

type stubCompletion struct {
	content string
	err     error
	calls   int
}

func (s *stubCompletion) CreateChatCompletion(
	context.Context, openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	s.calls++

	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}

	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func (s *stubCompletion) ListModels(context.Context) (openai.ModelsList, error) {
	if s.err != nil {
		return openai.ModelsList{}, s.err
	}

	return openai.ModelsList{}, nil
}

func testClassifier(t *testing.T, stub *stubCompletion) *Classifier {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Timezone = "UTC"
	cfg.App.ConfidenceThreshold = 0.6
	cfg.OpenAI.Model = "gpt-4o-mini"

	return &Classifier{
		cfg:     cfg,
		client:  stub,
		limiter: ratelimit.New(),
		retrier: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			Retryable:   fault.Transient,
		},
		loc: time.UTC,
		now: func() time.Time { return time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC) },
	}
}

func TestClassifyProviderLabel(t *testing.T) {
	stub := &stubCompletion{content: `{"intent": "create_event", "confidence": 0.92}`}
	c := testClassifier(t, stub)

	result := c.Classify(context.Background(), "Schedule dinner tomorrow at 7pm")

	assert.Equal(t, CreateEvent, result.Intent)
	assert.InDelta(t, 0.92, result.Confidence, 0.001)
	assert.False(t, result.Fallback)
	assert.Equal(t, 1, stub.calls)
}

func TestClassifyTrimsCodeFences(t *testing.T) {
	stub := &stubCompletion{content: "```json\n{\"intent\": \"list_tasks\", \"confidence\": 0.8}\n```"}
	c := testClassifier(t, stub)

	result := c.Classify(context.Background(), "show my tasks")

	assert.Equal(t, ListTasks, result.Intent)
}

func TestClassifyLabelOutsideSet(t *testing.T) {
	stub := &stubCompletion{content: `{"intent": "book_flight", "confidence": 0.99}`}
	c := testClassifier(t, stub)

	result := c.Classify(context.Background(), "book me a flight to berlin")

	assert.Equal(t, GeneralChat, result.Intent)
	assert.Zero(t, result.Confidence)
}

func TestClassifyClampsConfidence(t *testing.T) {
	stub := &stubCompletion{content: `{"intent": "summary_query", "confidence": 3.5}`}
	c := testClassifier(t, stub)

	result := c.Classify(context.Background(), "weekly summary please")

	assert.Equal(t, Summary, result.Intent)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestClassifyLowProviderConfidenceUsesRuleFallback(t *testing.T) {
	stub := &stubCompletion{content: `{"intent": "delete_event", "confidence": 0.35}`}
	c := testClassifier(t, stub)

	result := c.Classify(context.Background(), "cancel the standup meeting")

	assert.Equal(t, DeleteEvent, result.Intent)
	assert.True(t, result.Fallback, "a weak provider verdict must not pass as a confident one")
	assert.Less(t, result.Confidence, c.cfg.App.ConfidenceThreshold)
}

func TestClassifyAtThresholdIsAccepted(t *testing.T) {
	stub := &stubCompletion{content: `{"intent": "delete_event", "confidence": 0.6}`}
	c := testClassifier(t, stub)

	result := c.Classify(context.Background(), "cancel the standup meeting")

	assert.Equal(t, DeleteEvent, result.Intent)
	assert.False(t, result.Fallback)
	assert.InDelta(t, 0.6, result.Confidence, 0.001)
}

func TestClassifyFallsBackOnProviderFailure(t *testing.T) {
	stub := &stubCompletion{err: errors.New("connection refused")}
	c := testClassifier(t, stub)

	result := c.Classify(context.Background(), "delete the groceries task")

	assert.Equal(t, DeleteTask, result.Intent)
	assert.True(t, result.Fallback)
	assert.Less(t, result.Confidence, c.cfg.App.ConfidenceThreshold)
}

func TestClassifyRetriesTransientProviderErrors(t *testing.T) {
	stub := &stubCompletion{err: &fault.ProviderError{Provider: "openai", Status: 503}}
	c := testClassifier(t, stub)

	result := c.Classify(context.Background(), "show my tasks")

	assert.Equal(t, 3, stub.calls)
	assert.True(t, result.Fallback)
}

func TestPing(t *testing.T) {
	c := testClassifier(t, &stubCompletion{})
	assert.NoError(t, c.Ping(context.Background()))

	c = testClassifier(t, &stubCompletion{err: errors.New("connection refused")})
	assert.Error(t, c.Ping(context.Background()))
}

func TestClassifyFallsBackWhenRateLimited(t *testing.T) {
	stub := &stubCompletion{content: `{"intent": "create_task", "confidence": 0.9}`}
	c := testClassifier(t, stub)

	c.limiter.SetBudget(ProviderKey, ratelimit.Budget{Requests: 1, Window: time.Minute})
	require.NoError(t, c.limiter.TryAcquire(ProviderKey, 0))

	result := c.Classify(context.Background(), "add task: water the plants")

	assert.Zero(t, stub.calls, "provider must not be called while rate limited")
	assert.Equal(t, CreateTask, result.Intent)
	assert.True(t, result.Fallback)
	assert.Less(t, result.Confidence, c.cfg.App.ConfidenceThreshold)
}
