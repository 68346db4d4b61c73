// Package status is the read-only health surface: provider reachability and
// current rate-limit utilization. Informational only, no side effects.
package status

import (
	"context"
	"time"

	"planbot/app/client/caldav"
	"planbot/app/client/todoist"
	"planbot/app/client/whatsapp"
	"planbot/app/service/assistant"
	"planbot/app/service/intent"
	"planbot/app/util/ratelimit"

	"github.com/samber/do"
)

const pingTimeout = 10 * time.Second

type Report struct {
	Providers map[string]ProviderStatus `json:"providers"`
	Pending   int                       `json:"pending_confirmations"`
}

type ProviderStatus struct {
	Reachable           bool    `json:"reachable"`
	Error               string  `json:"error,omitempty"`
	RequestsUtilization float64 `json:"requests_utilization"`
	TokensUtilization   float64 `json:"tokens_utilization,omitempty"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

type pendingCounter interface {
	Count() int
}

type Service struct {
	limiter *ratelimit.Limiter
	pending pendingCounter
	pingers map[string]pinger
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		limiter: do.MustInvoke[*ratelimit.Limiter](di),
		pending: do.MustInvoke[*assistant.Service](di).Pending(),
		pingers: map[string]pinger{
			"twilio":           do.MustInvoke[*whatsapp.Client](di),
			"caldav":           do.MustInvoke[*caldav.Client](di),
			"todoist":          do.MustInvoke[*todoist.Client](di),
			intent.ProviderKey: do.MustInvoke[*intent.Classifier](di),
		},
	}, nil
}

func (s *Service) Check(ctx context.Context) Report {
	report := Report{
		Providers: make(map[string]ProviderStatus),
		Pending:   s.pending.Count(),
	}

	for name, p := range s.pingers {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := p.Ping(ctx)
		cancel()

		providerStatus := ProviderStatus{Reachable: err == nil}
		if err != nil {
			providerStatus.Error = err.Error()
		}

		providerStatus.RequestsUtilization, providerStatus.TokensUtilization =
			s.limiter.Utilization(name)

		report.Providers[name] = providerStatus
	}

	return report
}
