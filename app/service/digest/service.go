// Package digest sends the daily morning summary on a cron schedule.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"planbot/app/config"
	"planbot/app/service/assistant"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

type Service struct {
	cron *cron.Cron
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)
	assistantSvc := do.MustInvoke[*assistant.Service](di)

	if cfg.App.DigestTime == "" {
		return &Service{}, nil
	}

	spec, err := cronSpec(cfg.App.DigestTime)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(spec, func() {
		if err := assistantSvc.DailySummary(context.Background()); err != nil {
			slog.Error("Daily digest failed", "error", err)
			return
		}

		slog.Info("Daily digest sent")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule digest: %w", err)
	}

	c.Start()

	return &Service{cron: c}, nil
}

func (s *Service) Shutdown() error {
	if s.cron != nil {
		s.cron.Stop()
	}

	return nil
}

// cronSpec turns "HH:MM" into a daily cron expression.
func cronSpec(digestTime string) (string, error) {
	parts := strings.Split(digestTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid digest time %q, want HH:MM", digestTime)
	}

	return fmt.Sprintf("%s %s * * *",
		strings.TrimPrefix(parts[1], "0"),
		strings.TrimPrefix(parts[0], "0")), nil
}
