package engine

import (
	"context"
	"log/slog"
	"time"

	"planbot/app/config"
	"planbot/app/service/assistant"
	"planbot/app/service/queue"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

// Service runs the worker pool that drains the inbound queue. Messages are
// independent, so workers process them unordered and concurrently; each one
// gets its own timeout budget.
type Service struct {
	cfg          *config.Config
	assistantSvc *assistant.Service
	queueSvc     *queue.Service
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:          do.MustInvoke[*config.Config](di),
		assistantSvc: do.MustInvoke[*assistant.Service](di),
		queueSvc:     do.MustInvoke[*queue.Service](di),
	}, nil
}

func (s *Service) Run(ctx context.Context) {
	group, ctx := errgroup.WithContext(ctx)

	for range s.cfg.App.Workers {
		group.Go(func() error {
			s.worker(ctx)
			return nil
		})
	}

	_ = group.Wait()
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.queueSvc.Channel():
			if !ok {
				return
			}

			s.process(ctx, msg)
		}
	}
}

func (s *Service) process(ctx context.Context, msg queue.Message) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.App.RequestTimeout)
	defer cancel()

	start := time.Now()

	if err := s.assistantSvc.HandleMessage(ctx, msg.Sender, msg.Text); err != nil {
		slog.Warn("HandleMessage error", "sender", msg.Sender, "error", err)
		return
	}

	slog.Info("Processed message",
		"sender", msg.Sender,
		"duration", time.Since(start))
}
