// Package web hosts the inbound webhook endpoint and the health surface.
package web

import (
	"context"
	"log/slog"

	"planbot/app/config"
	"planbot/app/service/queue"
	"planbot/app/service/status"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

type Server struct {
	cfg       *config.Config
	queueSvc  *queue.Service
	statusSvc *status.Service
	app       *fiber.App
}

func New(di *do.Injector) (*Server, error) {
	s := &Server{
		cfg:       do.MustInvoke[*config.Config](di),
		queueSvc:  do.MustInvoke[*queue.Service](di),
		statusSvc: do.MustInvoke[*status.Service](di),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.app.Post("/webhook", s.handleWebhook)
	s.app.Get("/health", s.handleHealth)

	return s, nil
}

// handleWebhook accepts Twilio's form-encoded WhatsApp callback. The reply
// is sent asynchronously over the REST API, so the webhook itself just
// acknowledges receipt. Twilio retries on non-2xx, hence the fast 204.
func (s *Server) handleWebhook(c *fiber.Ctx) error {
	sender := c.FormValue("From")
	body := c.FormValue("Body")

	if sender == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	slog.Debug("Webhook received", "sender", sender)

	s.queueSvc.Add(sender, body)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(s.statusSvc.Check(c.UserContext()))
}

func (s *Server) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		_ = s.app.Shutdown()
	}()

	slog.Info("Webhook server listening", "addr", s.cfg.Server.Addr)

	if err := s.app.Listen(s.cfg.Server.Addr); err != nil {
		slog.Error("Webhook server stopped", "error", err)
	}
}
