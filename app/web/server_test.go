package web

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planbot/app/config"
	"planbot/app/service/queue"
)

func testServer(t *testing.T) (*Server, *queue.Service) {
	t.Helper()

	queueSvc, err := queue.New(nil)
	require.NoError(t, err)

	s := &Server{
		cfg:      &config.Config{},
		queueSvc: queueSvc,
	}
	s.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	s.app.Post("/webhook", s.handleWebhook)

	return s, queueSvc
}

func TestWebhookEnqueuesMessage(t *testing.T) {
	s, queueSvc := testServer(t)

	form := url.Values{}
	form.Set("From", "whatsapp:+972501234567")
	form.Set("Body", "remind me to call mom tomorrow")

	req := httptest.NewRequest(fiber.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	msg := <-queueSvc.Channel()
	assert.Equal(t, "whatsapp:+972501234567", msg.Sender)
	assert.Equal(t, "remind me to call mom tomorrow", msg.Text)
}

func TestWebhookRejectsMissingSender(t *testing.T) {
	s, queueSvc := testServer(t)

	form := url.Values{}
	form.Set("Body", "anonymous")

	req := httptest.NewRequest(fiber.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, queueSvc.Channel())
}
