package whatsapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"planbot/app/config"
	"planbot/app/util/fault"
	"planbot/app/util/retry"

	"github.com/samber/do"
)

const baseURL = "https://api.twilio.com/2010-04-01"

// Client sends WhatsApp messages through the Twilio REST API.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	retrier    retry.Policy
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retrier: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			Retryable:   fault.Transient,
		},
	}, nil
}

// Send delivers body to the given whatsapp:+E164 recipient. Transient
// Twilio failures are retried; auth failures surface as fault.AuthError.
func (c *Client) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("From", c.cfg.Twilio.FromNumber)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", baseURL, c.cfg.Twilio.AccountSID)

	return c.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
			strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.SetBasicAuth(c.cfg.Twilio.AccountSID, c.cfg.Twilio.AuthToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			data, _ := io.ReadAll(resp.Body)
			return fault.FromStatus("twilio", resp.StatusCode,
				fmt.Errorf("%s", strings.TrimSpace(string(data))))
		}

		return nil
	})
}

// Ping checks whether the Twilio account is reachable, for the health
// surface. No message is sent.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s.json", baseURL, c.cfg.Twilio.AccountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.cfg.Twilio.AccountSID, c.cfg.Twilio.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fault.FromStatus("twilio", resp.StatusCode, nil)
	}

	return nil
}
