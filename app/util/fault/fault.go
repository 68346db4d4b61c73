// Package fault defines the error taxonomy shared by all outbound
// connectors: transient provider failures that may be retried, validation
// failures that must not be, and auth failures that need operator action.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"

	"planbot/app/util/ratelimit"
)

// ProviderError wraps a failed call to an external provider together with
// the HTTP-equivalent status code that caused it.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s returned %d: %v", e.Provider, e.Status, e.Err)
	}

	return fmt.Sprintf("%s returned %d", e.Provider, e.Status)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AuthError means a provider credential is expired or invalid. It is fatal
// for the current request and requires an out-of-band credential refresh.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth failed for %s: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ValidationError marks malformed input surfaced immediately, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FromStatus maps an HTTP status code to the taxonomy.
func FromStatus(provider string, status int, err error) error {
	switch {
	case status == 401 || status == 403:
		return &AuthError{Provider: provider, Err: err}
	case status == 429 || status >= 500:
		return &ProviderError{Provider: provider, Status: status, Err: err}
	default:
		return &ProviderError{Provider: provider, Status: status, Err: err}
	}
}

// Transient reports whether err belongs to a failure class worth retrying:
// network timeouts, 429/5xx provider responses and local rate limiting.
// Auth and validation failures are never transient.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}

	var rateErr *ratelimit.Error
	if errors.As(err, &rateErr) {
		return true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Status == 429 || providerErr.Status >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
