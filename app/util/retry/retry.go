package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrExhausted is returned once every allowed attempt has failed. The last
// attempt's error is wrapped alongside it.
var ErrExhausted = errors.New("retries exhausted")

// Policy wraps an operation with bounded exponential backoff and jitter.
// Only errors accepted by Retryable are retried; everything else surfaces
// immediately. Retried operations must be idempotent from the caller's side.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 8 * time.Second
	}
	if p.Retryable == nil {
		p.Retryable = func(error) bool { return true }
	}

	return p
}

// Do runs op until it succeeds, fails non-transiently, runs out of attempts
// or ctx is cancelled.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	p = p.withDefaults()

	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !p.Retryable(lastErr) {
			return lastErr
		}

		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff(attempt)):
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts, lastErr)
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T

	err := p.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})

	return result, err
}

// backoff doubles the base delay per attempt, caps it at MaxDelay and adds
// up to 50% random jitter to avoid retry storms.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))

	return delay + jitter
}
