package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Error signals that a provider budget is exhausted. RetryAfter is the time
// until the oldest counted call leaves the window.
type Error struct {
	Key        string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limited on %s, retry after %s", e.Key, e.RetryAfter)
}

// Budget bounds both request count and token cost over a rolling window.
// Tokens == 0 disables the cost dimension.
type Budget struct {
	Requests int
	Tokens   int
	Window   time.Duration
}

type call struct {
	at   time.Time
	cost int
}

// Limiter tracks per-key sliding windows. Acquisition and counter update are
// a single step under one lock, so concurrent callers can never push the
// aggregate above the ceiling.
type Limiter struct {
	mu      sync.Mutex
	budgets map[string]Budget
	calls   map[string][]call

	now func() time.Time
}

func New() *Limiter {
	return &Limiter{
		budgets: make(map[string]Budget),
		calls:   make(map[string][]call),
		now:     time.Now,
	}
}

func (l *Limiter) SetBudget(key string, budget Budget) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if budget.Window == 0 {
		budget.Window = time.Minute
	}

	l.budgets[key] = budget
}

// TryAcquire reserves one request plus cost tokens against key's budget.
// It never blocks; callers decide whether to wait or degrade on *Error.
func (l *Limiter) TryAcquire(key string, cost int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	budget, ok := l.budgets[key]
	if !ok {
		return nil
	}

	now := l.now()
	window := l.prune(key, now, budget.Window)

	if budget.Requests > 0 && len(window) >= budget.Requests {
		return &Error{
			Key:        key,
			RetryAfter: window[0].at.Add(budget.Window).Sub(now),
		}
	}

	if budget.Tokens > 0 {
		used := 0
		for _, c := range window {
			used += c.cost
		}

		if used+cost > budget.Tokens && len(window) > 0 {
			return &Error{
				Key:        key,
				RetryAfter: window[0].at.Add(budget.Window).Sub(now),
			}
		}
	}

	l.calls[key] = append(window, call{at: now, cost: cost})

	return nil
}

// Utilization reports the used fraction of the request and token budgets,
// for the health surface. Unknown keys report zero.
func (l *Limiter) Utilization(key string) (requests, tokens float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	budget, ok := l.budgets[key]
	if !ok {
		return 0, 0
	}

	window := l.prune(key, l.now(), budget.Window)

	if budget.Requests > 0 {
		requests = float64(len(window)) / float64(budget.Requests)
	}

	if budget.Tokens > 0 {
		used := 0
		for _, c := range window {
			used += c.cost
		}
		tokens = float64(used) / float64(budget.Tokens)
	}

	return requests, tokens
}

func (l *Limiter) prune(key string, now time.Time, window time.Duration) []call {
	calls := l.calls[key]
	cutoff := now.Add(-window)

	for len(calls) > 0 && !calls[0].at.After(cutoff) {
		calls = calls[1:]
	}

	l.calls[key] = calls

	return calls
}
