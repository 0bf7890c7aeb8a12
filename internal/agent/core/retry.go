package core

import (
	"context"
	"time"
)

// RetryPolicy controls backoff for provider calls. Rate-limited errors wait
// a fixed penalty, everything else backs off exponentially from BaseDelay.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	RateLimitDelay time.Duration
}

// DefaultRetryPolicy matches the pipeline defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		BaseDelay:      500 * time.Millisecond,
		RateLimitDelay: 5 * time.Second,
	}
}

// Delay returns how long to wait after a failed attempt (1-indexed).
func (p RetryPolicy) Delay(attempt int, err error) time.Duration {
	if IsRateLimited(err) {
		return p.RateLimitDelay
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Sleep waits the computed delay, returning early if ctx is cancelled.
func (p RetryPolicy) Sleep(ctx context.Context, attempt int, err error) error {
	t := time.NewTimer(p.Delay(attempt, err))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
