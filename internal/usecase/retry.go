package usecase

import (
	"context"
	"time"

	"quorum/internal/domain"
)

// RetryPolicy governs redispatch of transient handler failures. Only
// errors classified retryable by domain.IsRetryableError are retried;
// validation, permission, and budget failures are deterministic and go
// straight to the caller.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is the Router's dispatch policy: three attempts
// with exponential backoff capped at two seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Do runs fn until it succeeds, fails permanently, or exhausts the
// attempt ceiling. The delay doubles between attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var value any
	var err error
	for attempt := 1; ; attempt++ {
		value, err = fn()
		if err == nil || !domain.IsRetryableError(err) || attempt >= attempts {
			return value, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
