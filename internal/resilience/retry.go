package resilience

import (
	"context"
	"math"
	"time"

	"github.com/vietddude/curator/internal/core/domain"
)

// RetryConfig defines retry behavior for one operation type. Construct once
// and reuse; the zero value retries nothing.
type RetryConfig struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Exponential    bool
	RetryableKinds map[domain.ErrorKind]bool
}

// DefaultRetryConfig retries transient source failures.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    60 * time.Second,
	Exponential: true,
	RetryableKinds: map[domain.ErrorKind]bool{
		domain.ErrorKindNetwork:   true,
		domain.ErrorKindRateLimit: true,
	},
}

// Retryable reports whether a kind is in the retryable set.
func (c RetryConfig) Retryable(kind domain.ErrorKind) bool {
	return c.RetryableKinds[kind]
}

// Delay returns the backoff before retry i (1-indexed):
// min(MaxDelay, BaseDelay * 2^(i-1)) when exponential, else BaseDelay.
func (c RetryConfig) Delay(retry int) time.Duration {
	if !c.Exponential {
		return c.BaseDelay
	}
	d := float64(c.BaseDelay) * math.Pow(2, float64(retry-1))
	if d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// Do runs op, retrying on retryable error kinds with bounded backoff. Total
// attempts are 1+MaxRetries; a non-retryable classification returns after
// the first attempt. The last error is always returned, never swallowed.
// The backoff wait observes ctx cancellation.
func Do(ctx context.Context, cfg RetryConfig, op func() error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if !cfg.Retryable(Classify(lastErr)) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Delay(attempt + 1)):
		}
	}

	return lastErr
}
