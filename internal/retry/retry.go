// Package retry holds the backoff policy shared by network calls and the
// resource gate.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Policy describes capped exponential backoff with optional jitter.
type Policy struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // delay before the second attempt
	Multiplier  float64       // growth factor per attempt
	MaxDelay    time.Duration // ceiling for a single delay
	Jitter      float64       // 0..1 fraction of the delay added at random
}

// Default is the policy used for storage and content API calls.
var Default = Policy{
	MaxAttempts: 5,
	BaseDelay:   1 * time.Second,
	Multiplier:  2,
	MaxDelay:    30 * time.Second,
	Jitter:      0.25,
}

// Delay returns the wait before attempt n (n >= 1 is the first retry).
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2
	}
	delay := float64(p.BaseDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		delay += delay * p.Jitter * rand.Float64()
	}
	return time.Duration(delay)
}

// Permanent marks an error that must not be retried.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Stop wraps err so Do returns it immediately.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

// Do runs fn until it succeeds, returns a Permanent error, the attempts run
// out or ctx is done. onRetry (optional) is called before each wait.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			if onRetry != nil {
				onRetry(attempt, delay, lastErr)
			}
			if err := Sleep(ctx, delay); err != nil {
				return fmt.Errorf("retry cancelled: %w", err)
			}
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRetryableError checks if a network-level error is worth retrying
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "broken pipe")
}

// IsRetryableStatus checks if an HTTP status code is worth retrying
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || // 429
		status == http.StatusRequestTimeout || // 408
		status == http.StatusInternalServerError || // 500
		status == http.StatusBadGateway || // 502
		status == http.StatusServiceUnavailable || // 503
		status == http.StatusGatewayTimeout // 504
}
