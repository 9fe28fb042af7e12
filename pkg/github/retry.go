package github

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"slices"
	"time"
)

// RetryConfig decides which failed reads are attempted again and how long
// to wait in between. Writes (comments, reactions) are never retried.
type RetryConfig struct {
	// MaxAttempts counts the first attempt too.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// RetryOn lists retryable HTTP statuses. Exhausted rate limits are
	// always retryable.
	RetryOn []int
}

// DefaultRetryConfig retries server errors and rate limits three times.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		RetryOn: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// ShouldRetry reports whether a response with this status is retried.
func (rc *RetryConfig) ShouldRetry(statusCode int) bool {
	return slices.Contains(rc.RetryOn, statusCode)
}

// Backoff is the wait before retry number attempt+1: BaseDelay doubled per
// attempt, +/-10% jitter, capped at MaxDelay.
func (rc *RetryConfig) Backoff(attempt int) time.Duration {
	d := rc.BaseDelay << uint(attempt)
	d += time.Duration(float64(d) * 0.1 * (rand.Float64()*2 - 1))
	return rc.capped(d)
}

func (rc *RetryConfig) capped(d time.Duration) time.Duration {
	if d <= 0 {
		d = rc.BaseDelay
	}
	if rc.MaxDelay > 0 && d > rc.MaxDelay {
		d = rc.MaxDelay
	}
	return d
}

// wait is how long to sleep after err. A rate limit with a known reset
// time waits for the reset.
func (rc *RetryConfig) wait(err error, attempt int, now time.Time) time.Duration {
	var apiErr *APIError
	if IsRateLimitError(err) && errors.As(err, &apiErr) && apiErr.RateLimit != nil && apiErr.RateLimit.Reset > 0 {
		until := time.Unix(apiErr.RateLimit.Reset, 0).Sub(now)
		if until > 0 {
			return rc.capped(until + time.Second)
		}
	}
	return rc.Backoff(attempt)
}

// retryable reports whether err is worth another attempt: a listed
// status, an exhausted rate limit, or a network timeout.
func (rc *RetryConfig) retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsRateLimitError(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return rc.ShouldRetry(apiErr.StatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// do runs fn until it succeeds, fails for good, or runs out of attempts.
func (rc *RetryConfig) do(ctx context.Context, fn func() error) error {
	attempts := max(rc.MaxAttempts, 1)
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); !rc.retryable(err) || attempt == attempts-1 {
			return err
		}
		timer := time.NewTimer(rc.wait(err, attempt, time.Now()))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return err
}
