package gateway

import (
	"context"
	"errors"
	"log"
	"net"
	"time"

	"github.com/google/go-github/v62/github"
)

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// retryable reports whether an error is worth another attempt: rate-limit
// responses, transient 5xx responses and network timeouts. Other 4xx
// responses are never retried.
func retryable(err error) bool {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// retryDelay returns the wait before the next attempt. Rate-limit responses
// carry their own reset time or Retry-After, which takes precedence over the
// default exponential backoff when it is longer.
func retryDelay(err error, attempt int) time.Duration {
	delay := retryBackoff << (attempt - 1)
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		if until := time.Until(rateErr.Rate.Reset.Time); until > delay {
			delay = until
		}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.RetryAfter != nil && *abuseErr.RetryAfter > delay {
		delay = *abuseErr.RetryAfter
	}
	return delay
}

// withRetry runs fn up to maxAttempts times, waiting between transient
// failures. The last error is returned once attempts are exhausted; the
// delay honors ctx cancellation.
func withRetry(ctx context.Context, logger *log.Logger, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil || !retryable(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		delay := retryDelay(err, attempt)
		logger.Printf("  retrying %s after %v (attempt %d/%d)", op, delay, attempt+1, maxAttempts)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
