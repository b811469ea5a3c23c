package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
)

// AuthError means the credentials were rejected. It is fatal for the whole run.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("authentication failed: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError means a requested resource (typically an organization) does
// not exist or is not visible to the token.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found", e.Resource) }
func (e *NotFoundError) Unwrap() error { return e.Err }

// BranchNotFoundError identifies which branch of a compare pair is missing.
// It skips the one repository, never the run.
type BranchNotFoundError struct {
	Repo   string
	Branch string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("%s: branch %q does not exist", e.Repo, e.Branch)
}

// RateLimitError is surfaced only after the rate-limit transport and the
// bounded retry both gave up.
type RateLimitError struct {
	Reset time.Time
	Err   error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exhausted (resets %s)", e.Reset.Format(time.RFC3339))
}
func (e *RateLimitError) Unwrap() error { return e.Err }

// classify maps a go-github error to the gateway taxonomy. resource names what
// was being fetched and ends up in NotFoundError messages.
func classify(err error, resource string) error {
	if err == nil {
		return nil
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitError{Reset: rateErr.Rate.Reset.Time, Err: err}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		reset := time.Now()
		if abuseErr.RetryAfter != nil {
			reset = reset.Add(*abuseErr.RetryAfter)
		}
		return &RateLimitError{Reset: reset, Err: err}
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return &AuthError{Err: err}
		case http.StatusNotFound:
			return &NotFoundError{Resource: resource, Err: err}
		}
	}
	return err
}

// isNotFound reports whether err maps to a 404 without wrapping it.
func isNotFound(err error) bool {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return true
	}
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil &&
		respErr.Response.StatusCode == http.StatusNotFound
}
