package ai

import (
	"fmt"
	"time"
)

// The typed error family below is what the resilience layer classifies with
// errors.As: rate limits and 5xx provider errors are retryable, and fallback
// policies match on these kinds. Provider implementations should return these
// types (or wrap them with %w) rather than bare strings.

// ProviderError is a generic backend failure, carrying the HTTP status code
// when one is available. StatusCode >= 500 is treated as a transient server
// error by the resilience layer.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %q: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimitError signals that the backend throttled the request.
// RetryAfter is the backend's suggested wait, zero when not provided.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("provider %q: rate limited", e.Provider)
}

// AuthError signals invalid or missing credentials. Never retried.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider %q: authentication failed: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("provider %q: authentication failed", e.Provider)
}

// TimeoutError signals that a request exceeded its deadline.
type TimeoutError struct {
	Provider string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q: request timed out after %s", e.Provider, e.After)
}

// StreamError signals a failure while a stream was being consumed.
// Treated as retryable by the resilience layer (the request can be re-dialed).
type StreamError struct {
	Provider string
	Err      error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("provider %q: stream failed: %v", e.Provider, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
