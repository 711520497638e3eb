package resilience

import (
	"context"
	"errors"

	"github.com/leofalp/aigo/providers/ai"
)

var (
	// ErrRetryExhausted is wrapped into the error returned when all retry
	// attempts fail. The last provider error is wrapped alongside, so
	// callers can unwrap either.
	ErrRetryExhausted = errors.New("resilience: retry attempts exhausted")

	// ErrCircuitOpen is returned without touching the wrapped provider
	// while the breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrNoProviders is returned by a fallback chain configured with no
	// providers.
	ErrNoProviders = errors.New("resilience: no providers configured")
)

// ErrorKind classifies provider failures for fallback policies and retry
// decisions.
type ErrorKind int

const (
	KindRateLimit ErrorKind = iota
	KindServerError
	KindAuthentication
	KindTimeout
	KindStream
)

// classify maps an error to its kind using the typed error family in
// providers/ai. The second return is false for errors outside the family
// (bad requests, cancellations, validation errors).
func classify(err error) (ErrorKind, bool) {
	var rateLimit *ai.RateLimitError
	if errors.As(err, &rateLimit) {
		return KindRateLimit, true
	}

	var auth *ai.AuthError
	if errors.As(err, &auth) {
		return KindAuthentication, true
	}

	var timeout *ai.TimeoutError
	if errors.As(err, &timeout) {
		return KindTimeout, true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout, true
	}

	var stream *ai.StreamError
	if errors.As(err, &stream) {
		return KindStream, true
	}

	var provider *ai.ProviderError
	if errors.As(err, &provider) && provider.StatusCode >= 500 {
		return KindServerError, true
	}

	return 0, false
}
