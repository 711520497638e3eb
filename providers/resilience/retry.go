package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/leofalp/aigo/providers/ai"
)

// RetryConfig holds the tuning parameters for a RetryProvider. Zero values
// are replaced with the defaults documented below.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first
	// failure. A value of 3 means the provider is called at most 4 times.
	// Default: 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier
	// (backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff)).
	// Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds random noise in [0, JitterFraction*backoff] to
	// avoid thundering-herd effects. Default: 0.1.
	JitterFraction float64

	// RetryableFunc reports whether an error should trigger a retry.
	// The default retries rate limits, 5xx provider errors, and stream
	// failures.
	RetryableFunc func(error) bool

	// Logger for retry attempts. Defaults to slog.Default().
	Logger *slog.Logger
}

// defaultRetryable retries transient failures only.
func defaultRetryable(err error) bool {
	kind, known := classify(err)
	if !known {
		return false
	}
	switch kind {
	case KindRateLimit, KindServerError, KindStream:
		return true
	default:
		return false
	}
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 2.0
	}
	if c.JitterFraction == 0 {
		c.JitterFraction = 0.1
	}
	if c.RetryableFunc == nil {
		c.RetryableFunc = defaultRetryable
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// computeBackoff returns the backoff for the given attempt (0-indexed):
// min(InitialBackoff * BackoffFactor^attempt, MaxBackoff) + jitter.
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter is intentional
	return time.Duration(base + jitter)
}

// RetryProvider retries failed generations with exponential backoff.
// Non-retryable errors propagate immediately. Sleeps respect context
// cancellation.
type RetryProvider struct {
	inner  ai.Provider
	config RetryConfig
}

var _ ai.StreamProvider = (*RetryProvider)(nil)

// NewRetryProvider wraps inner with retry behavior. Zero-valued config
// fields get safe defaults (see RetryConfig).
func NewRetryProvider(inner ai.Provider, config RetryConfig) *RetryProvider {
	config.applyDefaults()
	return &RetryProvider{inner: inner, config: config}
}

func (r *RetryProvider) Name() string  { return r.inner.Name() }
func (r *RetryProvider) Model() string { return r.inner.Model() }

// Generate calls the wrapped provider, retrying per the configuration. On
// exhaustion the returned error wraps both [ErrRetryExhausted] and the last
// provider error.
func (r *RetryProvider) Generate(ctx context.Context, messages []ai.Message, tools []ai.ToolDescription, opts *ai.GenerateOptions) (*ai.GenerateResult, error) {
	result, err := retryLoop(ctx, r.config, func() (*ai.GenerateResult, error) {
		return r.inner.Generate(ctx, messages, tools, opts)
	})
	return result, err
}

// Stream opens a stream with the same retry policy applied to stream
// establishment. Mid-stream failures are not retried; re-dialing a consumed
// stream would replay partial output.
func (r *RetryProvider) Stream(ctx context.Context, messages []ai.Message, tools []ai.ToolDescription, opts *ai.GenerateOptions) (*ai.EventStream, error) {
	return retryLoop(ctx, r.config, func() (*ai.EventStream, error) {
		return openStream(ctx, r.inner, messages, tools, opts)
	})
}

// retryLoop is the shared attempt loop for Generate and Stream.
func retryLoop[T any](ctx context.Context, config RetryConfig, call func() (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := computeBackoff(config, attempt-1)
			config.Logger.Debug("retrying provider call",
				"attempt", attempt, "backoff", backoff)

			// Respect context cancellation between retries.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := call()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !config.RetryableFunc(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
}

// openStream starts a stream on inner, synthesizing a single-event stream
// when the provider cannot stream natively.
func openStream(ctx context.Context, inner ai.Provider, messages []ai.Message, tools []ai.ToolDescription, opts *ai.GenerateOptions) (*ai.EventStream, error) {
	if streamer, ok := inner.(ai.StreamProvider); ok {
		return streamer.Stream(ctx, messages, tools, opts)
	}

	result, err := inner.Generate(ctx, messages, tools, opts)
	if err != nil {
		return nil, err
	}
	return ai.SingleEventStream(result), nil
}
