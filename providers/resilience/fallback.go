package resilience

import (
	"context"
	"log/slog"
	"slices"

	"github.com/leofalp/aigo/providers/ai"
)

// FallbackPolicy decides whether a failure should advance the chain to the
// next provider. Build one with [OnAnyError] or [OnErrors].
type FallbackPolicy struct {
	anyError bool
	kinds    []ErrorKind
}

// OnAnyError advances the chain on every failure.
func OnAnyError() FallbackPolicy {
	return FallbackPolicy{anyError: true}
}

// OnErrors advances the chain only for failures classified as one of the
// given kinds; anything else propagates immediately.
func OnErrors(kinds ...ErrorKind) FallbackPolicy {
	return FallbackPolicy{kinds: kinds}
}

// shouldFallback reports whether the policy matches the error.
func (p FallbackPolicy) shouldFallback(err error) bool {
	if p.anyError {
		return true
	}
	kind, known := classify(err)
	return known && slices.Contains(p.kinds, kind)
}

// FallbackProvider tries an ordered list of providers. The policy is
// consulted between attempts: a matching failure advances to the next
// provider, a non-matching one propagates immediately. The final provider's
// failure is returned as-is; only the last error is reported.
type FallbackProvider struct {
	providers []ai.Provider
	policy    FallbackPolicy
	logger    *slog.Logger
}

var _ ai.StreamProvider = (*FallbackProvider)(nil)

// FallbackOption configures a FallbackProvider.
type FallbackOption func(*FallbackProvider)

// WithFallbackLogger sets the logger for fallback advances.
// Defaults to slog.Default().
func WithFallbackLogger(logger *slog.Logger) FallbackOption {
	return func(f *FallbackProvider) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFallbackProvider builds a chain over the given providers in order.
func NewFallbackProvider(policy FallbackPolicy, providers []ai.Provider, options ...FallbackOption) *FallbackProvider {
	f := &FallbackProvider{
		providers: providers,
		policy:    policy,
		logger:    slog.Default(),
	}
	for _, option := range options {
		option(f)
	}
	return f
}

// Name identifies the chain, not any single backend.
func (f *FallbackProvider) Name() string { return "fallback" }

// Model returns the primary provider's model.
func (f *FallbackProvider) Model() string {
	if len(f.providers) == 0 {
		return ""
	}
	return f.providers[0].Model()
}

// Generate tries each provider in order under the fallback policy.
func (f *FallbackProvider) Generate(ctx context.Context, messages []ai.Message, tools []ai.ToolDescription, opts *ai.GenerateOptions) (*ai.GenerateResult, error) {
	return fallbackLoop(f, func(p ai.Provider) (*ai.GenerateResult, error) {
		return p.Generate(ctx, messages, tools, opts)
	})
}

// Stream tries each provider in order, advancing on stream-open failures.
func (f *FallbackProvider) Stream(ctx context.Context, messages []ai.Message, tools []ai.ToolDescription, opts *ai.GenerateOptions) (*ai.EventStream, error) {
	return fallbackLoop(f, func(p ai.Provider) (*ai.EventStream, error) {
		return openStream(ctx, p, messages, tools, opts)
	})
}

// fallbackLoop is the shared attempt loop for Generate and Stream.
func fallbackLoop[T any](f *FallbackProvider, call func(ai.Provider) (*T, error)) (*T, error) {
	if len(f.providers) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	for i, provider := range f.providers {
		result, err := call(provider)
		if err == nil {
			return result, nil
		}

		last := i == len(f.providers)-1
		if last || !f.policy.shouldFallback(err) {
			return nil, err
		}

		f.logger.Warn("provider failed, falling back",
			"provider", provider.Name(),
			"next", f.providers[i+1].Name(),
			"error", err)
		lastErr = err
	}

	// Unreachable: the last attempt always returns above.
	return nil, lastErr
}
