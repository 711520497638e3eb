package resilience

import (
	"log/slog"

	"github.com/leofalp/aigo/providers/ai"
)

// Builder assembles the conventional resilience stack around a primary
// provider and optional fallbacks: each provider gets its own circuit
// breaker (innermost) wrapped in retry, and the wrapped providers form a
// fallback chain (outermost). Breaker state is per provider, and retries
// exhaust before the chain advances.
type Builder struct {
	primary   ai.Provider
	fallbacks []ai.Provider
	breaker   *BreakerConfig
	retry     *RetryConfig
	policy    FallbackPolicy
	logger    *slog.Logger
}

// Resilient starts a builder around the primary provider.
func Resilient(primary ai.Provider) *Builder {
	return &Builder{
		primary: primary,
		policy:  OnAnyError(),
		logger:  slog.Default(),
	}
}

// WithFallback appends providers to try, in order, after the primary.
func (b *Builder) WithFallback(providers ...ai.Provider) *Builder {
	b.fallbacks = append(b.fallbacks, providers...)
	return b
}

// WithCircuitBreaker enables a per-provider circuit breaker.
func (b *Builder) WithCircuitBreaker(config BreakerConfig) *Builder {
	b.breaker = &config
	return b
}

// WithRetry enables per-provider retries.
func (b *Builder) WithRetry(config RetryConfig) *Builder {
	b.retry = &config
	return b
}

// WithPolicy sets the fallback policy. Default: OnAnyError.
func (b *Builder) WithPolicy(policy FallbackPolicy) *Builder {
	b.policy = policy
	return b
}

// WithLogger sets the logger used by the assembled wrappers.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Build assembles the composed provider. With no fallbacks the result is
// just the wrapped primary; with fallbacks it is a fallback chain over the
// individually wrapped providers.
func (b *Builder) Build() ai.Provider {
	wrap := func(p ai.Provider) ai.Provider {
		if b.breaker != nil {
			config := *b.breaker
			if config.Logger == nil {
				config.Logger = b.logger
			}
			p = NewCircuitBreaker(p, config)
		}
		if b.retry != nil {
			config := *b.retry
			if config.Logger == nil {
				config.Logger = b.logger
			}
			p = NewRetryProvider(p, config)
		}
		return p
	}

	if len(b.fallbacks) == 0 {
		return wrap(b.primary)
	}

	providers := make([]ai.Provider, 0, len(b.fallbacks)+1)
	providers = append(providers, wrap(b.primary))
	for _, fallback := range b.fallbacks {
		providers = append(providers, wrap(fallback))
	}

	return NewFallbackProvider(b.policy, providers, WithFallbackLogger(b.logger))
}
