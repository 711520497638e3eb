package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/leofalp/aigo/providers/ai"
)

// Breaker states. Closed passes calls through; open fails fast; half-open
// admits probe calls after the recovery timeout.
const (
	stateClosed uint32 = iota
	stateOpen
	stateHalfOpen
)

// BreakerConfig tunes a CircuitBreaker. Zero values get the defaults below.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit. Default: 5.
	FailureThreshold uint32

	// RecoveryTimeout is how long the circuit stays open before admitting
	// probe calls. Default: 30s.
	RecoveryTimeout time.Duration

	// Logger for state transitions. Defaults to slog.Default().
	Logger *slog.Logger

	// now overrides the clock in tests.
	now func() time.Time
}

func (c *BreakerConfig) applyDefaults() {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout == 0 {
		c.RecoveryTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
}

// CircuitBreaker fails fast once the wrapped provider has failed
// FailureThreshold times in a row, sparing a struggling backend further
// load. After RecoveryTimeout it lets a probe through; one success closes
// the circuit and resets the counter, another failure reopens it.
//
// All state lives in atomics; a single breaker may be shared by any number
// of goroutines, and its counters persist across calls.
type CircuitBreaker struct {
	inner  ai.Provider
	config BreakerConfig

	state       atomic.Uint32
	failures    atomic.Uint32
	lastFailure atomic.Int64 // unix nanos
}

var _ ai.StreamProvider = (*CircuitBreaker)(nil)

// NewCircuitBreaker wraps inner with a breaker. Zero-valued config fields
// get safe defaults (see BreakerConfig).
func NewCircuitBreaker(inner ai.Provider, config BreakerConfig) *CircuitBreaker {
	config.applyDefaults()
	return &CircuitBreaker{inner: inner, config: config}
}

func (cb *CircuitBreaker) Name() string  { return cb.inner.Name() }
func (cb *CircuitBreaker) Model() string { return cb.inner.Model() }

// State returns the current state as "closed", "open", or "half_open".
func (cb *CircuitBreaker) State() string {
	switch cb.currentState() {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// currentState reads the state, transitioning open to half-open once the
// recovery timeout has elapsed.
func (cb *CircuitBreaker) currentState() uint32 {
	state := cb.state.Load()
	if state == stateOpen {
		lastFailure := time.Unix(0, cb.lastFailure.Load())
		if cb.config.now().Sub(lastFailure) >= cb.config.RecoveryTimeout {
			cb.state.Store(stateHalfOpen)
			cb.config.Logger.Debug("circuit breaker half-open",
				"provider", cb.inner.Name())
			return stateHalfOpen
		}
	}
	return state
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.failures.Store(0)
	cb.state.Store(stateClosed)
}

func (cb *CircuitBreaker) recordFailure() {
	failures := cb.failures.Add(1)
	cb.lastFailure.Store(cb.config.now().UnixNano())
	if failures >= cb.config.FailureThreshold {
		cb.state.Store(stateOpen)
		cb.config.Logger.Warn("circuit breaker opened",
			"provider", cb.inner.Name(), "failures", failures)
	}
}

// Generate calls the wrapped provider unless the circuit is open, in which
// case it fails fast with [ErrCircuitOpen].
func (cb *CircuitBreaker) Generate(ctx context.Context, messages []ai.Message, tools []ai.ToolDescription, opts *ai.GenerateOptions) (*ai.GenerateResult, error) {
	if cb.currentState() == stateOpen {
		return nil, fmt.Errorf("%w for provider %q", ErrCircuitOpen, cb.inner.Name())
	}

	result, err := cb.inner.Generate(ctx, messages, tools, opts)
	if err != nil {
		cb.recordFailure()
		return nil, err
	}

	cb.recordSuccess()
	return result, nil
}

// Stream applies the same gating to stream establishment: opening the stream
// counts as the probe, success or failure.
func (cb *CircuitBreaker) Stream(ctx context.Context, messages []ai.Message, tools []ai.ToolDescription, opts *ai.GenerateOptions) (*ai.EventStream, error) {
	if cb.currentState() == stateOpen {
		return nil, fmt.Errorf("%w for provider %q", ErrCircuitOpen, cb.inner.Name())
	}

	stream, err := openStream(ctx, cb.inner, messages, tools, opts)
	if err != nil {
		cb.recordFailure()
		return nil, err
	}

	cb.recordSuccess()
	return stream, nil
}
