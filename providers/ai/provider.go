package ai

import "context"

// Provider is the single contract every model backend, and every resilience
// wrapper around one, must satisfy. Implementations translate the message
// history plus advertised tools into one model generation.
//
// Generate must honor ctx cancellation and return the error unwrapped or
// wrapped with %w so callers can classify it (see the error types in this
// package). Implementations must be safe for concurrent use: the graph
// executor calls one Provider from many goroutines.
type Provider interface {
	// Name identifies the backend (e.g. "openai", "fallback"). Used in
	// error messages and logs.
	Name() string

	// Model returns the model identifier this provider generates with.
	Model() string

	// Generate produces the next assistant message for the given history.
	// tools may be nil when the caller advertises none; opts may be nil for
	// provider defaults.
	Generate(ctx context.Context, messages []Message, tools []ToolDescription, opts *GenerateOptions) (*GenerateResult, error)
}

// StreamProvider is an optional interface for backends that support
// incremental delivery. Callers detect it via type assertion:
// provider.(StreamProvider). When the assertion fails, callers fall back to
// Generate, optionally wrapped with [SingleEventStream].
type StreamProvider interface {
	Provider

	// Stream starts a generation and returns an EventStream yielding deltas
	// as they arrive. Pre-stream errors (auth, bad request, network) are
	// returned as a normal error; mid-stream errors are yielded through the
	// iterator.
	Stream(ctx context.Context, messages []Message, tools []ToolDescription, opts *GenerateOptions) (*EventStream, error)
}
