package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leofalp/aigo/providers/ai"
)

func TestResilientComposition(t *testing.T) {
	serverErr := &ai.ProviderError{Provider: "primary", StatusCode: 500, Message: "down"}
	primary := alwaysFailing("primary", serverErr)
	backup := healthy("backup", "from backup")

	composed := Resilient(primary).
		WithFallback(backup).
		WithCircuitBreaker(BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute}).
		WithRetry(fastRetry(1)).
		WithPolicy(OnAnyError()).
		Build()

	result, err := composed.Generate(context.Background(), []ai.Message{ai.User("hi")}, nil, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Message.Text() != "from backup" {
		t.Errorf("text = %q", result.Message.Text())
	}

	// Retry exhausts against the primary before the chain advances:
	// 1 original + 1 retry, with the breaker (threshold 2) opening underneath.
	if primary.calls != 2 {
		t.Errorf("primary called %d times, want 2", primary.calls)
	}
	if backup.calls != 1 {
		t.Errorf("backup called %d times, want 1", backup.calls)
	}
}

func TestResilientBreakerIsPerProvider(t *testing.T) {
	serverErr := &ai.ProviderError{Provider: "primary", StatusCode: 500, Message: "down"}
	primary := alwaysFailing("primary", serverErr)
	backup := healthy("backup", "from backup")

	composed := Resilient(primary).
		WithFallback(backup).
		WithCircuitBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour}).
		Build()

	// First run opens the primary's breaker; the backup serves the request.
	if _, err := composed.Generate(context.Background(), nil, nil, nil); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Second run: the primary fails fast (breaker open) but the backup's
	// own breaker is untouched and still serves.
	result, err := composed.Generate(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result.Message.Text() != "from backup" {
		t.Errorf("text = %q", result.Message.Text())
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1 (second run gated by its breaker)", primary.calls)
	}
	if backup.calls != 2 {
		t.Errorf("backup called %d times, want 2", backup.calls)
	}
}

func TestResilientWithoutFallbacksWrapsPrimaryOnly(t *testing.T) {
	primary := healthy("primary", "direct")

	composed := Resilient(primary).
		WithRetry(fastRetry(1)).
		Build()

	result, err := composed.Generate(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Message.Text() != "direct" {
		t.Errorf("text = %q", result.Message.Text())
	}
	if composed.Name() != "primary" {
		t.Errorf("name = %q, want the wrapped primary's name", composed.Name())
	}
}

func TestResilientOpenBreakerErrorSurfacesWhenPolicyIgnoresIt(t *testing.T) {
	serverErr := &ai.ProviderError{Provider: "primary", StatusCode: 500, Message: "down"}
	primary := alwaysFailing("primary", serverErr)
	backup := healthy("backup", "from backup")

	// Policy only advances on rate limits; a 500 propagates from the chain.
	composed := Resilient(primary).
		WithFallback(backup).
		WithPolicy(OnErrors(KindRateLimit)).
		Build()

	_, err := composed.Generate(context.Background(), nil, nil, nil)
	var pe *ai.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected the primary's server error, got %v", err)
	}
	if backup.calls != 0 {
		t.Errorf("backup called %d times, want 0", backup.calls)
	}
}
