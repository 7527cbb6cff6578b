package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_BasicTransitions(t *testing.T) {
	b := NewCircuitBreaker(2, 5*time.Second, 1)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}

	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("expected half-open state, got %s", state)
	}

	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful half-open probe, got %s", state)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(1, 5*time.Second, 1)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}

	b.RecordFailure()
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("a failed probe must reopen the circuit, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpenBoundsProbes(t *testing.T) {
	b := NewCircuitBreaker(1, 5*time.Second, 1)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(6 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected the first probe to pass, got %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("a second concurrent probe must be rejected, got %v", err)
	}
}
