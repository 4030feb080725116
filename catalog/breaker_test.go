package catalog

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := newBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		if err := b.allow(); err != nil {
			t.Fatalf("allow() = %v before threshold", err)
		}
		b.failure()
	}
	if b.current() != circuitClosed {
		t.Fatalf("state = %v, want closed", b.current())
	}

	b.failure()
	if b.current() != circuitOpen {
		t.Fatalf("state = %v, want open", b.current())
	}
	if err := b.allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("allow() = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := newBreaker(2, time.Minute)
	b.failure()
	b.success()
	b.failure()
	if b.current() != circuitClosed {
		t.Errorf("state = %v, want closed", b.current())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBreaker(1, 10*time.Second)
	b.now = func() time.Time { return now }

	b.failure()
	if err := b.allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("allow() = %v during cooldown", err)
	}

	now = now.Add(11 * time.Second)
	if err := b.allow(); err != nil {
		t.Fatalf("probe refused: %v", err)
	}
	if err := b.allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second request during probe = %v, want ErrCircuitOpen", err)
	}

	b.failure()
	if b.current() != circuitOpen {
		t.Fatalf("failed probe: state = %v, want open", b.current())
	}

	now = now.Add(11 * time.Second)
	if err := b.allow(); err != nil {
		t.Fatalf("probe refused: %v", err)
	}
	b.success()
	if b.current() != circuitClosed {
		t.Errorf("successful probe: state = %v, want closed", b.current())
	}
}

func TestCircuitStateString(t *testing.T) {
	tests := map[circuitState]string{
		circuitClosed:   "closed",
		circuitOpen:     "open",
		circuitHalfOpen: "half-open",
		circuitState(9): "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
