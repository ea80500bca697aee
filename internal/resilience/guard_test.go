package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoRunsOnceWithoutRetry(t *testing.T) {
	g := NewGuard(DefaultConfig(), nil, nil)
	attempts := 0
	errTemp := errors.New("temporary")
	err := g.Do(context.Background(), "op", func(context.Context) error {
		attempts++
		return errTemp
	}, nil)
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestDoOpensCircuitAfterFailures(t *testing.T) {
	var transitions []bool
	g := NewGuard(Config{
		Enabled:          true,
		MinRequests:      2,
		FailureRatio:     0.5,
		OpenTimeout:      50 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	}, nil, func(_ string, open bool) { transitions = append(transitions, open) })

	errDown := errors.New("down")
	fail := func(context.Context) error { return errDown }
	_ = g.Do(context.Background(), "analysis", fail, nil)
	_ = g.Do(context.Background(), "analysis", fail, nil)

	calls := 0
	err := g.Do(context.Background(), "analysis", func(context.Context) error {
		calls++
		return nil
	}, nil)
	if !IsOpen(err) {
		t.Fatalf("expected open circuit error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("open breaker still called through")
	}
	if len(transitions) != 1 || !transitions[0] {
		t.Fatalf("expected one open transition, got %v", transitions)
	}

	if err := g.Do(context.Background(), "upload_url", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("breakers must be per operation, got %v", err)
	}
}

func TestUncountableErrorsDoNotTrip(t *testing.T) {
	g := NewGuard(Config{Enabled: true, MinRequests: 1, FailureRatio: 0.1}, nil, nil)
	errClient := errors.New("400")
	for i := 0; i < 5; i++ {
		_ = g.Do(context.Background(), "op", func(context.Context) error { return errClient },
			func(err error) bool { return !errors.Is(err, errClient) })
	}
	if err := g.Do(context.Background(), "op", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("client errors tripped the breaker: %v", err)
	}
}

func TestNilAndDisabledGuardRunDirectly(t *testing.T) {
	var g *Guard
	ran := false
	if err := g.Do(context.Background(), "op", func(context.Context) error { ran = true; return nil }, nil); err != nil || !ran {
		t.Fatalf("nil guard: ran=%v err=%v", ran, err)
	}

	disabled := NewGuard(Config{}, nil, nil)
	for i := 0; i < 20; i++ {
		_ = disabled.Do(context.Background(), "op", func(context.Context) error { return errors.New("x") }, nil)
	}
	if err := disabled.Do(context.Background(), "op", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("disabled guard should never open, got %v", err)
	}
}
