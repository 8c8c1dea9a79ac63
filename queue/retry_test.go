package queue

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestCalculateDelay(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{100, time.Second},
	}

	for _, tt := range tests {
		if got := policy.CalculateDelay(tt.attempt); got != tt.want {
			t.Errorf("CalculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestCalculateDelayWithoutCap(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 30 * time.Second}

	if got := policy.CalculateDelay(2); got != 2*time.Minute {
		t.Errorf("CalculateDelay(2) = %v, want 2m", got)
	}

	prev := time.Duration(0)
	for attempt := 0; attempt <= 40; attempt++ {
		got := policy.CalculateDelay(attempt)
		if got <= 0 || got < prev {
			t.Fatalf("CalculateDelay(%d) = %v, want positive and non-decreasing (prev %v)", attempt, got, prev)
		}
		prev = got
	}
	if got := policy.CalculateDelay(30); got != time.Duration(math.MaxInt64) {
		t.Errorf("CalculateDelay(30) = %v, want max duration", got)
	}
}

func TestShouldRetry(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		err      error
		attempts int
		want     bool
	}{
		{"nil error", context.Background(), nil, 1, false},
		{"generic error", context.Background(), errors.New("timeout"), 1, true},
		{"attempts exhausted", context.Background(), errors.New("timeout"), 3, false},
		{"retryable", context.Background(), NewRetryableError(errors.New("503"), true), 1, true},
		{"not retryable", context.Background(), NewRetryableError(errors.New("400"), false), 1, false},
		{"circuit open", context.Background(), ErrCircuitBreakerOpen, 1, true},
		{"shutting down", cancelled, errors.New("timeout"), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetry(tt.ctx, tt.err, tt.attempts, 3); got != tt.want {
				t.Errorf("ShouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	fail := errors.New("boom")
	ok := func() error { return nil }

	_ = cb.Call(func() error { return fail })
	if cb.State() != CircuitBreakerClosed {
		t.Fatalf("state after 1 failure = %v, want closed", cb.State())
	}
	_ = cb.Call(func() error { return fail })
	if cb.State() != CircuitBreakerOpen {
		t.Fatalf("state after 2 failures = %v, want open", cb.State())
	}

	called := false
	err := cb.Call(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitBreakerOpen) || called {
		t.Fatalf("Call while open = %v (called %v), want ErrCircuitBreakerOpen without call", err, called)
	}

	now = now.Add(time.Minute)
	if err := cb.Call(ok); err != nil {
		t.Fatalf("half-open Call error: %v", err)
	}
	if cb.State() != CircuitBreakerHalfOpen {
		t.Fatalf("state after first probe = %v, want half_open", cb.State())
	}

	_ = cb.Call(ok)
	_ = cb.Call(ok)
	if cb.State() != CircuitBreakerClosed {
		t.Fatalf("state after probes = %v, want closed", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(1, time.Second)
	cb.now = func() time.Time { return now }

	_ = cb.Call(func() error { return errors.New("boom") })
	now = now.Add(time.Second)

	_ = cb.Call(func() error { return errors.New("still broken") })
	if cb.State() != CircuitBreakerOpen {
		t.Errorf("state = %v, want open", cb.State())
	}
}

func TestCircuitBreakerStateText(t *testing.T) {
	text, err := CircuitBreakerHalfOpen.MarshalText()
	if err != nil || string(text) != "half_open" {
		t.Errorf("MarshalText() = %q, %v", text, err)
	}
}
