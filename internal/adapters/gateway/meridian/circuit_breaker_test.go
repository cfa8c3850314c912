package meridian

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	config := DefaultCircuitBreakerConfig()

	if config.MaxFailures != 5 {
		t.Errorf("expected MaxFailures=5, got %d", config.MaxFailures)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("expected Timeout=30s, got %v", config.Timeout)
	}
	if config.MaxRequestsHalfOpen != 1 {
		t.Errorf("expected MaxRequestsHalfOpen=1, got %d", config.MaxRequestsHalfOpen)
	}
}

func TestCircuitBreaker_InitialState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	if cb.State() != StateClosed {
		t.Errorf("expected initial state Closed, got %v", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("expected 0 failures, got %d", cb.Failures())
	}
}

func TestCircuitBreaker_SuccessfulCalls(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	for i := 0; i < 10; i++ {
		err := cb.Call(func() error { return nil })
		if err != nil {
			t.Errorf("call %d failed: %v", i, err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("expected state Closed after successes, got %v", cb.State())
	}
	if cb.Successes() != 10 {
		t.Errorf("expected 10 successes, got %d", cb.Successes())
	}
}

func TestCircuitBreaker_TransitionToOpen(t *testing.T) {
	config := CircuitBreakerConfig{
		MaxFailures:         3,
		Timeout:             100 * time.Millisecond,
		MaxRequestsHalfOpen: 1,
	}
	cb := NewCircuitBreaker(config)
	testErr := errors.New("gateway unavailable")

	for i := 0; i < 3; i++ {
		err := cb.Call(func() error { return testErr })
		if !errors.Is(err, testErr) {
			t.Errorf("call %d: expected test error, got %v", i, err)
		}
	}

	if cb.State() != StateOpen {
		t.Errorf("expected state Open after %d failures, got %v", config.MaxFailures, cb.State())
	}

	// Open circuit rejects immediately without invoking the function
	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("function should not be called while circuit is open")
	}
}

func TestCircuitBreaker_TransitionToHalfOpen(t *testing.T) {
	config := CircuitBreakerConfig{
		MaxFailures:         1,
		Timeout:             50 * time.Millisecond,
		MaxRequestsHalfOpen: 1,
	}
	cb := NewCircuitBreaker(config)

	cb.Call(func() error { return errors.New("fail") })
	if cb.State() != StateOpen {
		t.Fatalf("expected state Open, got %v", cb.State())
	}

	time.Sleep(60 * time.Millisecond)

	// First call after the timeout probes the service; success closes the circuit
	err := cb.Call(func() error { return nil })
	if err != nil {
		t.Errorf("expected probe call to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected state Closed after successful probe, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	config := CircuitBreakerConfig{
		MaxFailures:         1,
		Timeout:             50 * time.Millisecond,
		MaxRequestsHalfOpen: 1,
	}
	cb := NewCircuitBreaker(config)

	cb.Call(func() error { return errors.New("fail") })
	time.Sleep(60 * time.Millisecond)

	cb.Call(func() error { return errors.New("still failing") })
	if cb.State() != StateOpen {
		t.Errorf("expected state Open after half-open failure, got %v", cb.State())
	}
}

func TestCircuitBreaker_MaxRequestsHalfOpen(t *testing.T) {
	config := CircuitBreakerConfig{
		MaxFailures:         1,
		Timeout:             50 * time.Millisecond,
		MaxRequestsHalfOpen: 1,
	}
	cb := NewCircuitBreaker(config)

	cb.Call(func() error { return errors.New("fail") })
	time.Sleep(60 * time.Millisecond)

	// Admit the single half-open probe without completing it
	if err := cb.beforeCall(); err != nil {
		t.Fatalf("expected probe to be admitted, got %v", err)
	}

	err := cb.Call(func() error { return nil })
	if !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("expected ErrTooManyRequests, got %v", err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	config := CircuitBreakerConfig{
		MaxFailures:         1,
		Timeout:             time.Minute,
		MaxRequestsHalfOpen: 1,
	}
	cb := NewCircuitBreaker(config)

	cb.Call(func() error { return errors.New("fail") })
	if cb.State() != StateOpen {
		t.Fatalf("expected state Open, got %v", cb.State())
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("expected state Closed after reset, got %v", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("expected 0 failures after reset, got %d", cb.Failures())
	}
}

func TestCircuitBreaker_StateString(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestCircuitBreaker_ConcurrentCalls(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.Call(func() error { return nil })
		}()
	}
	wg.Wait()

	if cb.State() != StateClosed {
		t.Errorf("expected state Closed, got %v", cb.State())
	}
	if cb.Successes() != 50 {
		t.Errorf("expected 50 successes, got %d", cb.Successes())
	}
}

func TestCircuitBreaker_FailureCounterResetOnSuccess(t *testing.T) {
	config := CircuitBreakerConfig{
		MaxFailures:         3,
		Timeout:             time.Minute,
		MaxRequestsHalfOpen: 1,
	}
	cb := NewCircuitBreaker(config)

	cb.Call(func() error { return errors.New("fail") })
	cb.Call(func() error { return errors.New("fail") })
	cb.Call(func() error { return nil })

	if cb.Failures() != 0 {
		t.Errorf("expected failure counter reset after success, got %d", cb.Failures())
	}
	if cb.State() != StateClosed {
		t.Errorf("expected state Closed, got %v", cb.State())
	}
}
