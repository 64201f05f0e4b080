package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"disputes/internal/resilience"
)

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_Exhausts(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return errors.New("down")
	})
	if err == nil || calls != 3 {
		t.Fatalf("err=%v calls=%d, want error after 3 calls", err, calls)
	}
}

func TestRetryWithBackoff_Permanent(t *testing.T) {
	cause := errors.New("missing column")
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), resilience.Config{MaxRetries: 5}, func() error {
		calls++
		return resilience.Permanent(cause)
	})
	if !errors.Is(err, cause) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := resilience.RetryWithBackoff(ctx, resilience.Config{MaxRetries: 3}, func() error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGuardTripsBreaker(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test")
	fail := func(context.Context) (int, error) { return 0, errors.New("boom") }

	for i := 0; i < 5; i++ {
		_, _ = resilience.Guard(context.Background(), cb, resilience.Config{}, fail)
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", cb.State())
	}

	calls := 0
	_, err := resilience.Guard(context.Background(), cb, resilience.Config{MaxRetries: 3}, func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) || calls != 0 {
		t.Fatalf("err=%v calls=%d, want open-state error without calling through", err, calls)
	}
}

func TestGuardReturnsValue(t *testing.T) {
	cb := resilience.NewCircuitBreaker("ok")
	v, err := resilience.Guard(context.Background(), cb, resilience.Config{}, func(context.Context) (string, error) {
		return "table", nil
	})
	if err != nil || v != "table" {
		t.Fatalf("v=%q err=%v", v, err)
	}
}
