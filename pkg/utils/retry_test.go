package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	want := errors.New("still failing")
	err := Retry(context.Background(), fastRetry(4), func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	want := errors.New("bad request")
	err := Retry(context.Background(), fastRetry(5), func() error {
		calls++
		return Permanent(want)
	})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastRetry(3)
	cfg.InitialDelay = time.Second
	err := Retry(ctx, cfg, func() error { return errors.New("transient") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRetryWithResult(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), fastRetry(3), func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("got %d, %v; want 42, nil", got, err)
	}
}

func TestCalculateBackoff(t *testing.T) {
	if d := CalculateBackoff(0, 100*time.Millisecond, time.Second, 2); d != 100*time.Millisecond {
		t.Errorf("attempt 0 = %v", d)
	}
	if d := CalculateBackoff(2, 100*time.Millisecond, time.Second, 2); d != 400*time.Millisecond {
		t.Errorf("attempt 2 = %v", d)
	}
	if d := CalculateBackoff(10, 100*time.Millisecond, time.Second, 2); d != time.Second {
		t.Errorf("attempt 10 = %v, want capped at 1s", d)
	}
}
