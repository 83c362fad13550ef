package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Name: "test"}, func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	cfg := RetryConfig{Name: "test", Attempts: 3, BaseDelay: time.Millisecond}
	err := Retry(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errTest
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	cfg := RetryConfig{Name: "test", Attempts: 3, BaseDelay: time.Millisecond}
	err := Retry(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errTest
	})
	if !errors.Is(err, errTest) {
		t.Fatalf("err = %v, want wrapped errTest", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	cfg := RetryConfig{Name: "test", Attempts: 5, BaseDelay: time.Hour}
	err := Retry(ctx, cfg, func(_ context.Context) error {
		calls++
		return errTest
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries after cancellation)", calls)
	}
}
