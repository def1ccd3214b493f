package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithMaxAttempts(5), WithBackoff(Fixed(time.Millisecond)))
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("always failing")
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	}, WithMaxAttempts(3), WithBackoff(Fixed(time.Millisecond)))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoRespectsRetryIf(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	}, WithMaxAttempts(5), WithRetryIf(func(err error) bool { return false }))
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-retryable error must stop immediately, got %d calls", calls)
	}
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	}, WithMaxAttempts(10), WithBackoff(Fixed(time.Hour)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancel took effect, got %d", calls)
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := Exponential(100*time.Millisecond, time.Second)
	if got := b.Next(0); got != 100*time.Millisecond {
		t.Errorf("attempt 0: %v", got)
	}
	if got := b.Next(2); got != 400*time.Millisecond {
		t.Errorf("attempt 2: %v", got)
	}
	if got := b.Next(10); got != time.Second {
		t.Errorf("attempt 10 must cap at max: %v", got)
	}
}

func TestFullJitterBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := FullJitter(time.Second)
		if d < 0 || d >= time.Second {
			t.Fatalf("jitter out of bounds: %v", d)
		}
	}
	if FullJitter(0) != 0 {
		t.Error("zero duration must stay zero")
	}
}

func TestIsRetryableError(t *testing.T) {
	if IsRetryableError(nil) {
		t.Error("nil is not retryable")
	}
	if IsRetryableError(context.Canceled) || IsRetryableError(context.DeadlineExceeded) {
		t.Error("context errors are not retryable")
	}
	if !IsRetryableError(errors.New("anything else")) {
		t.Error("ordinary errors are retryable")
	}
}
