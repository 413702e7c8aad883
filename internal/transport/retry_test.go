package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type flakyError struct {
	retryable bool
}

func (e *flakyError) Error() string   { return "flaky" }
func (e *flakyError) Retryable() bool { return e.retryable }

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), zap.NewNop(), fastPolicy(), "op", func(context.Context) error {
		calls++
		return &flakyError{retryable: true}
	})

	if err == nil {
		t.Fatalf("expected error after exhaustion")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), zap.NewNop(), fastPolicy(), "op", func(context.Context) error {
		calls++
		return &flakyError{retryable: false}
	})

	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), zap.NewNop(), fastPolicy(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := Policy{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}
	err := Retry(ctx, zap.NewNop(), policy, "op", func(context.Context) error {
		return errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffCappedAtMaxDelay(t *testing.T) {
	p := Policy{MaxAttempts: 10, InitialDelay: time.Second, MaxDelay: 5 * time.Second}

	expectations := map[int]time.Duration{
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		4: 5 * time.Second,
		9: 5 * time.Second,
	}

	for attempt, want := range expectations {
		if got := p.Backoff(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}
