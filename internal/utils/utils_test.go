package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForReturnsOnContextCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	orig := sleep
	sleep = func(time.Duration) { <-release }
	defer func() { sleep = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForNonPositiveDuration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Nothing to wait for, so even a canceled context succeeds.
	if err := WaitFor(ctx, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTruncateForLog(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "empty when limit non-positive",
			input:  "hello world",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit untouched",
			input:  "hello",
			limit:  10,
			expect: "hello",
		},
		{
			name:   "truncated with ellipsis",
			input:  "hello world",
			limit:  5,
			expect: "hello...",
		},
		{
			name:   "surrounding whitespace trimmed",
			input:  "  spaced  ",
			limit:  5,
			expect: "space...",
		},
		{
			name:   "multibyte runes counted as one",
			input:  "héllo wörld",
			limit:  5,
			expect: "héllo...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
