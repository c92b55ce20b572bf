package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Strob0t/taskboard/internal/port/database"
)

func TestDoRetriesUntilSuccess(t *testing.T) {
	r := NewRetry(5, time.Millisecond, 5*time.Millisecond)
	calls := 0

	got, err := Do(context.Background(), r, Transient, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errTest
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	r := NewRetry(3, time.Millisecond, 2*time.Millisecond)
	calls := 0

	_, err := Do(context.Background(), r, Transient, func() (struct{}, error) {
		calls++
		return struct{}{}, errTest
	})
	if !errors.Is(err, errTest) {
		t.Fatalf("expected errTest, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoPermanentErrorStopsImmediately(t *testing.T) {
	r := NewRetry(5, time.Millisecond, 2*time.Millisecond)
	calls := 0

	_, err := Do(context.Background(), r, Transient, func() (struct{}, error) {
		calls++
		return struct{}{}, ErrCircuitOpen
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoSingleAttemptDoesNotRetry(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), NewRetry(1, time.Millisecond, time.Millisecond), Transient, func() (int, error) {
		calls++
		return 0, errTest
	})
	if !errors.Is(err, errTest) {
		t.Fatalf("expected errTest, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errTest, true},
		{"circuit open", ErrCircuitOpen, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"invalid cursor", fmt.Errorf("scan: %w", database.ErrInvalidCursor), false},
		{"corrupt record", fmt.Errorf("%w: decode t1", database.ErrCorruptRecord), false},
		{"rejected", fmt.Errorf("get: %w", database.ErrRejected), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transient(tt.err); got != tt.want {
				t.Fatalf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
