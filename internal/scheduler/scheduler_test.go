package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_ImmediateCycleThenInterval(t *testing.T) {
	var cycles atomic.Int32
	s := NewScheduler(func(ctx context.Context) error {
		cycles.Add(1)
		return nil
	}, 20*time.Millisecond, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// One immediate cycle plus at least two ticks within the window.
	if n := cycles.Load(); n < 3 {
		t.Errorf("cycles = %d, want at least 3", n)
	}
}

func TestRun_CycleErrorDoesNotStopLoop(t *testing.T) {
	var cycles atomic.Int32
	s := NewScheduler(func(ctx context.Context) error {
		cycles.Add(1)
		return context.DeadlineExceeded
	}, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if n := cycles.Load(); n < 2 {
		t.Errorf("cycles = %d, want loop to continue past a failing cycle", n)
	}
}

func TestRun_ReturnsNilOnCancel(t *testing.T) {
	s := NewScheduler(func(ctx context.Context) error { return nil }, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
