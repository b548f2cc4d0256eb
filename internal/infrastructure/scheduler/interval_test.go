package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartRunsJobImmediately(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Hour)
	ran := make(chan time.Time, 1)

	if err := s.Start(context.Background(), func(ts time.Time) { ran <- ts }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
}

func TestStopHaltsTickerAndIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(5 * time.Millisecond)
	var calls atomic.Int64

	if err := s.Start(context.Background(), func(time.Time) { calls.Add(1) }); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Let at least the immediate run land, then stop.
	time.Sleep(20 * time.Millisecond)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	// A tick already pending at Stop may still fire; let the goroutine drain.
	time.Sleep(20 * time.Millisecond)
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Fatalf("job kept running after Stop: %d -> %d", after, calls.Load())
	}
}

func TestStartAfterStopRestartsAndConcurrentStopIsSafe(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Hour)
	var calls atomic.Int64
	job := func(time.Time) { calls.Add(1) }

	if err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Stop racing a second Start must not panic or wedge the goroutine.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Stop(context.Background())
		_ = s.Start(context.Background(), job)
	}()
	<-done

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("final Stop: %v", err)
	}
	if calls.Load() < 1 {
		t.Fatal("job never ran")
	}
}
