package pwgraph

import (
	"context"
	"testing"
	"time"
)

// TestBarrierWaitsUntilMatchingDone simulates a main loop that ignores
// stale sync replies and only satisfies the barrier on the matching seq.
func TestBarrierWaitsUntilMatchingDone(t *testing.T) {
	b := NewBarrier()
	seq := b.NextPending()

	iterations := 0
	runLoop := func() {
		iterations++
		if iterations == 1 {
			b.Satisfy(seq - 1) // stale reply, must not satisfy
		} else {
			b.Satisfy(seq)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Wait(ctx, runLoop); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if iterations != 2 {
		t.Fatalf("expected exactly 2 loop iterations, got %d", iterations)
	}
}

// TestBarrierContextCancellation ensures a dead loop's Wait does not
// block forever.
func TestBarrierContextCancellation(t *testing.T) {
	b := NewBarrier()
	b.NextPending()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := b.Wait(ctx, func() { time.Sleep(time.Millisecond) })
	if err == nil {
		t.Fatal("expected Wait to return the context's error when never satisfied")
	}
}

// TestBarrierNextPendingResetsDone ensures a fresh sync request is not
// immediately considered done just because a previous one was.
func TestBarrierNextPendingResetsDone(t *testing.T) {
	b := NewBarrier()
	first := b.NextPending()
	b.Satisfy(first)

	second := b.NextPending()
	if b.isDone() {
		t.Fatal("expected a new pending sequence to reset done")
	}
	b.Satisfy(second)
	if !b.isDone() {
		t.Fatal("expected done after satisfying the current pending sequence")
	}
}
