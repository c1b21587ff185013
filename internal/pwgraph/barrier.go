package pwgraph

import (
	"context"
	"sync"
)

// Barrier implements the PipeWire-class sync barrier (§4.G "Sync
// barrier"): every operation needing a consistent snapshot issues a
// sync carrying a monotonically increasing pending sequence, and waits
// for the core's done(seq) event to match it. Decoupled here from the
// real pw_main_loop so it can be driven by a fake runLoop in tests.
type Barrier struct {
	mu      sync.Mutex
	pending int
	done    bool
}

// NewBarrier returns a Barrier with no pending sync in flight.
func NewBarrier() *Barrier { return &Barrier{} }

// NextPending issues a new sync request, returning the sequence number
// callers must pass to the core sync call. It resets the done flag.
func (b *Barrier) NextPending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending++
	b.done = false
	return b.pending
}

// Satisfy handles a core done(PW_ID_CORE, seq) event. It reports
// whether seq matched the outstanding pending sequence; a mismatched
// (stale) seq is ignored, matching the reference implementation.
func (b *Barrier) Satisfy(seq int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq != b.pending {
		return false
	}
	b.done = true
	return true
}

func (b *Barrier) isDone() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Wait re-enters runLoop (one iteration of the real event loop, which
// may call Satisfy as a side effect of delivering the done event) until
// done is set or ctx is cancelled. Ctx cancellation surfaces the
// context's error so callers can distinguish a genuine timeout from a
// satisfied barrier.
func (b *Barrier) Wait(ctx context.Context, runLoop func()) error {
	for {
		if b.isDone() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		runLoop()
	}
}
