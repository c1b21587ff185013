// Package handshake implements the client-release handshake (§4.C): a
// non-realtime thread that mutates shared state (typically nulling a
// port pointer) needs proof that the realtime callback has observed the
// mutation before it destroys the underlying resource. It is grounded on
// the reference implementation's `semaphore_pair_lock`
// (jack/helpers.hpp): two counting semaphores, "client-ready" and
// "release-ack", both posted at most once per handshake.
package handshake

import "context"

// Barrier is a single-use-per-cycle two-semaphore handshake. The zero
// value is not usable (its channels are nil); construct with New.
type Barrier struct {
	clientReady chan struct{}
	releaseAck  chan struct{}
}

// New returns a ready Barrier.
func New() *Barrier {
	return &Barrier{
		clientReady: make(chan struct{}, 1),
		releaseAck:  make(chan struct{}, 1),
	}
}

// PrepareRelease is called by the producer (non-realtime) thread after it
// has performed the state mutation. It posts "client-ready" and waits for
// "release-ack" from the realtime callback. If ctx is cancelled or
// expires first — e.g. because the client is already known dead and its
// callback will never run again — PrepareRelease returns immediately
// rather than waiting indefinitely, per the spec's cancellation
// requirement.
func (b *Barrier) PrepareRelease(ctx context.Context) error {
	select {
	case b.clientReady <- struct{}{}:
	default:
		// Already posted (should not happen under the "at most one
		// handshake in flight" invariant); treat as already-ready.
	}

	select {
	case <-b.releaseAck:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckClientReleased is called from the realtime callback on every
// cycle. It performs a single non-blocking check (no syscall in the
// common case) and, if a release is pending, acknowledges it. It never
// blocks.
func (b *Barrier) CheckClientReleased() {
	select {
	case <-b.clientReady:
		select {
		case b.releaseAck <- struct{}{}:
		default:
		}
	default:
	}
}
