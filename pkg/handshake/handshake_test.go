package handshake

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// TestHandshakeSafety interleaves close with a simulated realtime callback
// that holds a "live reference" (it uses the port only while the shared
// pointer it loads is non-nil). The handshake must guarantee the reference
// is never observed as freed concurrently with the callback using it —
// i.e. the producer's PrepareRelease must not return until the callback
// has run at least once after the mutation.
func TestHandshakeSafety(t *testing.T) {
	b := New()

	var port atomic.Pointer[int]
	resource := 1
	port.Store(&resource)
	var portFreed atomic.Bool
	var sawDanglingAccess atomic.Bool
	stop := make(chan struct{})
	cycleDone := make(chan struct{})

	go func() {
		defer close(cycleDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if p := port.Load(); p != nil && portFreed.Load() {
				sawDanglingAccess.Store(true)
			}
			b.CheckClientReleased()
			time.Sleep(time.Microsecond)
		}
	}()

	// Producer: mutate, then hand off to the handshake.
	port.Store(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.PrepareRelease(ctx); err != nil {
		t.Fatalf("PrepareRelease: %v", err)
	}
	// Only now is it safe to actually free the resource.
	portFreed.Store(true)

	close(stop)
	<-cycleDone

	if sawDanglingAccess.Load() {
		t.Fatal("realtime callback observed the port as freed before the handshake completed")
	}
}

func TestPrepareReleaseCancelsWhenCallbackIsDead(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// No one ever calls CheckClientReleased: simulates a disconnected
	// client whose callback will never run again.
	err := b.PrepareRelease(ctx)
	if err == nil {
		t.Fatal("expected PrepareRelease to return once the context expired, not wait indefinitely")
	}
}

func TestCheckClientReleasedIsNonBlockingNoOp(t *testing.T) {
	b := New()
	// No PrepareRelease in flight: CheckClientReleased must return
	// immediately without posting a stray release-ack.
	done := make(chan struct{})
	go func() {
		b.CheckClientReleased()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CheckClientReleased blocked with no handshake in flight")
	}
	select {
	case <-b.releaseAck:
		t.Fatal("CheckClientReleased posted a release-ack with no handshake in flight")
	default:
	}
}
