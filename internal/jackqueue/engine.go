// Package jackqueue implements the JACK-class queued output variant's
// realtime-safe core (§4.F): a Ring Queue fed by Send, drained every
// process cycle by Process, and a three-step close sequence built on the
// Client-Release Handshake so a port is never unregistered while the
// realtime callback might still be reading it. It is deliberately free
// of any cgo/JACK-client dependency so it can be exercised by tests
// without a running JACK server; backend/jack wires it to a real client.
package jackqueue

import (
	"context"
	"sync/atomic"

	"github.com/leandrodaf/midigo/pkg/apperr"
	"github.com/leandrodaf/midigo/pkg/handshake"
	"github.com/leandrodaf/midigo/pkg/output"
	"github.com/leandrodaf/midigo/pkg/ring"
)

// nextInstanceToken is the process-wide monotonic counter assigning
// tokens to externally hosted process callbacks (§9 "global mutable
// counter").
var nextInstanceToken atomic.Int64

// NextInstanceToken returns a fresh, process-wide unique token to key a
// registration with an externally owned JACKContext.
func NextInstanceToken() int64 { return nextInstanceToken.Add(1) }

// Engine is the realtime-safe queued send/process/close state machine.
// The zero value is not usable; construct with New.
type Engine struct {
	queue   *ring.Queue
	barrier *handshake.Barrier

	live   atomic.Bool // true once a port is registered and open
	closed atomic.Bool // true once ClosePort has fully completed once
}

// New creates an Engine with a ring queue of the given raw capacity.
func New(ringbufferSize int) *Engine {
	return &Engine{
		queue:   ring.New(ringbufferSize),
		barrier: handshake.New(),
	}
}

// Open marks the port live: Send will accept messages and Process will
// drain them.
func (e *Engine) Open() {
	e.closed.Store(false)
	e.live.Store(true)
}

// Send validates and enqueues a message for the next process cycle.
func (e *Engine) Send(b []byte) error {
	if !e.live.Load() {
		return apperr.New(apperr.NotConnected)
	}
	if err := output.ValidateSendMessage(b); err != nil {
		return err
	}
	return e.queue.Write(b)
}

// Process is called from the realtime callback once per cycle. sink
// should clear the host's buffer before this call, matching the
// reference implementation's jack_midi_clear_buffer then queue.read. It
// never allocates, locks, or blocks.
//
// CheckClientReleased runs unconditionally, even once live has gone
// false: ClosePort clears live before starting the handshake (§4.C), so
// a callback still spinning on its current cycle must keep reaching
// this call or the release can never be acknowledged and ClosePort
// blocks until its context expires.
func (e *Engine) Process(sink ring.Sink) {
	if e.live.Load() {
		e.queue.Drain(sink)
	}
	e.barrier.CheckClientReleased()
}

// ClosePort implements the three-step do_close_port sequence (§4.F):
// nullify the port slot, wait for the realtime callback to observe that
// on its current cycle via the handshake, then unregister. Idempotent:
// a second call returns nil without invoking unregister again.
func (e *Engine) ClosePort(ctx context.Context, unregister func() error) error {
	if e.closed.Load() {
		return nil
	}

	// 1. Ensure the next cycle sees the port as gone.
	e.live.Store(false)

	// 2. Prove the realtime callback has observed that before we let the
	// resource be destroyed. If ctx expires first (client already dead,
	// callback will never run again), proceed anyway rather than leak
	// the resource forever.
	_ = e.barrier.PrepareRelease(ctx)

	e.closed.Store(true)

	// 3. Only now is it safe to unregister with the host.
	if unregister != nil {
		return unregister()
	}
	return nil
}
