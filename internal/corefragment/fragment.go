// Package corefragment implements the CoreMIDI-class packet-list
// fragmentation algorithm (§4.E) as a pure, platform-independent
// function, so it can be property-tested without a real CoreMIDI client.
// It is grounded on the reference implementation's
// midi_out_core::send_message: a message longer than 65535 bytes is
// split into 65535-byte chunks, all tagged with a single timestamp
// captured once before fragmentation, each chunk sent down both the
// virtual-endpoint path and the bound-destination path.
package corefragment

import (
	"time"

	"github.com/leandrodaf/midigo/pkg/apperr"
)

// MaxPacketBytes is the largest payload a single packet list carries;
// longer messages are split into chunks of at most this size.
const MaxPacketBytes = 65535

// StackBufferSize is the fixed stack buffer the reference implementation
// sizes packet lists in: the largest fragment plus 16 bytes of list/
// packet header overhead. midigo never allocates more than this per
// send on the CoreMIDI-class path.
const StackBufferSize = MaxPacketBytes + 16

// Fragment is one chunk of an outgoing message, tagged with the shared
// timestamp captured once before fragmentation began.
type Fragment struct {
	Timestamp uint64
	Payload   []byte
}

// Split breaks b into Fragments of at most MaxPacketBytes bytes, all
// sharing one timestamp so a long SysEx is not spread across time
// (property 7, §8). now is the shared capture point for the timestamp;
// callers pass a monotonic host-time reading.
func Split(b []byte, now uint64) []Fragment {
	if len(b) == 0 {
		return nil
	}
	var fragments []Fragment
	remaining := b
	for len(remaining) > 0 {
		n := len(remaining)
		if n > MaxPacketBytes {
			n = MaxPacketBytes
		}
		fragments = append(fragments, Fragment{Timestamp: now, Payload: remaining[:n]})
		remaining = remaining[n:]
	}
	return fragments
}

// HostTimeNow returns the current time as a CoreMIDI-style host
// timestamp (nanoseconds since epoch is a reasonable stand-in for
// MIDITimeStamp on non-Darwin test builds; backend/coremidi substitutes
// the real AudioGetCurrentHostTime reading).
func HostTimeNow() uint64 { return uint64(time.Now().UnixNano()) }

// Sender delivers one fragment's payload down CoreMIDI's two possible
// paths: the virtual endpoint ("received" path, visible to subscribers)
// and the bound destination port. Either, both, or neither may be active
// depending on what the caller has opened.
type Sender interface {
	// HasVirtualEndpoint reports whether SendToVirtual should be called.
	HasVirtualEndpoint() bool
	// HasDestination reports whether SendToDestination should be called.
	HasDestination() bool
	SendToVirtual(fragment Fragment) error
	SendToDestination(fragment Fragment) error
}

// Send implements the fragmentation/dual-path send loop. A failure on
// either path for any fragment aborts further fragments and returns
// IoError, matching the reference implementation.
func Send(sender Sender, b []byte, now uint64) error {
	if err := validate(b); err != nil {
		return err
	}

	for _, fragment := range Split(b, now) {
		if sender.HasVirtualEndpoint() {
			if err := sender.SendToVirtual(fragment); err != nil {
				return apperr.Newf(apperr.IoError, "sending to virtual destinations: %v", err)
			}
		}
		if sender.HasDestination() {
			if err := sender.SendToDestination(fragment); err != nil {
				return apperr.Newf(apperr.IoError, "sending to destination port: %v", err)
			}
		}
	}
	return nil
}

func validate(b []byte) error {
	if len(b) == 0 {
		return apperr.New(apperr.InvalidArgument)
	}
	if b[0] != 0xF0 && len(b) > 3 {
		return apperr.New(apperr.BadMessage)
	}
	return nil
}
