package corefragment

import (
	"bytes"
	"testing"

	"github.com/leandrodaf/midigo/pkg/apperr"
)

// fakeSender records everything it was asked to send.
type fakeSender struct {
	hasVirtual, hasDestination   bool
	virtualSends, destSends      []Fragment
	failVirtualAt, failDestAt    int // -1 disables
}

func (f *fakeSender) HasVirtualEndpoint() bool { return f.hasVirtual }
func (f *fakeSender) HasDestination() bool     { return f.hasDestination }

func (f *fakeSender) SendToVirtual(fr Fragment) error {
	if f.failVirtualAt >= 0 && len(f.virtualSends) == f.failVirtualAt {
		f.virtualSends = append(f.virtualSends, fr)
		return errFake
	}
	f.virtualSends = append(f.virtualSends, fr)
	return nil
}

func (f *fakeSender) SendToDestination(fr Fragment) error {
	if f.failDestAt >= 0 && len(f.destSends) == f.failDestAt {
		f.destSends = append(f.destSends, fr)
		return errFake
	}
	f.destSends = append(f.destSends, fr)
	return nil
}

var errFake = apperr.New(apperr.IoError)

// TestFragmentationAtomicity is property 7, §8: for any SysEx up to
// 10*65535 bytes, all fragments share one timestamp and concatenate back
// to the original payload.
func TestFragmentationAtomicity(t *testing.T) {
	sizes := []int{1, 3, 65535, 65536, 130000, 10 * 65535}
	for _, size := range sizes {
		payload := make([]byte, size)
		payload[0] = 0xF0
		for i := 1; i < size; i++ {
			payload[i] = byte(i)
		}

		fragments := Split(payload, 42)
		var reassembled []byte
		for _, fr := range fragments {
			if fr.Timestamp != 42 {
				t.Fatalf("size %d: fragment timestamp = %d, want 42 for all fragments", size, fr.Timestamp)
			}
			reassembled = append(reassembled, fr.Payload...)
		}
		if !bytes.Equal(reassembled, payload) {
			t.Fatalf("size %d: reassembled payload does not match input", size)
		}
	}
}

// TestScenarioS4SysExFragmentation: 130000-byte SysEx -> 2 fragments of
// 65535 and 64465 bytes sharing one timestamp.
func TestScenarioS4SysExFragmentation(t *testing.T) {
	payload := make([]byte, 130000)
	payload[0] = 0xF0
	fragments := Split(payload, 7)
	if len(fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(fragments))
	}
	if len(fragments[0].Payload) != 65535 || len(fragments[1].Payload) != 64465 {
		t.Fatalf("unexpected fragment sizes: %d, %d", len(fragments[0].Payload), len(fragments[1].Payload))
	}
	if fragments[0].Timestamp != fragments[1].Timestamp {
		t.Fatalf("fragments do not share a timestamp")
	}
}

func TestSendValidation(t *testing.T) {
	sender := &fakeSender{hasVirtual: true, failVirtualAt: -1, failDestAt: -1}

	if code, ok := apperr.CodeOf(Send(sender, nil, 0)); !ok || code != apperr.InvalidArgument {
		t.Fatalf("expected InvalidArgument for empty message")
	}
	if code, ok := apperr.CodeOf(Send(sender, []byte{0x90, 0x3C, 0x7F, 0x00}, 0)); !ok || code != apperr.BadMessage {
		t.Fatalf("expected BadMessage for overlong channel message")
	}
}

func TestSendDualPath(t *testing.T) {
	sender := &fakeSender{hasVirtual: true, hasDestination: true, failVirtualAt: -1, failDestAt: -1}
	err := Send(sender, []byte{0x90, 0x3C, 0x7F}, 1)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(sender.virtualSends) != 1 || len(sender.destSends) != 1 {
		t.Fatalf("expected exactly one send down each active path")
	}
}

func TestSendAbortsOnFirstPathFailure(t *testing.T) {
	payload := make([]byte, 130000)
	payload[0] = 0xF0
	sender := &fakeSender{hasVirtual: true, hasDestination: true, failVirtualAt: 1, failDestAt: -1}

	err := Send(sender, payload, 1)
	if err == nil {
		t.Fatal("expected Send to fail when the virtual path fails on the second fragment")
	}
	if code, ok := apperr.CodeOf(err); !ok || code != apperr.IoError {
		t.Fatalf("expected IoError, got %v", err)
	}
	// Only the first fragment should have reached the destination path
	// since the second fragment's virtual send aborted before it.
	if len(sender.destSends) != 1 {
		t.Fatalf("expected destination path to have sent exactly 1 fragment before abort, got %d", len(sender.destSends))
	}
}
