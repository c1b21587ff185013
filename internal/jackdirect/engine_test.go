package jackdirect

import (
	"bytes"
	"testing"

	"github.com/leandrodaf/midigo/pkg/apperr"
	"github.com/leandrodaf/midigo/pkg/output"
)

// frameSink records every write along with the frame it targeted.
type frameSink struct {
	writes []struct {
		frame int
		data  []byte
	}
	failAt int // -1 disables
}

func (s *frameSink) Write(frame int, data []byte) error {
	if s.failAt >= 0 && len(s.writes) == s.failAt {
		return apperr.New(apperr.IoError)
	}
	cp := append([]byte(nil), data...)
	s.writes = append(s.writes, struct {
		frame int
		data  []byte
	}{frame, cp})
	return nil
}

func TestSendWritesFrameZero(t *testing.T) {
	e := New(output.TimestampNone)
	sink := &frameSink{failAt: -1}

	if err := e.Send(sink, []byte{0x90, 0x3C, 0x7F}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(sink.writes) != 1 {
		t.Fatalf("expected one write, got %d", len(sink.writes))
	}
	if sink.writes[0].frame != 0 {
		t.Fatalf("expected frame 0, got %d", sink.writes[0].frame)
	}
	if !bytes.Equal(sink.writes[0].data, []byte{0x90, 0x3C, 0x7F}) {
		t.Fatal("payload mismatch")
	}
}

// TestConvertTimestampAudioFrameVerbatim: under TimestampAudioFrame mode,
// ConvertTimestamp passes the caller's value through unchanged (§4.F).
func TestConvertTimestampAudioFrameVerbatim(t *testing.T) {
	e := New(output.TimestampAudioFrame)
	if got := e.ConvertTimestamp(128); got != 128 {
		t.Fatalf("ConvertTimestamp = %d, want 128", got)
	}
}

// TestConvertTimestampOtherModesDegenerateToZero covers every mode other
// than TimestampAudioFrame, per the documented degenerate-to-frame-0
// limitation of the direct variant.
func TestConvertTimestampOtherModesDegenerateToZero(t *testing.T) {
	modes := []output.TimestampMode{
		output.TimestampNone,
		output.TimestampAbsolute,
		output.TimestampRelative,
		output.TimestampSystemMonotonic,
	}
	for _, mode := range modes {
		e := New(mode)
		if got := e.ConvertTimestamp(999); got != 0 {
			t.Fatalf("mode %v: ConvertTimestamp = %d, want 0", mode, got)
		}
	}
}

func TestScheduleUsesConvertedFrame(t *testing.T) {
	e := New(output.TimestampAudioFrame)
	sink := &frameSink{failAt: -1}

	if err := e.Schedule(sink, 256, []byte{0x80, 0x3C, 0x40}); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(sink.writes) != 1 || sink.writes[0].frame != 256 {
		t.Fatalf("expected a single write at frame 256, got %+v", sink.writes)
	}
}

func TestSendValidatesMessage(t *testing.T) {
	e := New(output.TimestampNone)
	sink := &frameSink{failAt: -1}

	if code, ok := apperr.CodeOf(e.Send(sink, nil)); !ok || code != apperr.InvalidArgument {
		t.Fatal("expected InvalidArgument for empty message")
	}
	if code, ok := apperr.CodeOf(e.Send(sink, []byte{0x90, 0x3C, 0x7F, 0x00})); !ok || code != apperr.BadMessage {
		t.Fatal("expected BadMessage for overlong channel message")
	}
	if len(sink.writes) != 0 {
		t.Fatal("invalid messages must not reach the sink")
	}
}

func TestSendWrapsSinkFailure(t *testing.T) {
	e := New(output.TimestampNone)
	sink := &frameSink{failAt: 0}

	err := e.Send(sink, []byte{0x90, 0x3C, 0x7F})
	if code, ok := apperr.CodeOf(err); !ok || code != apperr.IoError {
		t.Fatalf("expected IoError, got %v", err)
	}
}
