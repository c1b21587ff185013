// Package jackdirect implements the JACK-class direct output variant's
// frame/timestamp mapping (§4.F): SendMessage writes at frame 0 of the
// currently active cycle's buffer, and ScheduleMessage writes at a
// frame derived from the configured timestamp mode. Like jackqueue, it
// is kept free of any cgo/JACK dependency for testability; backend/jack
// wires it to the real per-cycle buffer.
package jackdirect

import (
	"github.com/leandrodaf/midigo/pkg/apperr"
	"github.com/leandrodaf/midigo/pkg/output"
)

// Sink is the host's currently-active cycle output buffer. Write must
// place data at the given frame offset within the cycle.
type Sink interface {
	Write(frame int, data []byte) error
}

// Engine is the direct variant's realtime-facing state. The caller
// (backend/jack) is responsible for ensuring SendMessage/ScheduleMessage
// run on a thread synchronised with the process cycle; outside that,
// behaviour is undefined per the spec.
type Engine struct {
	mode output.TimestampMode
}

// New creates an Engine interpreting ScheduleMessage timestamps under mode.
func New(mode output.TimestampMode) *Engine {
	return &Engine{mode: mode}
}

// ConvertTimestamp maps a caller-supplied timestamp to a frame offset
// within the cycle. Only TimestampAudioFrame is honoured verbatim; every
// other mode degenerates to frame 0, a documented limitation of the
// direct variant (§4.F).
func (e *Engine) ConvertTimestamp(ts int64) int {
	if e.mode == output.TimestampAudioFrame {
		return int(ts)
	}
	return 0
}

// Send validates and writes b at frame 0 of sink.
func (e *Engine) Send(sink Sink, b []byte) error {
	if err := output.ValidateSendMessage(b); err != nil {
		return err
	}
	if err := sink.Write(0, b); err != nil {
		return apperr.Newf(apperr.IoError, "direct write: %v", err)
	}
	return nil
}

// Schedule validates and writes b at ConvertTimestamp(ts).
func (e *Engine) Schedule(sink Sink, ts int64, b []byte) error {
	if err := output.ValidateSendMessage(b); err != nil {
		return err
	}
	if err := sink.Write(e.ConvertTimestamp(ts), b); err != nil {
		return apperr.Newf(apperr.IoError, "direct scheduled write: %v", err)
	}
	return nil
}
