//go:build jack
// +build jack

package jack

/*
#cgo pkg-config: jack
#include <jack/jack.h>
#include <jack/midiport.h>
*/
import "C"
import "unsafe"

// github.com/hairlesshobo/go-jack's Port wrapper only exposes
// GetBuffer(nframes) []AudioSample, sized for the audio-only surface
// fox-recorder exercises; it has no MIDI-buffer equivalent. The
// JACK C API represents both kinds of port with the same jack_port_t,
// so the raw pointer go-jack's Port wraps is reinterpreted here as a
// *C.jack_port_t, in the direct-cgo style of esqilin-gojack's MIDI
// binding, to reach jack_port_get_buffer and
// jack_midi_clear_buffer/_event_reserve/_event_write.
type rawPort unsafe.Pointer

func midiPortBuffer(raw rawPort, nframes uint32) unsafe.Pointer {
	return C.jack_port_get_buffer((*C.jack_port_t)(raw), C.jack_nframes_t(nframes))
}

func midiClearBuffer(buf unsafe.Pointer) {
	C.jack_midi_clear_buffer(buf)
}

// midiEventReserve reserves size bytes at frame within buf, returning a
// Go slice over the reserved memory, or nil if the cycle's MIDI buffer
// has no room left (§4.B "if it fails... discard").
func midiEventReserve(buf unsafe.Pointer, frame uint32, size int) []byte {
	if size <= 0 {
		return nil
	}
	ptr := C.jack_midi_event_reserve(buf, C.jack_nframes_t(frame), C.size_t(size))
	if ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), size)
}

// midiEventWrite is the direct variant's single-shot write: clear-then-
// write is not required since a fresh cycle buffer is assumed cleared
// by the queued variant's own clear call; direct callers own the cycle.
func midiEventWrite(buf unsafe.Pointer, frame uint32, data []byte) bool {
	if len(data) == 0 {
		return true
	}
	status := C.jack_midi_event_write(
		buf,
		C.jack_nframes_t(frame),
		(*C.jack_midi_data_t)(unsafe.Pointer(&data[0])),
		C.size_t(len(data)),
	)
	return status == 0
}
