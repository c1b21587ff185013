//go:build jack
// +build jack

// Package jack wires internal/jackqueue and internal/jackdirect to a
// real JACK client, built on github.com/hairlesshobo/go-jack for client
// and port lifecycle (§4.F) the way audio/server.go does, plus the raw
// MIDI-buffer cgo shim in midi_cgo.go for the operations go-jack's
// audio-only Port surface doesn't reach.
package jack

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	jacklib "github.com/hairlesshobo/go-jack"

	"github.com/leandrodaf/midigo/internal/jackdirect"
	"github.com/leandrodaf/midigo/internal/jackqueue"
	"github.com/leandrodaf/midigo/internal/midigolog"
	"github.com/leandrodaf/midigo/pkg/apperr"
	"github.com/leandrodaf/midigo/pkg/output"
	"github.com/leandrodaf/midigo/pkg/port"
)

func init() {
	output.Register(output.APIJACK, newBackend, enumerate)
}

// systemPortNameLimit mirrors jack_port_name_size()'s conservative
// default; go-jack does not expose the call so the reference
// implementation's own documented constant is used (§4.F "Port
// registration").
const systemPortNameLimit = 256

// backend implements output.Backend over a JACK client, in either the
// queued (ring-buffered) or direct variant per cfg.JACK.Direct.
type backend struct {
	logger midigolog.Logger
	cfg    *output.Config

	client       *jacklib.Client
	externalCtx  output.JACKContext
	instanceTok  int64
	clientActive bool

	portMu  sync.Mutex
	jport   *jacklib.Port
	rawPort rawPort
	portReg atomic.Bool

	queued *jackqueue.Engine
	direct *jackdirect.Engine
}

func newBackend(cfg *output.Config) (output.Backend, error) {
	b := &backend{logger: cfg.Logger(), cfg: cfg}

	if cfg.JACK.Direct {
		b.direct = jackdirect.New(cfg.Timestamps)
	} else {
		b.queued = jackqueue.New(cfg.JACK.RingbufferSize)
	}

	if cfg.JACK.Context != nil {
		b.externalCtx = cfg.JACK.Context
		b.instanceTok = jackqueue.NextInstanceToken()
		b.externalCtx.SetProcessFunc(b.instanceTok, b.process)
		b.clientActive = true
		if b.queued != nil {
			b.queued.Open()
		}
		return b, nil
	}

	client, status := jacklib.ClientOpen(cfg.ClientName, jacklib.NoStartServer)
	if client == nil {
		return nil, apperr.Newf(apperr.IoError, "jack_client_open: %s", jacklib.StrError(status))
	}
	b.client = client

	if code := client.SetProcessCallback(b.process); code != 0 {
		return nil, apperr.Newf(apperr.IoError, "jack_set_process_callback: %s", jacklib.StrError(code))
	}
	if code := client.Activate(); code != 0 {
		return nil, apperr.Newf(apperr.IoError, "jack_activate: %s", jacklib.StrError(code))
	}
	b.clientActive = true
	if b.queued != nil {
		b.queued.Open()
	}
	return b, nil
}

func enumerate(cfg *output.Config) ([]port.Descriptor, error) {
	client, status := jacklib.ClientOpen(cfg.ClientName+"-enum", jacklib.NoStartServer)
	if client == nil {
		return nil, apperr.Newf(apperr.IoError, "jack_client_open: %s", jacklib.StrError(status))
	}
	defer client.Close()

	names := client.GetPorts("", jacklib.DEFAULT_MIDI_TYPE, jacklib.PortIsInput)
	descriptors := make([]port.Descriptor, len(names))
	for i, name := range names {
		descriptors[i] = port.Descriptor{
			Client:      uintptr(unsafe.Pointer(client)),
			Port:        uint32(i),
			PortName:    name,
			DisplayName: name,
			DeviceName:  name,
		}
	}
	return descriptors, nil
}

// registerLocalPort registers a new local MIDI output port, validating
// the combined name length against the system limit (§4.F).
func (b *backend) registerLocalPort(localName string) error {
	if len(b.cfg.ClientName)+len(localName)+2 >= systemPortNameLimit {
		return apperr.New(apperr.InvalidArgument)
	}

	p := b.client.PortRegister(localName, jacklib.DEFAULT_MIDI_TYPE, jacklib.PortIsOutput, 0)
	if p == nil {
		return apperr.New(apperr.IoError)
	}

	b.portMu.Lock()
	b.jport = p
	b.rawPort = rawPort(unsafe.Pointer(p))
	b.portMu.Unlock()
	b.portReg.Store(true)
	return nil
}

// OpenPort registers a local port and connects it to the descriptor's
// named destination.
func (b *backend) OpenPort(d port.Descriptor, localName string) error {
	if err := b.registerLocalPort(localName); err != nil {
		return err
	}
	source := fmt.Sprintf("%s:%s", b.cfg.ClientName, localName)
	if code := b.client.Connect(source, d.PortName); code != 0 {
		return apperr.Newf(apperr.IoError, "jack_connect: %s", jacklib.StrError(code))
	}
	return nil
}

// OpenVirtualPort registers a local port without connecting it; any
// peer may connect to it through the JACK graph, which is JACK's native
// notion of a locally-visible endpoint.
func (b *backend) OpenVirtualPort(localName string) error {
	return b.registerLocalPort(localName)
}

// ClosePort implements the three-step do_close_port sequence (§4.F),
// delegating the realtime-safe portion to the active engine.
func (b *backend) ClosePort() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	unregister := func() error {
		b.portMu.Lock()
		p := b.jport
		b.jport = nil
		b.rawPort = nil
		b.portMu.Unlock()
		if p == nil || b.client == nil {
			return nil
		}
		b.client.PortUnregister(p)
		return nil
	}

	if b.queued != nil {
		if err := b.queued.ClosePort(ctx, unregister); err != nil {
			return err
		}
	} else {
		b.portReg.Store(false)
		if err := unregister(); err != nil {
			return err
		}
	}
	return nil
}

// SendMessage dispatches to the active variant.
func (b *backend) SendMessage(msg []byte) error {
	if b.queued != nil {
		return b.queued.Send(msg)
	}
	return b.direct.Send(directSink{b}, msg)
}

// ScheduleMessage is unsupported in the queued variant (§4.F: "timing
// information would be lost across the queue boundary").
func (b *backend) ScheduleMessage(ts int64, msg []byte) error {
	if b.queued != nil {
		return apperr.New(apperr.OperationNotSupported)
	}
	return b.direct.Schedule(directSink{b}, ts, msg)
}

func (b *backend) SetPortName(name string) error {
	b.portMu.Lock()
	p := b.jport
	b.portMu.Unlock()
	if p == nil {
		return apperr.New(apperr.NotConnected)
	}
	if code := p.SetName(name); code != 0 {
		return apperr.Newf(apperr.IoError, "jack_port_set_name: %s", jacklib.StrError(code))
	}
	return nil
}

func (b *backend) CurrentAPI() output.API { return output.APIJACK }

// process is the JACK process callback (§4.F). It never allocates: the
// queued variant clears the cycle buffer then drains the ring queue
// into it; the direct variant performs no per-cycle work of its own
// since SendMessage/Schedule already wrote straight into the buffer.
func (b *backend) process(nframes uint32) int {
	if !b.portReg.Load() {
		return 0
	}
	b.portMu.Lock()
	raw := b.rawPort
	b.portMu.Unlock()
	if raw == nil {
		return 0
	}

	buf := midiPortBuffer(raw, nframes)
	if b.queued != nil {
		midiClearBuffer(buf)
		b.queued.Process(cycleSink{buf})
	}
	return 0
}

// cycleSink adapts the raw MIDI buffer to ring.Sink for the queued
// variant's drain.
type cycleSink struct{ buf unsafe.Pointer }

func (s cycleSink) Reserve(n int) ([]byte, bool) {
	b := midiEventReserve(s.buf, 0, n)
	return b, b != nil
}

// directSink adapts the backend's current-cycle buffer to
// jackdirect.Sink.
type directSink struct{ b *backend }

func (s directSink) Write(frame int, data []byte) error {
	s.b.portMu.Lock()
	raw := s.b.rawPort
	s.b.portMu.Unlock()
	if raw == nil {
		return apperr.New(apperr.NotConnected)
	}
	// The direct variant requires the caller to be synchronised with the
	// process cycle (§4.F); nframes is not known here, so frame 0 reserve
	// semantics assume the buffer was sized for the cycle already underway.
	buf := midiPortBuffer(raw, 0)
	if !midiEventWrite(buf, uint32(frame), data) {
		return apperr.New(apperr.NoBufferSpace)
	}
	return nil
}
