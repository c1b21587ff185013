//go:build darwin
// +build darwin

// Package coremidi wires internal/corefragment's packet-list
// fragmentation to github.com/youpy/go-coremidi, the teacher's own
// CoreMIDI dependency, generalized from the teacher's input-capture
// client_darwin.go to an output client per the CoreMIDI-class backend
// (§4.E).
package coremidi

import (
	"sync"

	"github.com/youpy/go-coremidi"
	"go.uber.org/zap"

	"github.com/leandrodaf/midigo/internal/corefragment"
	"github.com/leandrodaf/midigo/internal/midigolog"
	"github.com/leandrodaf/midigo/pkg/apperr"
	"github.com/leandrodaf/midigo/pkg/output"
	"github.com/leandrodaf/midigo/pkg/port"
)

func init() {
	output.Register(output.APICoreMIDI, newBackend, enumerate)
}

// backend implements output.Backend on top of a CoreMIDI client.
type backend struct {
	logger midigolog.Logger

	mu          sync.Mutex
	client      coremidi.Client
	selfCreated bool // whether this backend owns and must dispose client

	outPort     coremidi.OutputPort
	outPortOpen bool
	destination coremidi.Destination
	destBound   bool

	virtual     *virtualSource
	virtualName string
}

func newBackend(cfg *output.Config) (output.Backend, error) {
	logger := cfg.Logger()

	if existing, ok := cfg.CoreMIDI.Client.(coremidi.Client); ok {
		logger.Info("reusing externally supplied CoreMIDI client")
		return &backend{logger: logger, client: existing, selfCreated: false}, nil
	}

	client, err := coremidi.NewClient(cfg.ClientName)
	if err != nil {
		return nil, apperr.Newf(apperr.IoError, "creating CoreMIDI client: %v", err)
	}
	logger.Info("CoreMIDI client created")
	return &backend{logger: logger, client: client, selfCreated: true}, nil
}

func enumerate(cfg *output.Config) ([]port.Descriptor, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, apperr.Newf(apperr.IoError, "listing CoreMIDI destinations: %v", err)
	}
	descriptors := make([]port.Descriptor, len(destinations))
	for i, dest := range destinations {
		entity := dest.Entity()
		descriptors[i] = port.Descriptor{
			Client:       0, // all destinations share the process-wide MIDI server, not a midigo client
			Port:         uint32(i),
			DeviceName:   entity.Name(),
			PortName:     dest.Name(),
			DisplayName:  dest.Name(),
			Manufacturer: entity.Manufacturer(),
		}
	}
	return descriptors, nil
}

// OpenPort resolves d against the live destination list by linear search
// (port.Find), then creates an output port bound to it (§4.E).
func (b *backend) OpenPort(d port.Descriptor, localName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return apperr.Newf(apperr.IoError, "listing CoreMIDI destinations: %v", err)
	}
	current := make([]port.Descriptor, len(destinations))
	for i, dest := range destinations {
		entity := dest.Entity()
		current[i] = port.Descriptor{Port: uint32(i), PortName: dest.Name(), DisplayName: dest.Name(), DeviceName: entity.Name()}
	}
	idx := port.Find(current, d)
	if idx < 0 {
		return apperr.New(apperr.InvalidArgument)
	}

	if !b.outPortOpen {
		outPort, err := coremidi.NewOutputPort(b.client, localName)
		if err != nil {
			return apperr.Newf(apperr.IoError, "creating CoreMIDI output port: %v", err)
		}
		b.outPort = outPort
		b.outPortOpen = true
	}
	b.destination = destinations[idx]
	b.destBound = true
	b.logger.Info("CoreMIDI destination bound", zap.String("destination", d.PortName))
	return nil
}

// OpenVirtualPort creates a source endpoint peers can subscribe to.
// go-coremidi does not expose MIDISourceCreate, so virtual_darwin.go adds a
// small direct cgo shim for it, in the style of a raw CoreMIDI.framework
// binding rather than a stdlib substitute.
func (b *backend) OpenVirtualPort(localName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.virtual != nil {
		return nil
	}
	v, err := newVirtualSource(b.client, localName)
	if err != nil {
		return apperr.Newf(apperr.IoError, "creating CoreMIDI virtual source: %v", err)
	}
	b.virtual = v
	b.virtualName = localName
	return nil
}

// ClosePort disposes the virtual endpoint (if any) and unbinds the
// destination. It does not dispose the CoreMIDI client, whether this
// backend created it or it was supplied externally. Idempotent.
func (b *backend) ClosePort() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.virtual != nil {
		b.virtual.dispose()
		b.virtual = nil
	}
	b.destBound = false
	b.outPortOpen = false

	// go-coremidi's Client carries no Dispose method (the teacher's own
	// client_darwin.go never disposes its client either, relying on
	// MIDIClientDispose running at process exit); selfCreated is kept so
	// a future library version's disposal hook has somewhere to slot in.
	b.selfCreated = false
	return nil
}

// sendAdapter implements internal/corefragment.Sender against this
// backend's bound destination and/or virtual endpoint.
type sendAdapter struct{ b *backend }

func (s sendAdapter) HasVirtualEndpoint() bool { return s.b.virtual != nil }
func (s sendAdapter) HasDestination() bool     { return s.b.destBound }

func (s sendAdapter) SendToVirtual(fr corefragment.Fragment) error {
	return s.b.virtual.send(fr.Timestamp, fr.Payload)
}

func (s sendAdapter) SendToDestination(fr corefragment.Fragment) error {
	packet := coremidi.Packet{Data: fr.Payload}
	return s.b.outPort.Send(s.b.destination, packet)
}

// SendMessage fragments and sends b, tagged with the current host time,
// down every active path (§4.E).
func (b *backend) SendMessage(msg []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return corefragment.Send(sendAdapter{b}, msg, corefragment.HostTimeNow())
}

// ScheduleMessage fragments and sends b tagged with ts instead of the
// current time; CoreMIDI packets natively carry a host-time timestamp,
// so "scheduling" here simply means choosing which instant that is.
func (b *backend) ScheduleMessage(ts int64, msg []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return corefragment.Send(sendAdapter{b}, msg, uint64(ts))
}

// SetPortName renames the virtual endpoint, the only locally-visible
// name a peer can observe. There is nothing to rename if no virtual
// endpoint was created.
func (b *backend) SetPortName(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.virtual == nil {
		return apperr.New(apperr.OperationNotSupported)
	}
	if err := b.virtual.setName(name); err != nil {
		return apperr.Newf(apperr.IoError, "renaming CoreMIDI virtual source: %v", err)
	}
	b.virtualName = name
	return nil
}

func (b *backend) CurrentAPI() output.API { return output.APICoreMIDI }
