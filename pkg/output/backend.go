package output

import (
	"github.com/leandrodaf/midigo/pkg/apperr"
	"github.com/leandrodaf/midigo/pkg/port"
)

// API tags which concrete backend an output object is using (§4.D
// current_api).
type API int

const (
	APICoreMIDI API = iota
	APIJACK
	APIPipeWire
)

func (a API) String() string {
	switch a {
	case APICoreMIDI:
		return "CoreMIDI"
	case APIJACK:
		return "JACK"
	case APIPipeWire:
		return "PipeWire"
	default:
		return "Unknown"
	}
}

// Backend is the uniform lifecycle contract every output transport
// implements (§4.D).
type Backend interface {
	// OpenPort connects to an existing remote endpoint previously
	// returned by enumeration. Idempotent.
	OpenPort(d port.Descriptor, localName string) error
	// OpenVirtualPort creates a locally-visible endpoint that peers can
	// connect to.
	OpenVirtualPort(localName string) error
	// ClosePort disconnects. Calling it twice is not an error.
	ClosePort() error
	// SendMessage delivers bytes to the connected peer(s) in call order.
	SendMessage(b []byte) error
	// ScheduleMessage delivers bytes at ts in the configured timestamp
	// domain, best-effort.
	ScheduleMessage(ts int64, b []byte) error
	// SetPortName renames the local endpoint.
	SetPortName(name string) error
	// CurrentAPI identifies which backend this is.
	CurrentAPI() API
}

// ValidateSendMessage implements the two validation rules every backend
// must enforce before attempting delivery (§4.D): an empty message is
// always InvalidArgument, and a non-SysEx message longer than 3 bytes is
// always BadMessage, since a MIDI channel message cannot exceed three
// bytes and only SysEx may be long.
func ValidateSendMessage(b []byte) error {
	if len(b) == 0 {
		return apperr.New(apperr.InvalidArgument)
	}
	if b[0] != 0xF0 && len(b) > 3 {
		return apperr.New(apperr.BadMessage)
	}
	return nil
}

// Constructor builds a Backend from a fully-applied Config.
type Constructor func(cfg *Config) (Backend, error)

// Enumerator lists the ports currently visible to a backend kind.
type Enumerator func(cfg *Config) ([]port.Descriptor, error)

var (
	constructors = map[API]Constructor{}
	enumerators  = map[API]Enumerator{}
)

// Register installs a backend's constructor and enumerator under api.
// Backend packages call this from an init() func gated by their build
// tag, the same way the teacher's clientInitializers map is populated
// per-GOOS — here keyed by API instead of runtime.GOOS (§9 "dynamic
// dispatch").
func Register(api API, ctor Constructor, enum Enumerator) {
	constructors[api] = ctor
	enumerators[api] = enum
}

// Open constructs a Backend for api using opts. It returns
// OperationNotSupported if no backend package registered for api was
// imported (e.g. built without the corresponding build tag).
func Open(api API, opts ...Option) (Backend, error) {
	cfg := ApplyOptions(opts...)
	ctor, ok := constructors[api]
	if !ok {
		return nil, apperr.Newf(apperr.OperationNotSupported, "no backend registered for %s", api)
	}
	return ctor(cfg)
}

// Enumerate lists the ports currently visible to api.
func Enumerate(api API, opts ...Option) ([]port.Descriptor, error) {
	cfg := ApplyOptions(opts...)
	enum, ok := enumerators[api]
	if !ok {
		return nil, apperr.Newf(apperr.OperationNotSupported, "no backend registered for %s", api)
	}
	return enum(cfg)
}
