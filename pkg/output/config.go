// Package output defines the uniform output-port lifecycle contract
// every backend implements (§4.D), the configuration surface backends
// read from (§3, §6), and the free enumeration/open dispatch functions
// that pick a concrete backend by API tag (§9 "dynamic dispatch").
package output

import "github.com/leandrodaf/midigo/internal/midigolog"

// TimestampMode selects the domain that ScheduleMessage's ts argument is
// interpreted in.
type TimestampMode int

const (
	// TimestampNone means the backend does not interpret timestamps at all.
	TimestampNone TimestampMode = iota
	// TimestampAudioFrame means ts is a frame offset within the current
	// realtime cycle.
	TimestampAudioFrame
	// TimestampAbsolute means ts is an absolute point in the backend's clock.
	TimestampAbsolute
	// TimestampRelative means ts is relative to "now".
	TimestampRelative
	// TimestampSystemMonotonic means ts is drawn from the OS monotonic clock.
	TimestampSystemMonotonic
)

// JACKContext lets a caller host the JACK client itself and hand midigo
// only the process-callback registration hooks, per §3's "externally
// owned context" option. When set, the backend never opens or closes a
// JACK client of its own.
type JACKContext interface {
	SetProcessFunc(token int64, callback func(nframes uint32) int)
	ClearProcessFunc(token int64)
}

// JACKOptions holds JACK-class-specific configuration (§6).
type JACKOptions struct {
	// Direct bypasses the internal Ring Queue and writes straight into the
	// active cycle's output buffer; the caller must be synchronised with
	// the process cycle.
	Direct bool
	// RingbufferSize sizes the queued variant's internal ring queue.
	RingbufferSize int
	// Context, if set, is an externally owned JACK client; midigo installs
	// a process callback through it instead of opening its own client.
	Context JACKContext
}

// CoreMIDIOptions holds CoreMIDI-class-specific configuration (§6).
type CoreMIDIOptions struct {
	// Client, if set, is an externally owned CoreMIDI client
	// (github.com/youpy/go-coremidi's coremidi.Client). midigo never
	// disposes it. Left untyped here so this package stays buildable on
	// every platform; backend/coremidi type-asserts it.
	Client any
}

// PipeWireOptions holds PipeWire-class-specific configuration (§6).
type PipeWireOptions struct {
	ClientName string
	FilterName string
	// Context/Loop, if set, are an externally owned PipeWire context and
	// main loop. Left untyped for the same reason as CoreMIDIOptions.Client.
	Context any
	Loop    any
}

// Config aggregates the generic options every backend reads plus the
// backend-specific option groups (§3 "Output configuration").
type Config struct {
	ClientName string
	Timestamps TimestampMode
	OnError    func(string)
	OnWarning  func(string)

	JACK     JACKOptions
	CoreMIDI CoreMIDIOptions
	PipeWire PipeWireOptions

	logger midigolog.Logger
}

// Option mutates a Config being built up by functional options.
type Option func(*Config)

// WithClientName sets the common client name used by every backend.
func WithClientName(name string) Option {
	return func(c *Config) { c.ClientName = name }
}

// WithTimestampMode sets the timestamp domain for ScheduleMessage.
func WithTimestampMode(mode TimestampMode) Option {
	return func(c *Config) { c.Timestamps = mode }
}

// WithOnError installs the error sink. Fatal/structural conditions are
// still returned from the failing call; OnError is for out-of-band
// reporting (logging, telemetry) a caller wants alongside that.
func WithOnError(fn func(string)) Option {
	return func(c *Config) { c.OnError = fn }
}

// WithOnWarning installs the warning sink. Warnings (partial fragment
// failures, realtime queue drops) never surface as returned errors; this
// is the only place a caller observes them.
func WithOnWarning(fn func(string)) Option {
	return func(c *Config) { c.OnWarning = fn }
}

// WithJACKOptions sets the JACK-class-specific configuration.
func WithJACKOptions(opts JACKOptions) Option {
	return func(c *Config) { c.JACK = opts }
}

// WithCoreMIDIOptions sets the CoreMIDI-class-specific configuration.
func WithCoreMIDIOptions(opts CoreMIDIOptions) Option {
	return func(c *Config) { c.CoreMIDI = opts }
}

// WithPipeWireOptions sets the PipeWire-class-specific configuration.
func WithPipeWireOptions(opts PipeWireOptions) Option {
	return func(c *Config) { c.PipeWire = opts }
}

const defaultRingbufferSize = 4096

// ApplyOptions builds a Config from opts, filling in defaults the way the
// teacher's applyDefaultOptions fills in ClientOptions.
func ApplyOptions(opts ...Option) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.ClientName == "" {
		cfg.ClientName = "midigo"
	}
	if cfg.JACK.RingbufferSize == 0 {
		cfg.JACK.RingbufferSize = defaultRingbufferSize
	}
	if cfg.PipeWire.ClientName == "" {
		cfg.PipeWire.ClientName = cfg.ClientName
	}
	if cfg.PipeWire.FilterName == "" {
		cfg.PipeWire.FilterName = cfg.ClientName
	}
	if cfg.OnError == nil {
		cfg.OnError = func(string) {}
	}
	if cfg.OnWarning == nil {
		cfg.OnWarning = func(string) {}
	}
	cfg.logger = midigolog.NewZapLogger()

	return cfg
}

// Logger returns the ambient internal logger, for use by backend/*
// packages. It is never part of the public configuration surface.
func (c *Config) Logger() midigolog.Logger {
	if c.logger == nil {
		c.logger = midigolog.NewZapLogger()
	}
	return c.logger
}

// Warn reports a non-fatal condition through the configured warning
// sink, never as a returned error.
func (c *Config) Warn(msg string) {
	if c.OnWarning != nil {
		c.OnWarning(msg)
	}
}

// Error reports a fatal condition's description through the configured
// error sink, alongside (not instead of) the returned error.
func (c *Config) Error(msg string) {
	if c.OnError != nil {
		c.OnError(msg)
	}
}
