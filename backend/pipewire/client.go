//go:build pipewire
// +build pipewire

package pipewire

/*
#cgo pkg-config: libpipewire-0.3
#include <pipewire/pipewire.h>
#include <pipewire/filter.h>
#include <stdlib.h>
#include <string.h>

extern void goFilterProcess(void *data, int nframes);

static uint32_t filter_node_id(struct pw_filter *filter) {
	return pw_filter_get_node_id(filter);
}

static void filter_process_trampoline(void *data, struct spa_io_position *position) {
	goFilterProcess(data, (int)position->clock.duration);
}

static struct pw_filter_events make_filter_events() {
	struct pw_filter_events events = { PW_VERSION_FILTER_EVENTS };
	events.process = filter_process_trampoline;
	return events;
}

static struct pw_filter_port_events make_port_events() {
	struct pw_filter_port_events events = {0};
	return events;
}
*/
import "C"

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/leandrodaf/midigo/internal/midigolog"
	"github.com/leandrodaf/midigo/internal/pwgraph"
	"github.com/leandrodaf/midigo/pkg/apperr"
	"github.com/leandrodaf/midigo/pkg/output"
	"github.com/leandrodaf/midigo/pkg/port"
)

func init() {
	output.Register(output.APIPipeWire, newBackend, enumerate)
}

// backend implements output.Backend on a PipeWire filter with one MIDI
// output port (§4.G).
type backend struct {
	cfg    *output.Config
	logger midigolog.Logger
	ctx    *pwContext

	filter *C.struct_pw_filter
	// filterPort is only ever touched through atomic.Load/StorePointer:
	// goFilterProcess runs on PipeWire's realtime data thread and must
	// not take mu (§5's no-lock-on-the-realtime-thread rule, the same
	// one the queued JACK-class variant follows).
	filterPort unsafe.Pointer
	linkProxy  *C.struct_pw_proxy
	nodeID     uint32 // acquired by synchronize_node once the filter connects

	mu sync.Mutex
	// pending holds messages queued for the next process callback. It is
	// swapped, not locked: SendMessage CAS-appends a new slice in,
	// goFilterProcess atomically swaps the whole thing out to nil.
	pending atomic.Pointer[[][]byte]
}

func newBackend(cfg *output.Config) (output.Backend, error) {
	logger := cfg.Logger()

	ctx, err := newContext(cfg.PipeWire.ClientName, logger)
	if err != nil {
		return nil, apperr.Newf(apperr.IoError, "initializing PipeWire context: %v", err)
	}
	go ctx.runLoop()

	cname := C.CString(cfg.PipeWire.FilterName)
	defer C.free(unsafe.Pointer(cname))
	filter := C.pw_filter_new_simple(ctx.loop, cname, nil, nil, nil)
	if filter == nil {
		ctx.stop()
		ctx.close()
		return nil, apperr.New(apperr.IoError)
	}

	b := &backend{cfg: cfg, logger: logger, ctx: ctx, filter: filter}
	backendRegistry.Store(uintptr(unsafe.Pointer(b)), b)

	var hook C.struct_spa_hook
	filterEvents := C.make_filter_events()
	C.pw_filter_add_listener(filter, &hook, &filterEvents, unsafe.Pointer(b))

	return b, nil
}

var backendRegistry sync.Map

func enumerate(cfg *output.Config) ([]port.Descriptor, error) {
	ctx, err := newContext(cfg.PipeWire.ClientName+"-enum", cfg.Logger())
	if err != nil {
		return nil, apperr.Newf(apperr.IoError, "initializing PipeWire context: %v", err)
	}
	defer ctx.close()

	synCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ctx.synchronize(synCtx); err != nil {
		return nil, apperr.Newf(apperr.IoError, "syncing PipeWire registry: %v", err)
	}

	// A midigo output only ever links to another endpoint's MIDI input
	// port, so enumeration reports input ports from both the physical
	// and software MIDI categories (§4.G "global"/"Port-info event").
	var descriptors []port.Descriptor
	for _, cat := range []pwgraph.Category{pwgraph.PhysicalMIDI, pwgraph.SoftwareMIDI} {
		for _, p := range ctx.graph.Ports(cat) {
			if p.Direction != pwgraph.In {
				continue
			}
			descriptors = append(descriptors, port.Descriptor{
				Client:      uintptr(p.NodeID),
				Port:        p.ID,
				DeviceName:  p.Alias,
				PortName:    p.Name,
				DisplayName: p.Name,
			})
		}
	}
	return descriptors, nil
}

func (b *backend) OpenPort(d port.Descriptor, localName string) error {
	if err := b.ensurePort(localName); err != nil {
		return err
	}
	// Linking by target port id via the core's "link-factory" (§4.G
	// "Linking"); the target's registry id is carried in d.Port.
	props := C.pw_properties_new(nil)
	defer C.pw_properties_free(props)
	C.pw_properties_setf(props, C.CString("link.output.port"), C.CString("%d"), C.int(d.Port))

	proxy := C.pw_core_create_object(
		b.ctx.core,
		C.CString("link-factory"),
		C.CString("PipeWire:Interface:Link"),
		C.PW_VERSION_LINK,
		&props.dict,
		0,
	)
	if proxy == nil {
		return apperr.New(apperr.IoError)
	}
	b.linkProxy = (*C.struct_pw_proxy)(proxy)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return b.ctx.synchronize(ctx)
}

func (b *backend) OpenVirtualPort(localName string) error {
	return b.ensurePort(localName)
}

func (b *backend) ensurePort(localName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if atomic.LoadPointer(&b.filterPort) != nil {
		return nil
	}

	cname := C.CString(localName)
	defer C.free(unsafe.Pointer(cname))
	portEvents := C.make_port_events()

	p := C.pw_filter_add_port(
		b.filter,
		C.PW_DIRECTION_OUTPUT,
		C.PW_FILTER_PORT_FLAG_MAP_BUFFERS,
		0,
		nil,
		nil,
		0,
		unsafe.Pointer(b),
		&portEvents,
	)
	if p == nil {
		return apperr.New(apperr.IoError)
	}
	atomic.StorePointer(&b.filterPort, p)

	if C.pw_filter_connect(b.filter, C.PW_FILTER_FLAG_RT_PROCESS, nil, 0) < 0 {
		return apperr.New(apperr.IoError)
	}

	// synchronize_node / synchronize_ports (§4.G, §9): wait for the
	// filter's node to be assigned a real id, then for the graph to see
	// this one declared output port show up under it. Both bounds are
	// MaxSyncIterations; exceeding either leaves the port unavailable
	// rather than failing OpenPort/OpenVirtualPort outright (§7).
	nodeID, ok := pwgraph.SynchronizeNode(func() uint32 {
		return uint32(C.filter_node_id(b.filter))
	}, b.ctx.runLoopIteration)
	if ok {
		b.nodeID = nodeID
		pwgraph.SynchronizePorts(b.ctx.graph, nodeID, 0, 1, b.ctx.runLoopIteration)
	}
	return nil
}

func (b *backend) ClosePort() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if atomic.LoadPointer(&b.filterPort) == nil && b.filter == nil {
		return nil
	}
	if b.linkProxy != nil {
		C.pw_proxy_destroy((*C.struct_pw_proxy)(unsafe.Pointer(b.linkProxy)))
		b.linkProxy = nil
	}
	if b.filter != nil {
		C.pw_filter_destroy(b.filter)
		b.filter = nil
	}
	atomic.StorePointer(&b.filterPort, nil)
	backendRegistry.Delete(uintptr(unsafe.Pointer(b)))
	b.ctx.stop()
	b.ctx.close()
	return nil
}

// SendMessage queues msg for delivery on the next process cycle; the
// filter's process callback (goFilterProcess) drains it into the
// filter's MIDI buffer, mirroring the queued JACK-class pattern since
// the filter callback runs on PipeWire's own realtime data thread. The
// queue itself is a CAS-appended/swapped slice rather than a mutex, so
// the realtime side never locks against this call.
func (b *backend) SendMessage(msg []byte) error {
	if err := output.ValidateSendMessage(msg); err != nil {
		return err
	}
	if atomic.LoadPointer(&b.filterPort) == nil {
		return apperr.New(apperr.NotConnected)
	}
	cp := append([]byte(nil), msg...)
	for {
		old := b.pending.Load()
		var next [][]byte
		if old != nil {
			next = append(append([][]byte(nil), (*old)...), cp)
		} else {
			next = [][]byte{cp}
		}
		if b.pending.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// ScheduleMessage has no native PipeWire concept of absolute scheduling
// through a filter port beyond the current cycle, so it is unsupported.
func (b *backend) ScheduleMessage(ts int64, msg []byte) error {
	return apperr.New(apperr.OperationNotSupported)
}

func (b *backend) SetPortName(name string) error {
	if atomic.LoadPointer(&b.filterPort) == nil {
		return apperr.New(apperr.NotConnected)
	}
	// pw_filter does not expose a direct port rename after add_port;
	// recreating the port is the only general mechanism and is left
	// unimplemented here rather than silently no-op-ing.
	return apperr.New(apperr.OperationNotSupported)
}

func (b *backend) CurrentAPI() output.API { return output.APIPipeWire }

// goFilterProcess is PipeWire's realtime data-thread callback (§5): it
// takes no lock, only atomic loads/swaps, matching the no-lock rule
// already followed by the queued JACK-class callback.
//
//export goFilterProcess
func goFilterProcess(data unsafe.Pointer, nframes C.int) {
	v, ok := backendRegistry.Load(uintptr(data))
	if !ok {
		return
	}
	b := v.(*backend)

	filterPort := atomic.LoadPointer(&b.filterPort)
	if filterPort == nil {
		return
	}
	pendingPtr := b.pending.Swap(nil)
	if pendingPtr == nil {
		return
	}

	buf := C.pw_filter_get_dsp_buffer(filterPort, C.uint32_t(nframes))
	if buf == nil {
		return
	}
	for _, msg := range *pendingPtr {
		if len(msg) == 0 {
			continue
		}
		C.memcpy(buf, unsafe.Pointer(&msg[0]), C.size_t(len(msg)))
	}
}
