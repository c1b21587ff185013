//go:build pipewire
// +build pipewire

// Package pipewire wires internal/pwgraph to a real libpipewire-0.3
// main loop, registry, and filter (§4.G). Direct #cgo pkg-config
// linking is used rather than alexballas-screencast's dlopen approach:
// unlike that general-purpose tool, midigo already requires callers to
// opt into the pipewire build tag, so a hard build-time dependency on
// libpipewire-dev is acceptable here.
package pipewire

/*
#cgo pkg-config: libpipewire-0.3
#include <pipewire/pipewire.h>
#include <spa/utils/string.h>
#include <stdlib.h>

extern void goRegistryGlobal(void *data, uint32_t id, const char *type);
extern void goRegistryGlobalRemove(void *data, uint32_t id);
extern void goCoreDone(void *data, uint32_t id, int seq);
extern void goPortInfo(void *data, uint32_t node_id, uint32_t port_id, int direction,
                        int physical, int terminal, int monitor,
                        const char *format, const char *name, const char *alias, const char *object_path);

static void registry_global_trampoline(void *data, uint32_t id, uint32_t permissions,
                                        const char *type, uint32_t version, const struct spa_dict *props) {
	goRegistryGlobal(data, id, type);
}

static void registry_global_remove_trampoline(void *data, uint32_t id) {
	goRegistryGlobalRemove(data, id);
}

static void core_done_trampoline(void *data, uint32_t id, int seq) {
	goCoreDone(data, id, seq);
}

static struct pw_registry_events make_registry_events() {
	struct pw_registry_events events = { PW_VERSION_REGISTRY_EVENTS };
	events.global = registry_global_trampoline;
	events.global_remove = registry_global_remove_trampoline;
	return events;
}

static struct pw_core_events make_core_events() {
	struct pw_core_events events = { PW_VERSION_CORE_EVENTS };
	events.done = core_done_trampoline;
	return events;
}

// dict_lookup_or_empty mirrors spa_dict_lookup but never hands a NULL
// C string back across the cgo boundary (C.GoString(NULL) is unsafe).
static const char *dict_lookup_or_empty(const struct spa_dict *dict, const char *key) {
	const char *v = dict ? spa_dict_lookup(dict, key) : NULL;
	return v ? v : "";
}

// port_info_trampoline parses the pw_port_info dictionary (§4.G
// "Port-info event") into plain C scalars/strings and hands them to Go,
// where they become a pwgraph.PortInfo.
static void port_info_trampoline(void *data, const struct pw_port_info *info) {
	if (info == NULL) {
		return;
	}
	const struct spa_dict *props = info->props;
	const char *node_id_str = dict_lookup_or_empty(props, PW_KEY_NODE_ID);
	if (node_id_str[0] == '\0') {
		// node.id is required: an event without it is dropped.
		return;
	}
	uint32_t node_id = (uint32_t)atoi(node_id_str);
	int physical = spa_atob(dict_lookup_or_empty(props, PW_KEY_PORT_PHYSICAL));
	int terminal = spa_atob(dict_lookup_or_empty(props, PW_KEY_PORT_TERMINAL));
	int monitor = spa_atob(dict_lookup_or_empty(props, PW_KEY_PORT_MONITOR));
	const char *format = dict_lookup_or_empty(props, "format.dsp");
	const char *name = dict_lookup_or_empty(props, PW_KEY_PORT_NAME);
	const char *alias = dict_lookup_or_empty(props, PW_KEY_PORT_ALIAS);
	const char *object_path = dict_lookup_or_empty(props, PW_KEY_OBJECT_PATH);
	goPortInfo(data, node_id, (uint32_t)info->id, (int)info->direction,
	           physical, terminal, monitor, format, name, alias, object_path);
}

static struct pw_port_events make_port_events() {
	struct pw_port_events events = { PW_VERSION_PORT_EVENTS };
	events.info = port_info_trampoline;
	return events;
}
*/
import "C"

import (
	"context"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/leandrodaf/midigo/internal/midigolog"
	"github.com/leandrodaf/midigo/internal/pwgraph"
)

// pwContext is the long-lived PipeWire object bundle (§4.G): main loop,
// registry proxy, core proxy, and the Graph + Barrier the registry
// callbacks feed.
type pwContext struct {
	logger midigolog.Logger

	mainLoop *C.struct_pw_main_loop
	loop     *C.struct_pw_loop
	pwCtx    *C.struct_pw_context
	core     *C.struct_pw_core
	registry *C.struct_pw_registry

	registryListener C.struct_spa_hook
	coreListener     C.struct_spa_hook

	graph   *pwgraph.Graph
	barrier *pwgraph.Barrier

	mu       sync.Mutex
	pending  map[C.uint32_t]struct{}     // ids with a global seen but not yet bound
	bindings map[C.uint32_t]*portBinding // ids with a live port-info listener

	stopCh chan struct{}
	fd     int
}

// portBinding keeps a bound port proxy and its listener hook alive for
// as long as the port exists; both are destroyed once the registry
// reports global_remove for the id.
type portBinding struct {
	proxy    *C.struct_pw_proxy
	listener C.struct_spa_hook
}

var contextRegistry sync.Map // *pwContext keyed by uintptr(unsafe.Pointer(ctx)), for cgo callback dispatch

func newContext(clientName string, logger midigolog.Logger) (*pwContext, error) {
	C.pw_init(nil, nil)

	mainLoop := C.pw_main_loop_new(nil)
	if mainLoop == nil {
		return nil, errString("pw_main_loop_new failed")
	}
	loop := C.pw_main_loop_get_loop(mainLoop)

	cname := C.CString(clientName)
	defer C.free(unsafe.Pointer(cname))
	pwCtx := C.pw_context_new(loop, nil, 0)
	if pwCtx == nil {
		return nil, errString("pw_context_new failed")
	}

	core := C.pw_context_connect(pwCtx, nil, 0)
	if core == nil {
		return nil, errString("pw_context_connect failed")
	}

	registry := C.pw_core_get_registry(core, C.PW_VERSION_REGISTRY, 0)
	if registry == nil {
		return nil, errString("pw_core_get_registry failed")
	}

	ctx := &pwContext{
		logger:   logger,
		mainLoop: mainLoop,
		loop:     loop,
		pwCtx:    pwCtx,
		core:     core,
		registry: registry,
		graph:    pwgraph.NewGraph(),
		barrier:  pwgraph.NewBarrier(),
		pending:  make(map[C.uint32_t]struct{}),
		bindings: make(map[C.uint32_t]*portBinding),
		fd:       int(C.pw_loop_get_fd(loop)),
	}
	contextRegistry.Store(uintptr(unsafe.Pointer(ctx)), ctx)

	registryEvents := C.make_registry_events()
	C.pw_registry_add_listener(registry, &ctx.registryListener, &registryEvents, unsafe.Pointer(ctx))

	coreEvents := C.make_core_events()
	C.pw_core_add_listener(core, &ctx.coreListener, &coreEvents, unsafe.Pointer(ctx))

	// One final non-blocking loop iteration so synchronous callers see
	// the initial graph (§4.G constructor note).
	ctx.runLoopIteration()

	return ctx, nil
}

// runLoopIteration polls the loop's fd with a short timeout rather than
// busy-spinning the event-loop goroutine, then drives one dispatch pass.
func (c *pwContext) runLoopIteration() {
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
	_, _ = unix.Poll(fds, 1) // 1ms, matching the reference implementation's constructor sync
	C.pw_loop_iterate(c.loop, 0)
}

// synchronize issues a sync request and blocks (via Barrier.Wait,
// pumping runLoopIteration) until the core's matching done event lands
// or ctx is cancelled.
func (c *pwContext) synchronize(ctx context.Context) error {
	seq := c.barrier.NextPending()
	C.pw_core_sync(c.core, C.PW_ID_CORE, C.int(seq))
	return c.barrier.Wait(ctx, c.runLoopIteration)
}

// runLoop locks an OS thread and pumps pw_main_loop_run-equivalent
// iterations until stopCh closes, satisfying the concurrency model's
// requirement that internal/pwgraph.Graph is only mutated from this one
// goroutine (§5).
func (c *pwContext) runLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	c.stopCh = make(chan struct{})
	for {
		select {
		case <-c.stopCh:
			return
		default:
			c.runLoopIteration()
		}
	}
}

func (c *pwContext) stop() {
	if c.stopCh != nil {
		close(c.stopCh)
	}
}

func (c *pwContext) close() {
	contextRegistry.Delete(uintptr(unsafe.Pointer(c)))
	c.mu.Lock()
	for id, b := range c.bindings {
		C.pw_proxy_destroy(b.proxy)
		delete(c.bindings, id)
	}
	c.mu.Unlock()
	if c.core != nil {
		C.pw_core_disconnect(c.core)
	}
	if c.pwCtx != nil {
		C.pw_context_destroy(c.pwCtx)
	}
	if c.mainLoop != nil {
		C.pw_main_loop_destroy(c.mainLoop)
	}
}

func errString(msg string) error { return &simpleError{msg} }

type simpleError struct{ msg string }

func (e *simpleError) Error() string { return e.msg }

//export goRegistryGlobal
func goRegistryGlobal(data unsafe.Pointer, id C.uint32_t, ctype *C.char) {
	ctx, ok := contextRegistry.Load(uintptr(data))
	if !ok {
		return
	}
	c := ctx.(*pwContext)
	if C.GoString(ctype) != "PipeWire:Interface:Port" {
		return
	}

	// Bind the port and install a port-info listener (§4.G "global"):
	// the registry's global event only carries id/type, not the
	// direction/format/physical dictionary the graph needs, so the
	// dictionary has to come from a bound pw_port_info event instead.
	proxy := C.pw_registry_bind(c.registry, id, ctype, C.PW_VERSION_PORT, 0)
	if proxy == nil {
		return
	}
	binding := &portBinding{proxy: (*C.struct_pw_proxy)(proxy)}
	portEvents := C.make_port_events()
	C.pw_proxy_add_listener((*C.struct_pw_proxy)(proxy), &binding.listener, &portEvents, data)

	c.mu.Lock()
	c.pending[id] = struct{}{}
	c.bindings[id] = binding
	c.mu.Unlock()
}

//export goRegistryGlobalRemove
func goRegistryGlobalRemove(data unsafe.Pointer, id C.uint32_t) {
	ctx, ok := contextRegistry.Load(uintptr(data))
	if !ok {
		return
	}
	c := ctx.(*pwContext)
	c.mu.Lock()
	delete(c.pending, id)
	binding, bound := c.bindings[id]
	delete(c.bindings, id)
	c.mu.Unlock()
	if bound {
		C.pw_proxy_destroy(binding.proxy)
	}
	c.graph.RemovePort(uint32(id))
}

//export goPortInfo
func goPortInfo(data unsafe.Pointer, nodeID, portID C.uint32_t, direction C.int,
	physical, terminal, monitor C.int, format, name, alias, objectPath *C.char) {
	ctx, ok := contextRegistry.Load(uintptr(data))
	if !ok {
		return
	}
	c := ctx.(*pwContext)

	dir := pwgraph.Out
	if direction == C.SPA_DIRECTION_INPUT {
		dir = pwgraph.In
	}

	c.registerPortInfo(pwgraph.PortInfo{
		ID:         uint32(portID),
		Format:     C.GoString(format),
		Name:       C.GoString(name),
		Alias:      C.GoString(alias),
		ObjectPath: C.GoString(objectPath),
		NodeID:     uint32(nodeID),
		PortID:     uint32(portID),
		Direction:  dir,
		Physical:   physical != 0,
		Terminal:   terminal != 0,
		Monitor:    monitor != 0,
	})

	c.mu.Lock()
	delete(c.pending, portID)
	c.mu.Unlock()
}

//export goCoreDone
func goCoreDone(data unsafe.Pointer, id C.uint32_t, seq C.int) {
	ctx, ok := contextRegistry.Load(uintptr(data))
	if !ok {
		return
	}
	c := ctx.(*pwContext)
	if uint32(id) != uint32(C.PW_ID_CORE) {
		return
	}
	c.barrier.Satisfy(int(seq))
}

// registerPortInfo feeds a parsed port-info dictionary into the graph
// (§4.G "Port-info event"), called from the per-port listener once a
// real binding has parsed the dictionary's keys into a pwgraph.PortInfo.
func (c *pwContext) registerPortInfo(info pwgraph.PortInfo) {
	c.graph.RegisterPort(info)
}
