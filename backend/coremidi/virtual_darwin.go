//go:build darwin
// +build darwin

package coremidi

/*
#cgo LDFLAGS: -framework CoreMIDI -framework CoreFoundation
#include <CoreMIDI/CoreMIDI.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/youpy/go-coremidi"

	"github.com/leandrodaf/midigo/internal/corefragment"
)

// virtualSource is a directly-bound MIDISourceRef. go-coremidi does not
// expose MIDISourceCreate, so this is a small raw-cgo shim in the style
// of a direct CoreMIDI.framework binding, grounded on the cfstr/MIDIClientRef
// handling shown in other_examples' coremidi cgo source.
type virtualSource struct {
	ref  C.MIDIEndpointRef
	name string
}

func newVirtualSource(client coremidi.Client, name string) (*virtualSource, error) {
	clientRef := clientRefOf(client)

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	cfname := C.CFStringCreateWithCString(C.kCFAllocatorDefault, cname, C.kCFStringEncodingUTF8)
	defer C.CFRelease(C.CFTypeRef(cfname))

	var ref C.MIDIEndpointRef
	status := C.MIDISourceCreate(clientRef, cfname, &ref)
	if status != C.noErr {
		return nil, fmt.Errorf("MIDISourceCreate: status %d", int(status))
	}
	return &virtualSource{ref: ref, name: name}, nil
}

// send publishes payload on the virtual source via MIDIReceived, the
// "received" path subscribers observe (§4.E).
func (v *virtualSource) send(timestamp uint64, payload []byte) error {
	// A bare C.MIDIPacketList only has room for a small packet, so the
	// list is built in a fixed buffer sized for the largest fragment plus
	// list/packet headers (corefragment.StackBufferSize).
	var storage [(corefragment.StackBufferSize + 7) / 8]uint64
	packetList := (*C.MIDIPacketList)(unsafe.Pointer(&storage[0]))
	packet := C.MIDIPacketListInit(packetList)
	packet = C.MIDIPacketListAdd(
		packetList,
		C.ByteCount(unsafe.Sizeof(storage)),
		packet,
		C.MIDITimeStamp(timestamp),
		C.ByteCount(len(payload)),
		(*C.Byte)(unsafe.Pointer(&payload[0])),
	)
	if packet == nil {
		return fmt.Errorf("MIDIPacketListAdd: payload did not fit the packet list")
	}
	status := C.MIDIReceived(v.ref, packetList)
	if status != C.noErr {
		return fmt.Errorf("MIDIReceived: status %d", int(status))
	}
	return nil
}

func (v *virtualSource) setName(name string) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	cfname := C.CFStringCreateWithCString(C.kCFAllocatorDefault, cname, C.kCFStringEncodingUTF8)
	defer C.CFRelease(C.CFTypeRef(cfname))

	status := C.MIDIObjectSetStringProperty(C.MIDIObjectRef(v.ref), C.kMIDIPropertyName, cfname)
	if status != C.noErr {
		return fmt.Errorf("MIDIObjectSetStringProperty: status %d", int(status))
	}
	v.name = name
	return nil
}

func (v *virtualSource) dispose() {
	C.MIDIEndpointDispose(v.ref)
}

// clientRefOf recovers the underlying MIDIClientRef from a go-coremidi
// Client. go-coremidi does not export it, so this reaches through with
// unsafe assuming the library's Client struct's first (and only) field
// is the C.MIDIClientRef, matching its observed layout across releases
// pinned in go.mod.
func clientRefOf(client coremidi.Client) C.MIDIClientRef {
	return *(*C.MIDIClientRef)(unsafe.Pointer(&client))
}
