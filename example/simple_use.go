// Command simple_use demonstrates opening an output port and sending a
// single note-on/note-off pair through the CoreMIDI backend. The JACK
// and PipeWire backend packages are imported as well, but this program
// never selects them; off darwin the CoreMIDI backend is the unsupported
// stub, so enumeration fails.
package main

import (
	"fmt"
	"time"

	_ "github.com/leandrodaf/midigo/backend/coremidi"
	_ "github.com/leandrodaf/midigo/backend/jack"
	_ "github.com/leandrodaf/midigo/backend/pipewire"
	"github.com/leandrodaf/midigo/pkg/output"
)

func main() {
	api := output.APICoreMIDI

	ports, err := output.Enumerate(api, output.WithClientName("midigo-example"))
	if err != nil {
		fmt.Println("enumerate failed:", err)
		return
	}
	if len(ports) == 0 {
		fmt.Println("no destinations found")
		return
	}
	fmt.Println("available destinations:", ports)

	backend, err := output.Open(api,
		output.WithClientName("midigo-example"),
		output.WithOnWarning(func(msg string) { fmt.Println("warning:", msg) }),
	)
	if err != nil {
		fmt.Println("open failed:", err)
		return
	}
	defer backend.ClosePort()

	if err := backend.OpenPort(ports[0], "out"); err != nil {
		fmt.Println("open port failed:", err)
		return
	}

	if err := backend.SendMessage([]byte{0x90, 0x3C, 0x7F}); err != nil {
		fmt.Println("send failed:", err)
		return
	}
	time.Sleep(200 * time.Millisecond)
	if err := backend.SendMessage([]byte{0x80, 0x3C, 0x00}); err != nil {
		fmt.Println("send failed:", err)
		return
	}

	fmt.Println("sent note-on/note-off via", backend.CurrentAPI())
}
