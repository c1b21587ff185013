//go:build !pipewire
// +build !pipewire

// Package pipewire, without the pipewire build tag, registers a backend
// whose every operation reports OperationNotSupported, so a build
// without libpipewire development headers still links, mirroring the
// teacher's client_dummy.go pattern.
package pipewire

import (
	"github.com/leandrodaf/midigo/internal/midigolog"
	"github.com/leandrodaf/midigo/pkg/apperr"
	"github.com/leandrodaf/midigo/pkg/output"
	"github.com/leandrodaf/midigo/pkg/port"
)

func init() {
	output.Register(output.APIPipeWire, newBackend, enumerate)
}

type backend struct {
	logger midigolog.Logger
}

func newBackend(cfg *output.Config) (output.Backend, error) {
	cfg.Logger().Warn("PipeWire backend requested on a build without the pipewire tag; using the unsupported stub")
	return &backend{logger: cfg.Logger()}, nil
}

func enumerate(cfg *output.Config) ([]port.Descriptor, error) {
	return nil, apperr.New(apperr.OperationNotSupported)
}

func (b *backend) OpenPort(d port.Descriptor, localName string) error {
	return apperr.New(apperr.OperationNotSupported)
}

func (b *backend) OpenVirtualPort(localName string) error {
	return apperr.New(apperr.OperationNotSupported)
}

func (b *backend) ClosePort() error { return nil }

func (b *backend) SendMessage(msg []byte) error {
	return apperr.New(apperr.OperationNotSupported)
}

func (b *backend) ScheduleMessage(ts int64, msg []byte) error {
	return apperr.New(apperr.OperationNotSupported)
}

func (b *backend) SetPortName(name string) error {
	return apperr.New(apperr.OperationNotSupported)
}

func (b *backend) CurrentAPI() output.API { return output.APIPipeWire }
