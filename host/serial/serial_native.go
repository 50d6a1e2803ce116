package serial

import (
	"errors"
	"fmt"
	"os"

	"github.com/tarm/serial"
)

// NativePort is a Port backed by an OS serial device.
type NativePort struct {
	port *serial.Port
	cfg  Config
}

// Open opens the device described by cfg.
func Open(cfg *Config) (*NativePort, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, fmt.Errorf("serial: no device configured")
	}
	if _, err := os.Stat(cfg.Device); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, cfg.Device)
	}

	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s at %d baud: %w", cfg.Device, baud, err)
	}

	return &NativePort{port: port, cfg: *cfg}, nil
}

// Device returns the device path the port was opened on.
func (p *NativePort) Device() string {
	return p.cfg.Device
}

func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Flush discards unread input.
func (p *NativePort) Flush() error {
	return p.port.Flush()
}

// Close closes the device; closing twice is a no-op.
func (p *NativePort) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}
