// Package serial opens the byte-stream links used by serial-attached power
// driver boards.
package serial

import (
	"errors"
	"io"
	"time"
)

// ErrDeviceNotFound is returned when the device node does not exist.
var ErrDeviceNotFound = errors.New("serial device not found")

// DefaultBaud is the line speed power driver boards listen at.
const DefaultBaud = 9600

// Port is an open serial link. Production code uses tarm/serial; tests use
// an in-memory buffer.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Config holds serial port settings.
type Config struct {
	// Device path (e.g. "/dev/ttyUSB0", "COM3").
	Device string

	// Baud rate, 8N1 framing is implied.
	Baud int

	// ReadTimeout bounds a blocking Read (0 blocks forever).
	ReadTimeout time.Duration
}

// DefaultConfig returns the settings for a power driver board on device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}
