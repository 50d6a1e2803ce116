package controllers

import (
	"fmt"
	"log/slog"
	"sort"

	"pinball/events"
	"pinball/hardware"
	"pinball/host/serial"
)

// powerDriverBanner is sent once after opening so the bridge firmware can
// resynchronise its frame parser.
const powerDriverBanner = "MY MAGIC PINBALL\r\n"

// pdBank identifies one 8-relay bank on one board of the chain.
type pdBank struct {
	board uint8
	bank  Bank
}

func (b pdBank) less(o pdBank) bool {
	if b.board != o.board {
		return b.board < o.board
	}
	return b.bank < o.bank
}

// pdPin locates a relay output.
type pdPin struct {
	bank pdBank
	mask uint8
}

// PowerDriver16 drives a chain of 16-relay power driver boards behind a
// serial bridge. Each board has two banks of eight relays.
//
// Outputs use one dirty flag per bank. Sync sends one 3-byte frame
// [board, bank, value] per dirty bank, all frames in a single write.
type PowerDriver16 struct {
	name   string
	bus    *events.Bus
	port   serial.Port
	opts   options
	logger *slog.Logger

	state   map[pdBank]uint8
	used    map[pdBank]uint8
	dirty   map[pdBank]struct{}
	outputs map[*hardware.BinaryOutputDevice]pdPin
	devices []hardware.Device
}

// OpenPowerDriver16 opens device at 9600 baud and creates the controller.
// The controller owns the port and closes it on Close.
func OpenPowerDriver16(bus *events.Bus, device, name string, opts ...Option) (*PowerDriver16, error) {
	if device == "" {
		return nil, fmt.Errorf("%w: powerdriver16 %s: no serial device", hardware.ErrConfiguration, name)
	}

	port, err := serial.Open(serial.DefaultConfig(device))
	if err != nil {
		return nil, fmt.Errorf("%w: powerdriver16 %s: %w", hardware.ErrConfiguration, name, err)
	}

	c, err := NewPowerDriver16(bus, port, name, append(opts, withCloser(port))...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return c, nil
}

// NewPowerDriver16 creates the controller on an already open port and sends
// the banner.
func NewPowerDriver16(bus *events.Bus, port serial.Port, name string, opts ...Option) (*PowerDriver16, error) {
	if port == nil {
		return nil, fmt.Errorf("%w: powerdriver16 %s: no serial port", hardware.ErrConfiguration, name)
	}

	o := buildOptions("powerdriver16", name, opts)
	c := &PowerDriver16{
		name:    name,
		bus:     bus,
		port:    port,
		opts:    o,
		logger:  o.logger,
		state:   make(map[pdBank]uint8),
		used:    make(map[pdBank]uint8),
		dirty:   make(map[pdBank]struct{}),
		outputs: make(map[*hardware.BinaryOutputDevice]pdPin),
	}

	if _, err := port.Write([]byte(powerDriverBanner)); err != nil {
		return nil, fmt.Errorf("%w: powerdriver16 %s: send banner: %w", hardware.ErrConfiguration, name, err)
	}
	return c, nil
}

// Name implements hardware.Controller.
func (c *PowerDriver16) Name() string {
	return c.name
}

// Devices implements hardware.Controller.
func (c *PowerDriver16) Devices() []hardware.Device {
	return append([]hardware.Device(nil), c.devices...)
}

// Out creates a relay output on pin of bank on board. The first output on a
// bank marks it dirty so the board starts from a known all-off state.
func (c *PowerDriver16) Out(name string, board uint8, bank Bank, pin uint8) (*hardware.BinaryOutputDevice, error) {
	if pin > 7 {
		return nil, fmt.Errorf("%w: powerdriver16 %s: pin %d out of range 0..7", hardware.ErrProgramming, c.name, pin)
	}
	if bank > BankB {
		return nil, fmt.Errorf("%w: powerdriver16 %s: invalid bank %d", hardware.ErrProgramming, c.name, bank)
	}

	key := pdBank{board: board, bank: bank}
	mask := uint8(1) << pin
	if c.used[key]&mask != 0 {
		return nil, fmt.Errorf("%w: powerdriver16 %s: board %d pin %s%d already registered",
			hardware.ErrProgramming, c.name, board, bank, pin)
	}
	if _, seen := c.used[key]; !seen {
		c.dirty[key] = struct{}{}
	}
	c.used[key] |= mask

	d := hardware.NewBinaryOutputDevice(c.bus, name, c)
	c.outputs[d] = pdPin{bank: key, mask: mask}
	c.devices = append(c.devices, d)
	return d, nil
}

// UpdateBinary implements hardware.BinaryOutputCapable.
func (c *PowerDriver16) UpdateBinary(d *hardware.BinaryOutputDevice) {
	p, ok := c.outputs[d]
	if !ok {
		return
	}
	if d.Get() {
		c.state[p.bank] |= p.mask
	} else {
		c.state[p.bank] &^= p.mask
	}
	c.dirty[p.bank] = struct{}{}
}

// Sync implements hardware.Controller. The boards have no inputs.
func (c *PowerDriver16) Sync() error {
	if len(c.dirty) == 0 {
		return nil
	}

	banks := make([]pdBank, 0, len(c.dirty))
	for b := range c.dirty {
		banks = append(banks, b)
		delete(c.dirty, b)
	}
	sort.Slice(banks, func(i, j int) bool { return banks[i].less(banks[j]) })

	frames := make([]byte, 0, 3*len(banks))
	for _, b := range banks {
		frames = append(frames, b.board, uint8(b.bank), c.state[b])
	}

	c.logger.Debug("write frames", "banks", len(banks))
	n, err := c.port.Write(frames)
	if err != nil {
		return fmt.Errorf("%w: powerdriver16 %s: write %d frames: %w", hardware.ErrTransport, c.name, len(banks), err)
	}
	if n != len(frames) {
		return fmt.Errorf("%w: powerdriver16 %s: short write %d of %d bytes", hardware.ErrTransport, c.name, n, len(frames))
	}
	return nil
}

// Close releases the serial port if this controller opened it.
func (c *PowerDriver16) Close() error {
	return c.opts.Close()
}
