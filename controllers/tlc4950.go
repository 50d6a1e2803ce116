package controllers

import (
	"fmt"
	"log/slog"
	"sort"

	"pinball/events"
	"pinball/hardware"
)

// TLC4950MaxIntensity is the largest 12-bit duty value the chip accepts.
const TLC4950MaxIntensity = (1 << 12) - 1

// tlcUpdate is set in the first byte of every channel word.
const tlcUpdate = 0x80

// TLC4950 drives a 12-bit PWM LED driver over I2C.
//
// Outputs use a dirty set: every device whose intensity changed since the
// last Sync is drained into one variable-length block write of two bytes per
// channel.
type TLC4950 struct {
	name    string
	bus     *events.Bus
	i2c     I2CBus
	address uint16
	opts    options
	logger  *slog.Logger

	pins    map[*hardware.PwmOutputDevice]uint8
	used    map[uint8]bool
	dirty   map[*hardware.PwmOutputDevice]struct{}
	devices []hardware.Device
}

// OpenTLC4950 opens the named I2C bus and creates a PWM driver on it.
func OpenTLC4950(bus *events.Bus, busName string, address uint16, name string, opts ...Option) (*TLC4950, error) {
	i2cBus, err := OpenI2C(busName)
	if err != nil {
		return nil, err
	}
	c, err := NewTLC4950(bus, i2cBus, address, name, append(opts, withCloser(i2cBus))...)
	if err != nil {
		_ = i2cBus.Close()
		return nil, err
	}
	return c, nil
}

// NewTLC4950 creates a PWM driver controller at address.
func NewTLC4950(bus *events.Bus, i2c I2CBus, address uint16, name string, opts ...Option) (*TLC4950, error) {
	if i2c == nil {
		return nil, fmt.Errorf("%w: tlc4950 %s: no i2c bus", hardware.ErrConfiguration, name)
	}

	o := buildOptions("tlc4950", name, opts)
	return &TLC4950{
		name:    name,
		bus:     bus,
		i2c:     i2c,
		address: address,
		opts:    o,
		logger:  o.logger,
		pins:    make(map[*hardware.PwmOutputDevice]uint8),
		used:    make(map[uint8]bool),
		dirty:   make(map[*hardware.PwmOutputDevice]struct{}),
	}, nil
}

// Name implements hardware.Controller.
func (c *TLC4950) Name() string {
	return c.name
}

// Devices implements hardware.Controller.
func (c *TLC4950) Devices() []hardware.Device {
	return append([]hardware.Device(nil), c.devices...)
}

// PwmOut creates an intensity output on channel pin (0..7).
func (c *TLC4950) PwmOut(name string, pin uint8) (*hardware.PwmOutputDevice, error) {
	if pin > 7 {
		return nil, fmt.Errorf("%w: tlc4950 %s: channel %d out of range 0..7", hardware.ErrProgramming, c.name, pin)
	}
	if c.used[pin] {
		return nil, fmt.Errorf("%w: tlc4950 %s: channel %d already registered", hardware.ErrProgramming, c.name, pin)
	}
	c.used[pin] = true

	d := hardware.NewPwmOutputDevice(c.bus, name, c, TLC4950MaxIntensity)
	c.pins[d] = pin
	c.devices = append(c.devices, d)
	return d, nil
}

// UpdatePwm implements hardware.PwmOutputCapable.
func (c *TLC4950) UpdatePwm(d *hardware.PwmOutputDevice) {
	if _, ok := c.pins[d]; ok {
		c.dirty[d] = struct{}{}
	}
}

// Sync implements hardware.Controller. The chip has no inputs.
func (c *TLC4950) Sync() error {
	if len(c.dirty) == 0 {
		return nil
	}

	// Drain the set; ordering by channel keeps the wire format stable.
	batch := make([]*hardware.PwmOutputDevice, 0, len(c.dirty))
	for d := range c.dirty {
		batch = append(batch, d)
		delete(c.dirty, d)
	}
	sort.Slice(batch, func(i, j int) bool { return c.pins[batch[i]] < c.pins[batch[j]] })

	buf := make([]byte, 0, 2*len(batch))
	for _, d := range batch {
		intensity := d.Intensity()
		buf = append(buf,
			tlcUpdate|c.pins[d]<<4|uint8(intensity>>8),
			uint8(intensity&0xFF),
		)
	}

	c.logger.Debug("write channels", "address", c.address, "channels", len(batch))
	if err := c.i2c.Tx(c.address, buf, nil); err != nil {
		return fmt.Errorf("%w: tlc4950 %s: write %d channels: %w", hardware.ErrTransport, c.name, len(batch), err)
	}
	return nil
}

// Close releases the I2C bus if this controller opened it.
func (c *TLC4950) Close() error {
	return c.opts.Close()
}
