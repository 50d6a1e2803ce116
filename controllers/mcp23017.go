package controllers

import (
	"fmt"
	"log/slog"

	"pinball/events"
	"pinball/hardware"
)

// MCP23017 registers (IOCON.BANK = 0 addressing).
const (
	mcpIODIRA = 0x00 // Pin direction, bank A (1 = input)
	mcpIODIRB = 0x01 // Pin direction, bank B
	mcpGPPUA  = 0x0C // Pull-up enable, bank A
	mcpGPPUB  = 0x0D // Pull-up enable, bank B
	mcpGPIOA  = 0x12 // Input port, bank A
	mcpGPIOB  = 0x13 // Input port, bank B
	mcpOLATA  = 0x14 // Output latch, bank A
	mcpOLATB  = 0x15 // Output latch, bank B
)

// Bank selects one of the two 8-bit ports of an expander or relay board.
type Bank uint8

const (
	BankA Bank = 0
	BankB Bank = 1
)

// String returns the bank letter.
func (b Bank) String() string {
	if b == BankA {
		return "A"
	}
	return "B"
}

var (
	mcpGPIO = [2]uint8{mcpGPIOA, mcpGPIOB}
	mcpOLAT = [2]uint8{mcpOLATA, mcpOLATB}
)

// mcpPin locates a device on the expander.
type mcpPin struct {
	bank Bank
	mask uint8
}

// mcpInput is an input device and the bit it samples.
type mcpInput struct {
	device *hardware.InputDevice
	mask   uint8
}

// MCP23017 drives a 16-bit I2C I/O expander.
//
// Outputs use one dirty flag per bank: a change anywhere in a bank rewrites
// that bank's output latch in a single transaction on the next Sync. Inputs
// are sampled with one register read per bank that has inputs. Keeping a bank
// all-input or all-output is the cheapest layout.
type MCP23017 struct {
	name    string
	bus     *events.Bus
	i2c     I2CBus
	address uint16
	opts    options
	logger  *slog.Logger

	dirty      [2]bool  // Output latch of bank needs writing
	state      [2]uint8 // Desired output latch per bank
	directions [2]uint8 // IODIR bitmap per bank
	pullups    [2]uint8 // GPPU bitmap per bank
	used       [2]uint8 // Pins already assigned per bank

	inputs  [2][]mcpInput
	outputs map[*hardware.BinaryOutputDevice]mcpPin
	devices []hardware.Device
}

// OpenMCP23017 opens the named I2C bus and creates an expander on it.
// The controller owns the bus and closes it on Close.
func OpenMCP23017(bus *events.Bus, busName string, address uint16, name string, opts ...Option) (*MCP23017, error) {
	i2cBus, err := OpenI2C(busName)
	if err != nil {
		return nil, err
	}
	c, err := NewMCP23017(bus, i2cBus, address, name, append(opts, withCloser(i2cBus))...)
	if err != nil {
		_ = i2cBus.Close()
		return nil, err
	}
	return c, nil
}

// NewMCP23017 creates an expander controller at address and configures every
// pin as an output without pull-up.
func NewMCP23017(bus *events.Bus, i2c I2CBus, address uint16, name string, opts ...Option) (*MCP23017, error) {
	if i2c == nil {
		return nil, fmt.Errorf("%w: mcp23017 %s: no i2c bus", hardware.ErrConfiguration, name)
	}

	o := buildOptions("mcp23017", name, opts)
	c := &MCP23017{
		name:    name,
		bus:     bus,
		i2c:     i2c,
		address: address,
		opts:    o,
		logger:  o.logger,
		outputs: make(map[*hardware.BinaryOutputDevice]mcpPin),
	}

	// Default: everything output, no pull-ups.
	for _, reg := range []uint8{mcpGPPUA, mcpIODIRA, mcpGPPUB, mcpIODIRB} {
		if err := writeRegister(c.i2c, c.address, reg, 0x00); err != nil {
			return nil, fmt.Errorf("%w: mcp23017 %s at 0x%02X: init register 0x%02X: %w",
				hardware.ErrConfiguration, name, address, reg, err)
		}
	}

	return c, nil
}

// Name implements hardware.Controller.
func (c *MCP23017) Name() string {
	return c.name
}

// Devices implements hardware.Controller.
func (c *MCP23017) Devices() []hardware.Device {
	return append([]hardware.Device(nil), c.devices...)
}

// Inputs implements hardware.InputCapable.
func (c *MCP23017) Inputs() []*hardware.InputDevice {
	var all []*hardware.InputDevice
	for bank := range c.inputs {
		for _, in := range c.inputs[bank] {
			all = append(all, in.device)
		}
	}
	return all
}

// claim reserves pin on bank or reports why it cannot be used.
func (c *MCP23017) claim(pin uint8, bank Bank) (uint8, error) {
	if pin > 7 {
		return 0, fmt.Errorf("%w: mcp23017 %s: pin %d out of range 0..7", hardware.ErrProgramming, c.name, pin)
	}
	if bank > BankB {
		return 0, fmt.Errorf("%w: mcp23017 %s: invalid bank %d", hardware.ErrProgramming, c.name, bank)
	}

	mask := uint8(1) << pin
	if c.used[bank]&mask != 0 {
		return 0, fmt.Errorf("%w: mcp23017 %s: pin %s%d already registered", hardware.ErrProgramming, c.name, bank, pin)
	}
	c.used[bank] |= mask
	return mask, nil
}

// Out creates an output device on pin of bank.
func (c *MCP23017) Out(name string, pin uint8, bank Bank) (*hardware.BinaryOutputDevice, error) {
	mask, err := c.claim(pin, bank)
	if err != nil {
		return nil, err
	}

	d := hardware.NewBinaryOutputDevice(c.bus, name, c)
	c.outputs[d] = mcpPin{bank: bank, mask: mask}
	c.devices = append(c.devices, d)
	return d, nil
}

// In creates an input device on pin of bank, switching the pin to input and
// optionally enabling its pull-up.
func (c *MCP23017) In(name string, pin uint8, bank Bank, pullup, inverted bool) (*hardware.InputDevice, error) {
	mask, err := c.claim(pin, bank)
	if err != nil {
		return nil, err
	}

	c.directions[bank] |= mask
	if pullup {
		c.pullups[bank] |= mask
	}

	writes := []struct{ reg, value uint8 }{
		{mcpGPPUA, c.pullups[BankA]},
		{mcpGPPUB, c.pullups[BankB]},
		{mcpIODIRA, c.directions[BankA]},
		{mcpIODIRB, c.directions[BankB]},
	}
	for _, w := range writes {
		if err := writeRegister(c.i2c, c.address, w.reg, w.value); err != nil {
			return nil, fmt.Errorf("%w: mcp23017 %s: configure input %s: %w", hardware.ErrConfiguration, c.name, name, err)
		}
	}

	d := hardware.NewInputDevice(c.bus, name, inverted)
	c.inputs[bank] = append(c.inputs[bank], mcpInput{device: d, mask: mask})
	c.devices = append(c.devices, d)
	return d, nil
}

// UpdateBinary implements hardware.BinaryOutputCapable.
func (c *MCP23017) UpdateBinary(d *hardware.BinaryOutputDevice) {
	p, ok := c.outputs[d]
	if !ok {
		return
	}
	if d.Get() {
		c.state[p.bank] |= p.mask
	} else {
		c.state[p.bank] &^= p.mask
	}
	c.dirty[p.bank] = true
}

// Sync implements hardware.Controller.
func (c *MCP23017) Sync() error {
	// Outputs: one latch write per dirty bank.
	for bank := BankA; bank <= BankB; bank++ {
		if !c.dirty[bank] {
			continue
		}
		c.dirty[bank] = false

		c.logger.Debug("write output latch", "address", c.address, "bank", bank, "value", c.state[bank])
		if err := writeRegister(c.i2c, c.address, mcpOLAT[bank], c.state[bank]); err != nil {
			return fmt.Errorf("%w: mcp23017 %s: write OLAT%s: %w", hardware.ErrTransport, c.name, bank, err)
		}
	}

	// Inputs: one port read per bank with inputs.
	for bank := BankA; bank <= BankB; bank++ {
		if len(c.inputs[bank]) == 0 {
			continue
		}

		value, err := readRegister(c.i2c, c.address, mcpGPIO[bank])
		if err != nil {
			return fmt.Errorf("%w: mcp23017 %s: read GPIO%s: %w", hardware.ErrTransport, c.name, bank, err)
		}
		for _, in := range c.inputs[bank] {
			in.device.Set(value&in.mask != 0)
		}
	}

	return nil
}

// Close releases the I2C bus if this controller opened it.
func (c *MCP23017) Close() error {
	return c.opts.Close()
}
