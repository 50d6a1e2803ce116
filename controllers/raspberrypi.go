package controllers

import (
	"fmt"
	"log/slog"
	"strconv"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
	"periph.io/x/periph/host/rpi"

	"pinball/events"
	"pinball/hardware"
)

// UnattachedPin creates a Raspberry Pi input that is never sampled. Its state
// only changes through Simulate.
const UnattachedPin = -1

// PinResolver maps a BCM pin number to a GPIO line.
type PinResolver func(pin int) gpio.PinIO

// gpioregResolver resolves pins through the periph registry.
func gpioregResolver(pin int) gpio.PinIO {
	return gpioreg.ByName(strconv.Itoa(pin))
}

type rpiInput struct {
	device *hardware.InputDevice
	pin    gpio.PinIO
}

type rpiOutput struct {
	device *hardware.BinaryOutputDevice
	pin    gpio.PinIO
}

// RaspberryPi drives the host's own GPIO header.
//
// Outputs use a per-device dirty set written in registration order; every
// attached input is read on each Sync.
type RaspberryPi struct {
	name    string
	bus     *events.Bus
	resolve PinResolver
	logger  *slog.Logger

	used    map[int]bool
	inputs  []rpiInput
	outputs []rpiOutput
	index   map[*hardware.BinaryOutputDevice]int
	dirty   map[*hardware.BinaryOutputDevice]struct{}
	devices []hardware.Device
}

// OpenRaspberryPi initialises the periph host drivers and checks that the
// program runs on a Raspberry Pi.
func OpenRaspberryPi(bus *events.Bus, name string, opts ...Option) (*RaspberryPi, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: raspberrypi %s: init host drivers: %w", hardware.ErrConfiguration, name, err)
	}
	if !rpi.Present() {
		return nil, fmt.Errorf("%w: raspberrypi %s: not running on a Raspberry Pi", hardware.ErrConfiguration, name)
	}
	return NewRaspberryPi(bus, name, gpioregResolver, opts...), nil
}

// NewRaspberryPi creates the controller with a custom pin resolver.
func NewRaspberryPi(bus *events.Bus, name string, resolve PinResolver, opts ...Option) *RaspberryPi {
	o := buildOptions("raspberrypi", name, opts)
	return &RaspberryPi{
		name:    name,
		bus:     bus,
		resolve: resolve,
		logger:  o.logger,
		used:    make(map[int]bool),
		index:   make(map[*hardware.BinaryOutputDevice]int),
		dirty:   make(map[*hardware.BinaryOutputDevice]struct{}),
	}
}

// Name implements hardware.Controller.
func (c *RaspberryPi) Name() string {
	return c.name
}

// Devices implements hardware.Controller.
func (c *RaspberryPi) Devices() []hardware.Device {
	return append([]hardware.Device(nil), c.devices...)
}

// Inputs implements hardware.InputCapable. Unattached inputs are included.
func (c *RaspberryPi) Inputs() []*hardware.InputDevice {
	all := make([]*hardware.InputDevice, 0, len(c.inputs))
	for _, in := range c.inputs {
		all = append(all, in.device)
	}
	return all
}

func (c *RaspberryPi) claim(pin int) (gpio.PinIO, error) {
	if c.used[pin] {
		return nil, fmt.Errorf("%w: raspberrypi %s: pin %d already registered", hardware.ErrProgramming, c.name, pin)
	}
	p := c.resolve(pin)
	if p == nil {
		return nil, fmt.Errorf("%w: raspberrypi %s: no gpio line for pin %d", hardware.ErrConfiguration, c.name, pin)
	}
	c.used[pin] = true
	return p, nil
}

// In creates an input on BCM pin with the given pull resistor.
// Pin UnattachedPin creates a device that Sync never reads.
func (c *RaspberryPi) In(name string, pin int, pull gpio.Pull, inverted bool) (*hardware.InputDevice, error) {
	var p gpio.PinIO
	if pin != UnattachedPin {
		var err error
		if p, err = c.claim(pin); err != nil {
			return nil, err
		}
		if err := p.In(pull, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("%w: raspberrypi %s: configure input %s on pin %d: %w",
				hardware.ErrConfiguration, c.name, name, pin, err)
		}
	}

	d := hardware.NewInputDevice(c.bus, name, inverted)
	c.inputs = append(c.inputs, rpiInput{device: d, pin: p})
	c.devices = append(c.devices, d)
	return d, nil
}

// Out creates an output on BCM pin, initially low.
func (c *RaspberryPi) Out(name string, pin int) (*hardware.BinaryOutputDevice, error) {
	p, err := c.claim(pin)
	if err != nil {
		return nil, err
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("%w: raspberrypi %s: configure output %s on pin %d: %w",
			hardware.ErrConfiguration, c.name, name, pin, err)
	}

	d := hardware.NewBinaryOutputDevice(c.bus, name, c)
	c.index[d] = len(c.outputs)
	c.outputs = append(c.outputs, rpiOutput{device: d, pin: p})
	c.devices = append(c.devices, d)
	return d, nil
}

// UpdateBinary implements hardware.BinaryOutputCapable.
func (c *RaspberryPi) UpdateBinary(d *hardware.BinaryOutputDevice) {
	if _, ok := c.index[d]; ok {
		c.dirty[d] = struct{}{}
	}
}

// Sync implements hardware.Controller.
func (c *RaspberryPi) Sync() error {
	if len(c.dirty) > 0 {
		for _, out := range c.outputs {
			if _, ok := c.dirty[out.device]; !ok {
				continue
			}
			delete(c.dirty, out.device)

			level := gpio.Level(out.device.Get())
			c.logger.Debug("write pin", "pin", out.pin.Name(), "level", level)
			if err := out.pin.Out(level); err != nil {
				return fmt.Errorf("%w: raspberrypi %s: write %s: %w", hardware.ErrTransport, c.name, out.device.Name(), err)
			}
		}
	}

	for _, in := range c.inputs {
		if in.pin == nil {
			continue
		}
		in.device.Set(bool(in.pin.Read()))
	}
	return nil
}
