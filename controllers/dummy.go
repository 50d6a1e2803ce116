package controllers

import (
	"pinball/events"
	"pinball/hardware"
)

// Dummy is a controller without hardware. Its devices behave exactly like
// real ones but Sync touches nothing, which makes it the controller of choice
// for simulation and tests.
type Dummy struct {
	name    string
	bus     *events.Bus
	devices []hardware.Device
	inputs  []*hardware.InputDevice

	// Syncs counts Sync calls.
	Syncs int
}

// NewDummy creates a dummy controller.
func NewDummy(bus *events.Bus, name string) *Dummy {
	return &Dummy{name: name, bus: bus}
}

// Name implements hardware.Controller.
func (c *Dummy) Name() string {
	return c.name
}

// Devices implements hardware.Controller.
func (c *Dummy) Devices() []hardware.Device {
	return append([]hardware.Device(nil), c.devices...)
}

// Inputs implements hardware.InputCapable.
func (c *Dummy) Inputs() []*hardware.InputDevice {
	return append([]*hardware.InputDevice(nil), c.inputs...)
}

// In creates a dummy input device.
func (c *Dummy) In(name string, inverted bool) *hardware.InputDevice {
	d := hardware.NewInputDevice(c.bus, name, inverted)
	c.devices = append(c.devices, d)
	c.inputs = append(c.inputs, d)
	return d
}

// Out creates a dummy binary output device.
func (c *Dummy) Out(name string) *hardware.BinaryOutputDevice {
	d := hardware.NewBinaryOutputDevice(c.bus, name, c)
	c.devices = append(c.devices, d)
	return d
}

// PwmOut creates a dummy PWM output device accepting 0..maxIntensity.
func (c *Dummy) PwmOut(name string, maxIntensity int) *hardware.PwmOutputDevice {
	d := hardware.NewPwmOutputDevice(c.bus, name, c, maxIntensity)
	c.devices = append(c.devices, d)
	return d
}

// UpdateBinary implements hardware.BinaryOutputCapable.
func (c *Dummy) UpdateBinary(*hardware.BinaryOutputDevice) {}

// UpdatePwm implements hardware.PwmOutputCapable.
func (c *Dummy) UpdatePwm(*hardware.PwmOutputDevice) {}

// Sync implements hardware.Controller.
func (c *Dummy) Sync() error {
	c.Syncs++
	return nil
}
