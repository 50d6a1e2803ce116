package hardware

import (
	"fmt"

	"pinball/events"
)

// DeviceType tells telemetry consumers what a device is.
type DeviceType uint8

const (
	TypeInput DeviceType = iota
	TypeBinaryOutput
	TypePwmOutput
)

// String returns a human-readable type name.
func (t DeviceType) String() string {
	switch t {
	case TypeInput:
		return "InputDevice"
	case TypeBinaryOutput:
		return "BinaryOutputDevice"
	case TypePwmOutput:
		return "PwmOutputDevice"
	default:
		return "UnknownDevice"
	}
}

// Device is the view of a hardware device shared by all kinds.
// Observers of events.DeviceChanged are informed on every state change.
type Device interface {
	Name() string
	IsActivated() bool
	Type() DeviceType
	Observe(observer any, kind events.Kind, cb events.Callback) error
	Deobserve(observer any, kind events.Kind)
}

// OutputDevice is a device the game can switch on and off.
type OutputDevice interface {
	Device
	Activate()
	Deactivate()
}

// base holds what every device has in common.
type base struct {
	*events.Observable
	name      string
	activated bool
}

func newBase(bus *events.Bus, name string) base {
	return base{Observable: events.NewObservable(bus), name: name}
}

// Name returns the human-readable device name.
func (b *base) Name() string {
	return b.name
}

// IsActivated reports the current logical state.
func (b *base) IsActivated() bool {
	return b.activated
}

// InputDevice is a two-state input such as a switch or button.
type InputDevice struct {
	base
	inverted bool
}

// NewInputDevice creates an input. With inverted set the sensed polarity is
// flipped before edge detection, for normally-closed switches.
func NewInputDevice(bus *events.Bus, name string, inverted bool) *InputDevice {
	return &InputDevice{base: newBase(bus, name), inverted: inverted}
}

// Type implements Device.
func (d *InputDevice) Type() DeviceType {
	return TypeInput
}

// Inverted reports whether the raw level is flipped.
func (d *InputDevice) Inverted() bool {
	return d.inverted
}

// Set is called by the owning controller with the raw sensed level.
// Observers are informed only when the logical state actually changes.
func (d *InputDevice) Set(raw bool) {
	active := raw != d.inverted
	if active == d.activated {
		return
	}
	d.activated = active
	d.Inform(events.Event{Source: d, Kind: events.DeviceChanged, Active: active})
}

// Simulate forces the logical state, as if the switch had been physically
// pressed or released. Used by debug consoles and tests.
func (d *InputDevice) Simulate(active bool) {
	d.Set(active != d.inverted)
}

func (d *InputDevice) String() string {
	return fmt.Sprintf("%s:%s", d.Type(), d.name)
}

// BinaryOutputDevice is an on/off output such as a coil or lamp.
type BinaryOutputDevice struct {
	base
	controller BinaryOutputCapable
}

// NewBinaryOutputDevice creates an output owned by controller.
func NewBinaryOutputDevice(bus *events.Bus, name string, controller BinaryOutputCapable) *BinaryOutputDevice {
	return &BinaryOutputDevice{base: newBase(bus, name), controller: controller}
}

// Type implements Device.
func (d *BinaryOutputDevice) Type() DeviceType {
	return TypeBinaryOutput
}

// Set changes the desired state. The physical write happens on the
// controller's next Sync.
func (d *BinaryOutputDevice) Set(activated bool) {
	if d.activated == activated {
		return
	}
	d.activated = activated
	d.controller.UpdateBinary(d)
	d.Inform(events.Event{Source: d, Kind: events.DeviceChanged, Active: activated})
}

// Get returns the state the hardware will have after the next Sync.
func (d *BinaryOutputDevice) Get() bool {
	return d.activated
}

// Activate switches the output on.
func (d *BinaryOutputDevice) Activate() {
	d.Set(true)
}

// Deactivate switches the output off.
func (d *BinaryOutputDevice) Deactivate() {
	d.Set(false)
}

func (d *BinaryOutputDevice) String() string {
	return fmt.Sprintf("%s:%s", d.Type(), d.name)
}

// PwmOutputDevice is an output with an intensity, such as a dimmable LED.
type PwmOutputDevice struct {
	base
	controller   PwmOutputCapable
	intensity    int
	maxIntensity int
	lastActive   int
}

// NewPwmOutputDevice creates an intensity output owned by controller.
// maxIntensity is the largest value the hardware accepts.
func NewPwmOutputDevice(bus *events.Bus, name string, controller PwmOutputCapable, maxIntensity int) *PwmOutputDevice {
	return &PwmOutputDevice{
		base:         newBase(bus, name),
		controller:   controller,
		maxIntensity: maxIntensity,
	}
}

// Type implements Device.
func (d *PwmOutputDevice) Type() DeviceType {
	return TypePwmOutput
}

// SetIntensity clamps value to [0, MaxIntensity] and stores it.
// A non-zero value is remembered for Activate. Setting the current value
// again changes nothing and informs nobody.
func (d *PwmOutputDevice) SetIntensity(value int) {
	value = min(max(value, 0), d.maxIntensity)
	if value == d.intensity {
		return
	}

	if value > 0 {
		d.lastActive = value
	}
	d.intensity = value
	d.activated = value > 0

	d.controller.UpdatePwm(d)
	d.Inform(events.Event{Source: d, Kind: events.DeviceChanged, Active: d.activated, Value: value})
}

// Activate restores the last non-zero intensity, or the maximum if there
// never was one.
func (d *PwmOutputDevice) Activate() {
	value := d.lastActive
	if value == 0 {
		value = d.maxIntensity
	}
	d.SetIntensity(value)
}

// Deactivate sets the intensity to zero.
func (d *PwmOutputDevice) Deactivate() {
	d.SetIntensity(0)
}

// Intensity returns the desired intensity.
func (d *PwmOutputDevice) Intensity() int {
	return d.intensity
}

// MaxIntensity returns the largest accepted intensity.
func (d *PwmOutputDevice) MaxIntensity() int {
	return d.maxIntensity
}

func (d *PwmOutputDevice) String() string {
	return fmt.Sprintf("%s:%s", d.Type(), d.name)
}
