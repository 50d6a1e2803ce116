// Package hardware defines the logical device model and the contract that
// hardware controllers fulfil.
//
// Devices hold the desired/sensed state. Controllers own the transport and
// move that state to and from the physical world once per Sync.
package hardware

// Controller drives a set of devices over one hardware transport.
type Controller interface {
	// Name identifies the controller in logs and errors
	Name() string

	// Devices returns every device created on this controller.
	// Intended for telemetry/debugging; game code uses the devices directly.
	Devices() []Device

	// Sync commits every output change accumulated since the previous call,
	// exactly once and batched per transport, then samples every input and
	// calls InputDevice.Set so changes are queued for the next drain.
	Sync() error
}

// BinaryOutputCapable is implemented by controllers that drive on/off outputs.
type BinaryOutputCapable interface {
	// UpdateBinary marks d for write-back on the next Sync
	UpdateBinary(d *BinaryOutputDevice)
}

// PwmOutputCapable is implemented by controllers that drive intensity outputs.
type PwmOutputCapable interface {
	// UpdatePwm marks d for write-back on the next Sync
	UpdatePwm(d *PwmOutputDevice)
}

// InputCapable is implemented by controllers that sample inputs.
type InputCapable interface {
	Inputs() []*InputDevice
}
