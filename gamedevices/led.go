package gamedevices

import (
	"pinball/hardware"
)

// MaxBrightness is the top of the LED brightness scale.
const MaxBrightness = 255

// Led is a single-colour LED on an on/off output.
type Led struct {
	out hardware.OutputDevice
}

// NewLed wraps an output device.
func NewLed(out hardware.OutputDevice) *Led {
	return &Led{out: out}
}

// On switches the LED on.
func (l *Led) On() { l.out.Activate() }

// Off switches the LED off.
func (l *Led) Off() { l.out.Deactivate() }

// Set switches the LED.
func (l *Led) Set(on bool) {
	setOutput(l.out, on)
}

// Toggle inverts the LED.
func (l *Led) Toggle() {
	l.Set(!l.out.IsActivated())
}

// IsOn reports the desired state.
func (l *Led) IsOn() bool {
	return l.out.IsActivated()
}

// PwmLed is a dimmable LED. Brightness runs 0..MaxBrightness whatever the
// resolution of the driver behind it.
type PwmLed struct {
	out *hardware.PwmOutputDevice
}

// NewPwmLed wraps a PWM output device.
func NewPwmLed(out *hardware.PwmOutputDevice) *PwmLed {
	return &PwmLed{out: out}
}

// SetBrightness scales b from 0..MaxBrightness to the device range,
// rounding to the nearest intensity.
func (l *PwmLed) SetBrightness(b int) {
	b = min(max(b, 0), MaxBrightness)
	l.out.SetIntensity((b*l.out.MaxIntensity() + MaxBrightness/2) / MaxBrightness)
}

// Brightness returns the current level scaled back to 0..MaxBrightness.
func (l *PwmLed) Brightness() int {
	maxIntensity := l.out.MaxIntensity()
	if maxIntensity == 0 {
		return 0
	}
	return (l.out.Intensity()*MaxBrightness + maxIntensity/2) / maxIntensity
}

// SetRaw sets the device intensity without scaling.
func (l *PwmLed) SetRaw(v int) {
	l.out.SetIntensity(v)
}

// On restores the last non-zero intensity.
func (l *PwmLed) On() { l.out.Activate() }

// Off drops the intensity to zero and remembers the previous level.
func (l *PwmLed) Off() { l.out.Deactivate() }

// RGBLed groups three dimmable channels.
type RGBLed struct {
	Red, Green, Blue *PwmLed
}

// NewRGBLed wraps three PWM output devices.
func NewRGBLed(red, green, blue *hardware.PwmOutputDevice) *RGBLed {
	return &RGBLed{Red: NewPwmLed(red), Green: NewPwmLed(green), Blue: NewPwmLed(blue)}
}

// Set applies a 0xRRGGBB colour.
func (l *RGBLed) Set(rgb uint32) {
	l.Red.SetBrightness(int((rgb >> 16) & 0xFF))
	l.Green.SetBrightness(int((rgb >> 8) & 0xFF))
	l.Blue.SetBrightness(int(rgb & 0xFF))
}

// Color returns the current colour as 0xRRGGBB.
func (l *RGBLed) Color() uint32 {
	return uint32(l.Red.Brightness())<<16 | uint32(l.Green.Brightness())<<8 | uint32(l.Blue.Brightness())
}

// On restores the colour the channels had before Off.
func (l *RGBLed) On() {
	l.Red.On()
	l.Green.On()
	l.Blue.On()
}

// Off turns all channels off. The colour is kept for On.
func (l *RGBLed) Off() {
	l.Red.Off()
	l.Green.Off()
	l.Blue.Off()
}
