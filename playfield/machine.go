// Package playfield assembles a running machine from its configuration:
// controllers, the devices on them and the game devices built on top.
package playfield

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"periph.io/x/periph/conn/gpio"

	"pinball/controllers"
	"pinball/engine"
	"pinball/events"
	"pinball/gamedevices"
	"pinball/hardware"
	"pinball/playfield/config"
)

// Machine holds everything Build created.
type Machine struct {
	config *config.MachineConfig
	bus    *events.Bus
	logger *slog.Logger

	controllers []hardware.Controller
	byName      map[string]hardware.Controller

	inputs  map[string]*hardware.InputDevice
	outputs map[string]*hardware.BinaryOutputDevice
	pwm     map[string]*hardware.PwmOutputDevice

	flippers   map[string]*gamedevices.Flipper
	slingshots map[string]*gamedevices.Slingshot
	inlanes    map[string]*gamedevices.Inlane
	leds       map[string]*gamedevices.Led
	pwmLeds    map[string]*gamedevices.PwmLed
	rgbLeds    map[string]*gamedevices.RGBLed
}

// Build creates the machine described by cfg on bus. Missing values in cfg
// are filled with their defaults first. Any failure closes whatever was
// already opened and aborts the build.
func Build(cfg *config.MachineConfig, bus *events.Bus, logger *slog.Logger, opts ...BuildOption) (*Machine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", hardware.ErrConfiguration, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Machine{
		config:     cfg,
		bus:        bus,
		logger:     logger.With("component", "playfield"),
		byName:     make(map[string]hardware.Controller),
		inputs:     make(map[string]*hardware.InputDevice),
		outputs:    make(map[string]*hardware.BinaryOutputDevice),
		pwm:        make(map[string]*hardware.PwmOutputDevice),
		flippers:   make(map[string]*gamedevices.Flipper),
		slingshots: make(map[string]*gamedevices.Slingshot),
		inlanes:    make(map[string]*gamedevices.Inlane),
		leds:       make(map[string]*gamedevices.Led),
		pwmLeds:    make(map[string]*gamedevices.PwmLed),
		rgbLeds:    make(map[string]*gamedevices.RGBLed),
	}

	steps := []func() error{
		func() error { return m.buildControllers(&o, logger) },
		m.buildDevices,
		func() error { return m.buildGameDevices(logger) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = m.Close()
			return nil, err
		}
	}

	m.logger.Info("machine built",
		"controllers", len(m.controllers),
		"devices", len(m.inputs)+len(m.outputs)+len(m.pwm),
		"flippers", len(m.flippers))
	return m, nil
}

func (m *Machine) buildControllers(o *buildOptions, logger *slog.Logger) error {
	for _, cc := range m.config.Controllers {
		ctrl, err := o.open(m.bus, cc, controllers.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("controller %q: %w", cc.Name, err)
		}
		m.controllers = append(m.controllers, ctrl)
		m.byName[cc.Name] = ctrl
	}
	return nil
}

func (m *Machine) buildDevices() error {
	for _, in := range m.config.Inputs {
		d, err := addInput(m.byName[in.Controller], in)
		if err != nil {
			return fmt.Errorf("input %q: %w", in.Name, err)
		}
		m.inputs[in.Name] = d
	}
	for _, out := range m.config.Outputs {
		d, err := addOutput(m.byName[out.Controller], out)
		if err != nil {
			return fmt.Errorf("output %q: %w", out.Name, err)
		}
		m.outputs[out.Name] = d
	}
	for _, p := range m.config.PwmOutputs {
		d, err := addPwmOutput(m.byName[p.Controller], p)
		if err != nil {
			return fmt.Errorf("pwm output %q: %w", p.Name, err)
		}
		m.pwm[p.Name] = d
	}
	return nil
}

func (m *Machine) buildGameDevices(logger *slog.Logger) error {
	for _, fc := range m.config.Flippers {
		f, err := gamedevices.NewFlipper(m.bus, fc.Name,
			m.inputs[fc.Button], m.inputs[fc.EOS],
			m.outputs[fc.Energized], m.outputs[fc.Hold],
			gamedevices.WithEOSTimeout(fc.EOSTimeout), gamedevices.WithLogger(logger))
		if err != nil {
			return err
		}
		m.flippers[fc.Name] = f
	}

	for _, sc := range m.config.Slingshots {
		s, err := gamedevices.NewSlingshot(m.bus, sc.Name,
			m.inputs[sc.Detector], m.outputs[sc.Coil],
			gamedevices.WithDebounce(sc.Debounce), gamedevices.WithPulse(sc.Pulse), gamedevices.WithLogger(logger))
		if err != nil {
			return err
		}
		m.slingshots[sc.Name] = s
	}

	for _, lc := range m.config.Inlanes {
		l, err := gamedevices.NewInlane(m.bus, lc.Name, m.inputs[lc.Lower], m.inputs[lc.Upper])
		if err != nil {
			return err
		}
		m.inlanes[lc.Name] = l
	}

	for _, lc := range m.config.Leds {
		if p, ok := m.pwm[lc.Output]; ok {
			m.pwmLeds[lc.Name] = gamedevices.NewPwmLed(p)
			continue
		}
		m.leds[lc.Name] = gamedevices.NewLed(m.outputs[lc.Output])
	}

	for _, rc := range m.config.RGBLeds {
		m.rgbLeds[rc.Name] = gamedevices.NewRGBLed(m.pwm[rc.Red], m.pwm[rc.Green], m.pwm[rc.Blue])
	}
	return nil
}

func addInput(ctrl hardware.Controller, in config.InputConfig) (*hardware.InputDevice, error) {
	switch c := ctrl.(type) {
	case *controllers.Dummy:
		return c.In(in.Name, in.Inverted), nil
	case *controllers.MCP23017:
		return c.In(in.Name, uint8(in.Pin), parseBank(in.Bank), in.Pull == config.PullUp, in.Inverted)
	case *controllers.RaspberryPi:
		return c.In(in.Name, in.Pin, parsePull(in.Pull), in.Inverted)
	}
	return nil, fmt.Errorf("%w: controller %s has no inputs", hardware.ErrConfiguration, ctrl.Name())
}

func addOutput(ctrl hardware.Controller, out config.OutputConfig) (*hardware.BinaryOutputDevice, error) {
	switch c := ctrl.(type) {
	case *controllers.Dummy:
		return c.Out(out.Name), nil
	case *controllers.MCP23017:
		return c.Out(out.Name, uint8(out.Pin), parseBank(out.Bank))
	case *controllers.PowerDriver16:
		return c.Out(out.Name, uint8(out.Board), parseBank(out.Bank), uint8(out.Pin))
	case *controllers.RaspberryPi:
		return c.Out(out.Name, out.Pin)
	}
	return nil, fmt.Errorf("%w: controller %s has no outputs", hardware.ErrConfiguration, ctrl.Name())
}

func addPwmOutput(ctrl hardware.Controller, p config.PwmOutputConfig) (*hardware.PwmOutputDevice, error) {
	switch c := ctrl.(type) {
	case *controllers.Dummy:
		return c.PwmOut(p.Name, p.Max), nil
	case *controllers.TLC4950:
		return c.PwmOut(p.Name, uint8(p.Pin))
	}
	return nil, fmt.Errorf("%w: controller %s has no pwm outputs", hardware.ErrConfiguration, ctrl.Name())
}

func parseBank(s string) controllers.Bank {
	if s == "B" {
		return controllers.BankB
	}
	return controllers.BankA
}

func parsePull(s string) gpio.Pull {
	switch s {
	case config.PullUp:
		return gpio.PullUp
	case config.PullDown:
		return gpio.PullDown
	}
	return gpio.Float
}

// Bus returns the event bus all devices inform on.
func (m *Machine) Bus() *events.Bus {
	return m.bus
}

// Config returns the configuration the machine was built from.
func (m *Machine) Config() *config.MachineConfig {
	return m.config
}

// Controllers returns the controllers in configuration order.
func (m *Machine) Controllers() []hardware.Controller {
	return append([]hardware.Controller(nil), m.controllers...)
}

// Engine creates the frame loop over this machine's controllers.
func (m *Machine) Engine(opts ...engine.Option) *engine.Engine {
	base := []engine.Option{
		engine.WithFrameInterval(m.config.Engine.FrameInterval),
		engine.WithFPSInterval(m.config.Engine.FPSInterval),
	}
	return engine.New(m.bus, m.controllers, append(base, opts...)...)
}

// Device finds any hardware device by name.
func (m *Machine) Device(name string) (hardware.Device, bool) {
	if d, ok := m.inputs[name]; ok {
		return d, true
	}
	if d, ok := m.outputs[name]; ok {
		return d, true
	}
	if d, ok := m.pwm[name]; ok {
		return d, true
	}
	return nil, false
}

// DeviceNames returns every hardware device name, sorted.
func (m *Machine) DeviceNames() []string {
	names := make([]string, 0, len(m.inputs)+len(m.outputs)+len(m.pwm))
	for n := range m.inputs {
		names = append(names, n)
	}
	for n := range m.outputs {
		names = append(names, n)
	}
	for n := range m.pwm {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Input finds an input device by name.
func (m *Machine) Input(name string) (*hardware.InputDevice, bool) {
	d, ok := m.inputs[name]
	return d, ok
}

// Output finds a binary output device by name.
func (m *Machine) Output(name string) (*hardware.BinaryOutputDevice, bool) {
	d, ok := m.outputs[name]
	return d, ok
}

// PwmOutput finds a PWM output device by name.
func (m *Machine) PwmOutput(name string) (*hardware.PwmOutputDevice, bool) {
	d, ok := m.pwm[name]
	return d, ok
}

// Flipper finds a flipper by name.
func (m *Machine) Flipper(name string) (*gamedevices.Flipper, bool) {
	f, ok := m.flippers[name]
	return f, ok
}

// Flippers returns every flipper.
func (m *Machine) Flippers() []*gamedevices.Flipper {
	all := make([]*gamedevices.Flipper, 0, len(m.flippers))
	for _, fc := range m.config.Flippers {
		all = append(all, m.flippers[fc.Name])
	}
	return all
}

// Slingshot finds a slingshot by name.
func (m *Machine) Slingshot(name string) (*gamedevices.Slingshot, bool) {
	s, ok := m.slingshots[name]
	return s, ok
}

// Inlane finds an inlane by name.
func (m *Machine) Inlane(name string) (*gamedevices.Inlane, bool) {
	l, ok := m.inlanes[name]
	return l, ok
}

// Led finds an on/off LED by name.
func (m *Machine) Led(name string) (*gamedevices.Led, bool) {
	l, ok := m.leds[name]
	return l, ok
}

// PwmLed finds a dimmable LED by name.
func (m *Machine) PwmLed(name string) (*gamedevices.PwmLed, bool) {
	l, ok := m.pwmLeds[name]
	return l, ok
}

// RGBLed finds an RGB LED by name.
func (m *Machine) RGBLed(name string) (*gamedevices.RGBLed, bool) {
	l, ok := m.rgbLeds[name]
	return l, ok
}

// Close releases the transports of every controller, last opened first.
func (m *Machine) Close() error {
	var errs []error
	for i := len(m.controllers) - 1; i >= 0; i-- {
		if c, ok := m.controllers[i].(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", m.controllers[i].Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
