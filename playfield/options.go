package playfield

import (
	"fmt"

	"pinball/controllers"
	"pinball/events"
	"pinball/hardware"
	"pinball/host/serial"
	"pinball/playfield/config"
)

// BuildOption replaces how Build reaches the hardware.
type BuildOption func(*buildOptions)

type buildOptions struct {
	i2c    func(bus string) (controllers.I2CBus, error)
	serial func(device string) (serial.Port, error)
	pins   controllers.PinResolver
}

// WithI2C makes I2C controllers use buses returned by open instead of
// opening them through periph.
func WithI2C(open func(bus string) (controllers.I2CBus, error)) BuildOption {
	return func(o *buildOptions) {
		o.i2c = open
	}
}

// WithSerial makes serial controllers use ports returned by open.
func WithSerial(open func(device string) (serial.Port, error)) BuildOption {
	return func(o *buildOptions) {
		o.serial = open
	}
}

// WithPinResolver makes the Raspberry Pi controller resolve pins with resolve
// instead of the periph registry.
func WithPinResolver(resolve controllers.PinResolver) BuildOption {
	return func(o *buildOptions) {
		o.pins = resolve
	}
}

// open creates the controller described by cc.
func (o *buildOptions) open(bus *events.Bus, cc config.ControllerConfig, opts ...controllers.Option) (hardware.Controller, error) {
	switch cc.Kind {
	case config.KindDummy:
		return controllers.NewDummy(bus, cc.Name), nil

	case config.KindMCP23017:
		if o.i2c == nil {
			return controller(controllers.OpenMCP23017(bus, cc.Bus, cc.Address, cc.Name, opts...))
		}
		i2c, err := o.i2c(cc.Bus)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", hardware.ErrConfiguration, err)
		}
		return controller(controllers.NewMCP23017(bus, i2c, cc.Address, cc.Name, opts...))

	case config.KindTLC4950:
		if o.i2c == nil {
			return controller(controllers.OpenTLC4950(bus, cc.Bus, cc.Address, cc.Name, opts...))
		}
		i2c, err := o.i2c(cc.Bus)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", hardware.ErrConfiguration, err)
		}
		return controller(controllers.NewTLC4950(bus, i2c, cc.Address, cc.Name, opts...))

	case config.KindPowerDriver16:
		if o.serial == nil {
			return controller(controllers.OpenPowerDriver16(bus, cc.Device, cc.Name, opts...))
		}
		port, err := o.serial(cc.Device)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", hardware.ErrConfiguration, err)
		}
		return controller(controllers.NewPowerDriver16(bus, port, cc.Name, opts...))

	case config.KindRaspberryPi:
		if o.pins == nil {
			return controller(controllers.OpenRaspberryPi(bus, cc.Name, opts...))
		}
		return controllers.NewRaspberryPi(bus, cc.Name, o.pins, opts...), nil
	}
	return nil, fmt.Errorf("%w: unknown controller kind %q", hardware.ErrConfiguration, cc.Kind)
}

// controller keeps a failed constructor from yielding a non-nil interface
// holding a nil pointer.
func controller[T hardware.Controller](c T, err error) (hardware.Controller, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
