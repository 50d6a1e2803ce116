package config

import (
	"fmt"
)

// capabilities lists what each controller kind can host.
var capabilities = map[string]struct{ inputs, outputs, pwm bool }{
	KindDummy:         {inputs: true, outputs: true, pwm: true},
	KindMCP23017:      {inputs: true, outputs: true},
	KindTLC4950:       {pwm: true},
	KindPowerDriver16: {outputs: true},
	KindRaspberryPi:   {inputs: true, outputs: true},
}

// device categories in the name index.
const (
	catInput = iota + 1
	catOutput
	catPwm
)

// Validate checks that the configuration is internally consistent: every
// name is unique, every reference resolves to a device of the right kind and
// every pin is legal for its controller.
func (c *MachineConfig) Validate() error {
	if len(c.Controllers) == 0 {
		return fmt.Errorf("config: at least one controller is required")
	}

	kinds := make(map[string]string, len(c.Controllers))
	for _, ctrl := range c.Controllers {
		if ctrl.Name == "" {
			return fmt.Errorf("config: controller name is required")
		}
		if _, dup := kinds[ctrl.Name]; dup {
			return fmt.Errorf("config: duplicate controller name %q", ctrl.Name)
		}
		if _, ok := capabilities[ctrl.Kind]; !ok {
			return fmt.Errorf("config: controller %q: unknown kind %q", ctrl.Name, ctrl.Kind)
		}
		switch ctrl.Kind {
		case KindMCP23017, KindTLC4950:
			if ctrl.Address == 0 || ctrl.Address > 0x7F {
				return fmt.Errorf("config: controller %q: i2c address 0x%02X out of range", ctrl.Name, ctrl.Address)
			}
		case KindPowerDriver16:
			if ctrl.Device == "" {
				return fmt.Errorf("config: controller %q: serial device is required", ctrl.Name)
			}
		}
		kinds[ctrl.Name] = ctrl.Kind
	}

	devices := make(map[string]int)
	claim := func(name string, cat int) error {
		if name == "" {
			return fmt.Errorf("config: device name is required")
		}
		if _, dup := devices[name]; dup {
			return fmt.Errorf("config: duplicate device name %q", name)
		}
		devices[name] = cat
		return nil
	}
	host := func(device, controller string, need func(k string) bool, what string) (string, error) {
		kind, ok := kinds[controller]
		if !ok {
			return "", fmt.Errorf("config: %s %q: unknown controller %q", what, device, controller)
		}
		if !need(kind) {
			return "", fmt.Errorf("config: %s %q: controller %q (%s) has no %ss", what, device, controller, kind, what)
		}
		return kind, nil
	}

	for _, in := range c.Inputs {
		if err := claim(in.Name, catInput); err != nil {
			return err
		}
		kind, err := host(in.Name, in.Controller, func(k string) bool { return capabilities[k].inputs }, "input")
		if err != nil {
			return err
		}
		if err := checkPull(in, kind); err != nil {
			return err
		}
		if err := checkPin(in.Name, kind, in.Pin, in.Bank, true); err != nil {
			return err
		}
	}

	for _, out := range c.Outputs {
		if err := claim(out.Name, catOutput); err != nil {
			return err
		}
		kind, err := host(out.Name, out.Controller, func(k string) bool { return capabilities[k].outputs }, "output")
		if err != nil {
			return err
		}
		if err := checkPin(out.Name, kind, out.Pin, out.Bank, false); err != nil {
			return err
		}
		if kind == KindPowerDriver16 && (out.Board < 0 || out.Board > 255) {
			return fmt.Errorf("config: output %q: board %d out of range 0..255", out.Name, out.Board)
		}
	}

	for _, pwm := range c.PwmOutputs {
		if err := claim(pwm.Name, catPwm); err != nil {
			return err
		}
		kind, err := host(pwm.Name, pwm.Controller, func(k string) bool { return capabilities[k].pwm }, "pwm output")
		if err != nil {
			return err
		}
		if kind == KindTLC4950 && (pwm.Pin < 0 || pwm.Pin > 7) {
			return fmt.Errorf("config: pwm output %q: channel %d out of range 0..7", pwm.Name, pwm.Pin)
		}
		if pwm.Max <= 0 {
			return fmt.Errorf("config: pwm output %q: max must be positive", pwm.Name)
		}
	}

	ref := func(owner, role, name string, cats ...int) error {
		cat, ok := devices[name]
		if !ok {
			return fmt.Errorf("config: %s: %s %q is not a configured device", owner, role, name)
		}
		for _, want := range cats {
			if cat == want {
				return nil
			}
		}
		return fmt.Errorf("config: %s: %s %q has the wrong device type", owner, role, name)
	}

	games := make(map[string]struct{})
	game := func(kind, name string) (string, error) {
		if name == "" {
			return "", fmt.Errorf("config: %s name is required", kind)
		}
		key := kind + "/" + name
		if _, dup := games[key]; dup {
			return "", fmt.Errorf("config: duplicate %s name %q", kind, name)
		}
		games[key] = struct{}{}
		return fmt.Sprintf("%s %q", kind, name), nil
	}

	for _, f := range c.Flippers {
		owner, err := game("flipper", f.Name)
		if err != nil {
			return err
		}
		for _, r := range []struct {
			role, name string
			cat        int
		}{
			{"button", f.Button, catInput},
			{"eos", f.EOS, catInput},
			{"energized", f.Energized, catOutput},
			{"hold", f.Hold, catOutput},
		} {
			if err := ref(owner, r.role, r.name, r.cat); err != nil {
				return err
			}
		}
	}

	for _, s := range c.Slingshots {
		owner, err := game("slingshot", s.Name)
		if err != nil {
			return err
		}
		if err := ref(owner, "detector", s.Detector, catInput); err != nil {
			return err
		}
		if err := ref(owner, "coil", s.Coil, catOutput); err != nil {
			return err
		}
	}

	for _, l := range c.Inlanes {
		owner, err := game("inlane", l.Name)
		if err != nil {
			return err
		}
		if err := ref(owner, "lower", l.Lower, catInput); err != nil {
			return err
		}
		if err := ref(owner, "upper", l.Upper, catInput); err != nil {
			return err
		}
	}

	for _, l := range c.Leds {
		owner, err := game("led", l.Name)
		if err != nil {
			return err
		}
		if err := ref(owner, "output", l.Output, catOutput, catPwm); err != nil {
			return err
		}
	}

	for _, l := range c.RGBLeds {
		owner, err := game("rgb led", l.Name)
		if err != nil {
			return err
		}
		channels := []struct{ role, name string }{
			{"red", l.Red},
			{"green", l.Green},
			{"blue", l.Blue},
		}
		for _, ch := range channels {
			if err := ref(owner, ch.role, ch.name, catPwm); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkPull(in InputConfig, kind string) error {
	switch in.Pull {
	case PullFloat, PullUp:
		return nil
	case PullDown:
		if kind == KindRaspberryPi || kind == KindDummy {
			return nil
		}
		return fmt.Errorf("config: input %q: %s has no pull-down resistors", in.Name, kind)
	}
	return fmt.Errorf("config: input %q: unknown pull %q", in.Name, in.Pull)
}

func checkPin(name, kind string, pin int, bank string, input bool) error {
	switch kind {
	case KindMCP23017, KindPowerDriver16:
		if pin < 0 || pin > 7 {
			return fmt.Errorf("config: %q: pin %d out of range 0..7", name, pin)
		}
		if bank != "A" && bank != "B" {
			return fmt.Errorf("config: %q: unknown bank %q", name, bank)
		}
	case KindRaspberryPi:
		if input && pin == -1 {
			return nil
		}
		if pin < 0 || pin > 27 {
			return fmt.Errorf("config: %q: BCM pin %d out of range 0..27", name, pin)
		}
	}
	return nil
}
