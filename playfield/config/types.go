// Package config describes a pinball machine in YAML: its controllers, the
// devices wired to them and the game devices built on top.
package config

import "time"

// Controller kinds.
const (
	KindDummy         = "dummy"
	KindMCP23017      = "mcp23017"
	KindTLC4950       = "tlc4950"
	KindPowerDriver16 = "powerdriver16"
	KindRaspberryPi   = "raspberrypi"
)

// Input pull resistor settings.
const (
	PullFloat = "float"
	PullUp    = "up"
	PullDown  = "down"
)

// MachineConfig is the complete machine configuration.
type MachineConfig struct {
	Engine      EngineConfig       `yaml:"engine"`
	Log         LogConfig          `yaml:"log"`
	Controllers []ControllerConfig `yaml:"controllers"`

	// Hardware devices.
	Inputs     []InputConfig     `yaml:"inputs"`
	Outputs    []OutputConfig    `yaml:"outputs"`
	PwmOutputs []PwmOutputConfig `yaml:"pwm_outputs"`

	// Game devices.
	Flippers   []FlipperConfig   `yaml:"flippers"`
	Slingshots []SlingshotConfig `yaml:"slingshots"`
	Inlanes    []InlaneConfig    `yaml:"inlanes"`
	Leds       []LedConfig       `yaml:"leds"`
	RGBLeds    []RGBLedConfig    `yaml:"rgb_leds"`
}

// EngineConfig holds the frame loop timing.
type EngineConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"` // Sleep between frames
	FPSInterval   time.Duration `yaml:"fps_interval"`   // Frame rate reporting period
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ControllerConfig describes one hardware controller.
type ControllerConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Bus     string `yaml:"bus"`     // I2C bus name, empty for the first bus
	Address uint16 `yaml:"address"` // I2C address
	Device  string `yaml:"device"`  // Serial device path
}

// InputConfig describes a switch or button.
type InputConfig struct {
	Name       string `yaml:"name"`
	Controller string `yaml:"controller"`
	Pin        int    `yaml:"pin"`  // -1 on raspberrypi for an unattached input
	Bank       string `yaml:"bank"` // A or B (mcp23017)
	Pull       string `yaml:"pull"` // float, up or down
	Inverted   bool   `yaml:"inverted"`
}

// OutputConfig describes an on/off output such as a coil or lamp.
type OutputConfig struct {
	Name       string `yaml:"name"`
	Controller string `yaml:"controller"`
	Pin        int    `yaml:"pin"`
	Bank       string `yaml:"bank"`  // A or B (mcp23017, powerdriver16)
	Board      int    `yaml:"board"` // Board index in the chain (powerdriver16)
}

// PwmOutputConfig describes a dimmable output.
type PwmOutputConfig struct {
	Name       string `yaml:"name"`
	Controller string `yaml:"controller"`
	Pin        int    `yaml:"pin"`
	Max        int    `yaml:"max"` // Intensity range, dummy only
}

// FlipperConfig wires a flipper.
type FlipperConfig struct {
	Name       string        `yaml:"name"`
	Button     string        `yaml:"button"`
	EOS        string        `yaml:"eos"`
	Energized  string        `yaml:"energized"`
	Hold       string        `yaml:"hold"`
	EOSTimeout time.Duration `yaml:"eos_timeout"`
}

// SlingshotConfig wires a slingshot.
type SlingshotConfig struct {
	Name     string        `yaml:"name"`
	Detector string        `yaml:"detector"`
	Coil     string        `yaml:"coil"`
	Debounce time.Duration `yaml:"debounce"`
	Pulse    time.Duration `yaml:"pulse"`
}

// InlaneConfig wires a ball passage detector.
type InlaneConfig struct {
	Name  string `yaml:"name"`
	Lower string `yaml:"lower"`
	Upper string `yaml:"upper"`
}

// LedConfig wires an LED to an output or PWM output.
type LedConfig struct {
	Name   string `yaml:"name"`
	Output string `yaml:"output"`
}

// RGBLedConfig wires an RGB LED to three PWM outputs.
type RGBLedConfig struct {
	Name  string `yaml:"name"`
	Red   string `yaml:"red"`
	Green string `yaml:"green"`
	Blue  string `yaml:"blue"`
}
