package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML machine description from path. ${VAR} references
// are expanded from the environment before parsing. Defaults are applied and
// the result is validated.
func LoadConfig(path string) (*MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML machine description.
func Parse(data []byte) (*MachineConfig, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg MachineConfig
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills in every value left at zero. It is idempotent, so a
// config that was already loaded can go through it again.
func (cfg *MachineConfig) ApplyDefaults() {
	if cfg.Engine.FrameInterval == 0 {
		cfg.Engine.FrameInterval = 2 * time.Millisecond
	}
	if cfg.Engine.FPSInterval == 0 {
		cfg.Engine.FPSInterval = time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	for i := range cfg.Controllers {
		cfg.Controllers[i].Kind = strings.ToLower(cfg.Controllers[i].Kind)
	}

	for i := range cfg.Inputs {
		in := &cfg.Inputs[i]
		in.Bank = defaultBank(in.Bank)
		if in.Pull == "" {
			in.Pull = PullFloat
		}
		in.Pull = strings.ToLower(in.Pull)
	}
	for i := range cfg.Outputs {
		cfg.Outputs[i].Bank = defaultBank(cfg.Outputs[i].Bank)
	}
	for i := range cfg.PwmOutputs {
		if cfg.PwmOutputs[i].Max == 0 {
			cfg.PwmOutputs[i].Max = 255
		}
	}

	for i := range cfg.Flippers {
		if cfg.Flippers[i].EOSTimeout == 0 {
			cfg.Flippers[i].EOSTimeout = 20 * time.Millisecond
		}
	}
	for i := range cfg.Slingshots {
		if cfg.Slingshots[i].Debounce == 0 {
			cfg.Slingshots[i].Debounce = 200 * time.Millisecond
		}
		if cfg.Slingshots[i].Pulse == 0 {
			cfg.Slingshots[i].Pulse = 20 * time.Millisecond
		}
	}
}

func defaultBank(bank string) string {
	if bank == "" {
		return "A"
	}
	return strings.ToUpper(bank)
}

// DefaultSimulationConfig returns a dummy-controller machine with a pair of
// flippers, one slingshot and a shooter lane, for running without hardware.
func DefaultSimulationConfig() *MachineConfig {
	cfg := &MachineConfig{
		Controllers: []ControllerConfig{{Name: "sim", Kind: KindDummy}},
		Inputs: []InputConfig{
			{Name: "left button", Controller: "sim"},
			{Name: "left eos", Controller: "sim"},
			{Name: "right button", Controller: "sim"},
			{Name: "right eos", Controller: "sim"},
			{Name: "left sling switch", Controller: "sim"},
			{Name: "lane lower", Controller: "sim"},
			{Name: "lane upper", Controller: "sim"},
		},
		Outputs: []OutputConfig{
			{Name: "left energized", Controller: "sim"},
			{Name: "left hold", Controller: "sim"},
			{Name: "right energized", Controller: "sim"},
			{Name: "right hold", Controller: "sim"},
			{Name: "left sling coil", Controller: "sim"},
			{Name: "shoot again", Controller: "sim"},
		},
		PwmOutputs: []PwmOutputConfig{
			{Name: "gi", Controller: "sim"},
		},
		Flippers: []FlipperConfig{
			{Name: "left", Button: "left button", EOS: "left eos", Energized: "left energized", Hold: "left hold"},
			{Name: "right", Button: "right button", EOS: "right eos", Energized: "right energized", Hold: "right hold"},
		},
		Slingshots: []SlingshotConfig{
			{Name: "left sling", Detector: "left sling switch", Coil: "left sling coil"},
		},
		Inlanes: []InlaneConfig{
			{Name: "shooter", Lower: "lane lower", Upper: "lane upper"},
		},
		Leds: []LedConfig{
			{Name: "shoot again", Output: "shoot again"},
			{Name: "gi", Output: "gi"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}
