package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"

	"pinball/engine"
	"pinball/events"
	"pinball/hardware"
	"pinball/logging"
	"pinball/playfield"
)

func newReadline() (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pinball> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("help"),
			readline.PcItem("list"),
			readline.PcItem("press"),
			readline.PcItem("release"),
			readline.PcItem("on"),
			readline.PcItem("off"),
			readline.PcItem("pwm"),
			readline.PcItem("flippers"),
			readline.PcItem("block"),
			readline.PcItem("unblock"),
			readline.PcItem("fps"),
			readline.PcItem("loglevel"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, nil
}

// Console is the interactive debug shell. Commands that touch devices are
// handed to the engine loop through the bus and the console waits for them.
type Console struct {
	rl      *readline.Instance
	out     io.Writer
	machine *playfield.Machine
	engine  *engine.Engine
	logger  *logging.Logger

	ctx context.Context
	fps atomic.Int64
}

// NewConsole creates a console reading from rl.
func NewConsole(rl *readline.Instance, m *playfield.Machine, e *engine.Engine, logger *logging.Logger) (*Console, error) {
	c, err := newConsole(rl.Stdout(), m, e, logger)
	if err != nil {
		return nil, err
	}
	c.rl = rl
	return c, nil
}

func newConsole(out io.Writer, m *playfield.Machine, e *engine.Engine, logger *logging.Logger) (*Console, error) {
	c := &Console{out: out, machine: m, engine: e, logger: logger, ctx: context.Background()}
	c.fps.Store(-1)
	if err := e.Observe(c, events.FPS, func(ev events.Event) { c.fps.Store(int64(ev.Value)) }); err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	return c, nil
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	c.ctx = ctx
	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.execute(line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// execute runs one command line and reports whether the console should exit.
func (c *Console) execute(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "list", "ls":
		c.cmdList()
	case "press":
		c.cmdInput(args, true)
	case "release":
		c.cmdInput(args, false)
	case "on":
		c.cmdOutput(args, true)
	case "off":
		c.cmdOutput(args, false)
	case "pwm":
		c.cmdPwm(args)
	case "flippers":
		c.cmdFlippers()
	case "block":
		c.cmdBlock(args, true)
	case "unblock":
		c.cmdBlock(args, false)
	case "fps":
		c.cmdFPS()
	case "loglevel":
		c.cmdLogLevel(args)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Commands:
  list                 - List devices and their state
  press <input>        - Simulate a switch closing
  release <input>      - Simulate a switch opening
  on <output>          - Activate an output
  off <output>         - Deactivate an output
  pwm <output> <value> - Set a PWM output intensity
  flippers             - Show flipper states
  block <flipper>      - Lock a flipper out
  unblock <flipper>    - Release a blocked flipper
  fps                  - Show the last reported frame rate
  loglevel <level>     - Change the log level
  quit                 - Stop the machine and exit`)
}

// onLoop runs fn on the engine loop and waits for it to finish.
func (c *Console) onLoop(fn func()) bool {
	done := make(chan struct{})
	c.machine.Bus().Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Console) cmdList() {
	var lines []string
	c.onLoop(func() {
		for _, name := range c.machine.DeviceNames() {
			d, _ := c.machine.Device(name)
			line := fmt.Sprintf("  %-24s %-20s %v", name, d.Type(), d.IsActivated())
			if p, ok := d.(*hardware.PwmOutputDevice); ok {
				line += fmt.Sprintf(" (%d/%d)", p.Intensity(), p.MaxIntensity())
			}
			lines = append(lines, line)
		}
	})
	for _, l := range lines {
		fmt.Fprintln(c.out, l)
	}
}

func (c *Console) cmdInput(args []string, active bool) {
	name := strings.Join(args, " ")
	in, ok := c.machine.Input(name)
	if !ok {
		fmt.Fprintf(c.out, "Unknown input: %q\n", name)
		return
	}
	c.onLoop(func() { in.Simulate(active) })
}

func (c *Console) cmdOutput(args []string, active bool) {
	name := strings.Join(args, " ")
	d, ok := c.machine.Device(name)
	out, isOut := d.(hardware.OutputDevice)
	if !ok || !isOut {
		fmt.Fprintf(c.out, "Unknown output: %q\n", name)
		return
	}
	c.onLoop(func() {
		if active {
			out.Activate()
		} else {
			out.Deactivate()
		}
	})
}

func (c *Console) cmdPwm(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: pwm <output> <value>")
		return
	}
	value, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid value: %v\n", err)
		return
	}
	name := strings.Join(args[:len(args)-1], " ")
	p, ok := c.machine.PwmOutput(name)
	if !ok {
		fmt.Fprintf(c.out, "Unknown pwm output: %q\n", name)
		return
	}

	var intensity int
	c.onLoop(func() {
		p.SetIntensity(value)
		intensity = p.Intensity()
	})
	fmt.Fprintf(c.out, "%s = %d\n", name, intensity)
}

func (c *Console) cmdFlippers() {
	var lines []string
	c.onLoop(func() {
		for _, f := range c.machine.Flippers() {
			lines = append(lines, fmt.Sprintf("  %-12s %s", f.Name(), f.State()))
		}
	})
	for _, l := range lines {
		fmt.Fprintln(c.out, l)
	}
}

func (c *Console) cmdBlock(args []string, block bool) {
	name := strings.Join(args, " ")
	f, ok := c.machine.Flipper(name)
	if !ok {
		fmt.Fprintf(c.out, "Unknown flipper: %q\n", name)
		return
	}

	var changed bool
	var state fmt.Stringer
	c.onLoop(func() {
		if block {
			changed = f.Block()
		} else {
			changed = f.Unblock()
		}
		state = f.State()
	})
	if !changed {
		fmt.Fprintf(c.out, "%s unchanged (%v)\n", name, state)
	}
}

func (c *Console) cmdFPS() {
	fps := c.fps.Load()
	if fps < 0 {
		fmt.Fprintln(c.out, "No frame rate reported yet")
		return
	}
	fmt.Fprintf(c.out, "%d fps\n", fps)
}

func (c *Console) cmdLogLevel(args []string) {
	if len(args) != 1 {
		fmt.Fprintf(c.out, "Log level: %s\n", c.logger.Level())
		return
	}
	level, err := logging.ParseLevel(args[0])
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	c.logger.SetLevel(level)
	c.logger.Info("log level changed", slog.String("level", level.String()))
}
