// Package engine runs the frame loop: drain the event bus, then sync every
// controller, then sleep.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"pinball/events"
	"pinball/hardware"
)

const (
	// DefaultFrameInterval is the sleep between two frames.
	DefaultFrameInterval = 2 * time.Millisecond

	// DefaultFPSInterval is how often the frame rate is reported.
	DefaultFPSInterval = time.Second
)

// Option tweaks the engine at construction.
type Option func(*Engine)

// WithFrameInterval sets the sleep between frames.
func WithFrameInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.frameInterval = d
	}
}

// WithFPSInterval sets the frame rate reporting period. Zero disables it.
func WithFPSInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.fpsInterval = d
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine owns the bus drain and all controller syncs. Every method except
// the FPS reporter runs on the goroutine that calls Run or Tick.
type Engine struct {
	*events.Observable

	bus         *events.Bus
	controllers []hardware.Controller
	logger      *slog.Logger

	frameInterval time.Duration
	fpsInterval   time.Duration

	frames atomic.Uint64
}

// New creates an engine over controllers, synced in the given order.
func New(bus *events.Bus, controllers []hardware.Controller, opts ...Option) *Engine {
	e := &Engine{
		Observable:    events.NewObservable(bus),
		bus:           bus,
		controllers:   append([]hardware.Controller(nil), controllers...),
		frameInterval: DefaultFrameInterval,
		fpsInterval:   DefaultFPSInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// Bus returns the event bus the engine drains.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Controllers returns the controllers in sync order.
func (e *Engine) Controllers() []hardware.Controller {
	return append([]hardware.Controller(nil), e.controllers...)
}

// Devices returns every device of every controller.
func (e *Engine) Devices() []hardware.Device {
	var all []hardware.Device
	for _, c := range e.controllers {
		all = append(all, c.Devices()...)
	}
	return all
}

// Frames returns the number of completed frames.
func (e *Engine) Frames() uint64 {
	return e.frames.Load()
}

// Tick runs one frame: inform Tick observers, drain the bus once, then sync
// every controller. The first sync error aborts the frame.
func (e *Engine) Tick() error {
	e.Inform(events.Event{Source: e, Kind: events.Tick})
	e.bus.Process()

	for _, c := range e.controllers {
		if err := c.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", c.Name(), err)
		}
	}
	e.frames.Add(1)
	return nil
}

// Run loops frames until ctx is done (returning nil) or a controller fails
// (returning its error). Events queued before Run are discarded.
func (e *Engine) Run(ctx context.Context) error {
	e.bus.Clear()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if e.fpsInterval > 0 {
		go e.reportFPS(ctx)
	}

	e.logger.Info("engine started", "controllers", len(e.controllers), "frame_interval", e.frameInterval)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped", "frames", e.Frames())
			return nil
		default:
		}

		if err := e.Tick(); err != nil {
			e.logger.Error("frame aborted", "error", err)
			return err
		}
		time.Sleep(e.frameInterval)
	}
}

// reportFPS informs FPS observers with the frames counted each interval.
func (e *Engine) reportFPS(ctx context.Context) {
	ticker := time.NewTicker(e.fpsInterval)
	defer ticker.Stop()

	last := e.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := e.Frames()
			e.Inform(events.Event{Source: e, Kind: events.FPS, Value: int(now - last)})
			last = now
		}
	}
}

// Shutdown turns every output off and syncs each controller once so the
// hardware is left safe. All errors are returned joined.
func (e *Engine) Shutdown() error {
	for _, d := range e.Devices() {
		if out, ok := d.(hardware.OutputDevice); ok {
			out.Deactivate()
		}
	}

	var errs []error
	for _, c := range e.controllers {
		if err := c.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}
