// Package gamedevices holds the playfield mechanisms built on top of raw
// devices: flippers, slingshots, inlanes, LEDs and the timers they use.
//
// Game devices subscribe to their inputs at construction and only ever run on
// the engine loop, inside a bus drain.
package gamedevices

import (
	"log/slog"
	"time"

	"pinball/hardware"
)

const (
	// DefaultEOSTimeout is how long a flipper stays energized waiting for
	// its end-of-stroke switch.
	DefaultEOSTimeout = 20 * time.Millisecond

	// DefaultSlingshotDebounce is the minimum time between two slingshot shots.
	DefaultSlingshotDebounce = 200 * time.Millisecond

	// DefaultSlingshotPulse is how long the slingshot coil stays on.
	DefaultSlingshotPulse = 20 * time.Millisecond
)

// Option tweaks a game device at construction.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	eosTimeout time.Duration
	debounce   time.Duration
	pulse      time.Duration
	now        func() time.Time
}

// WithLogger sets the logger for state transitions and warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEOSTimeout overrides the flipper end-of-stroke fallback timeout.
// A zero or negative d keeps the default.
func WithEOSTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.eosTimeout = d
		}
	}
}

// WithDebounce overrides the slingshot re-trigger window.
// A zero or negative d keeps the default.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithPulse overrides the slingshot coil on-time.
// A zero or negative d keeps the default.
func WithPulse(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pulse = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(kind, name string, opts []Option) options {
	o := options{
		eosTimeout: DefaultEOSTimeout,
		debounce:   DefaultSlingshotDebounce,
		pulse:      DefaultSlingshotPulse,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", kind, "device", name)
	return o
}

// setOutput switches an output device to on.
func setOutput(d hardware.OutputDevice, on bool) {
	if on {
		d.Activate()
	} else {
		d.Deactivate()
	}
}
