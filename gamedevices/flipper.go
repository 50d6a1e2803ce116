package gamedevices

import (
	"fmt"
	"log/slog"

	"pinball/events"
	"pinball/hardware"
)

// FlipperState is the state of a flipper's coil driver.
type FlipperState uint8

const (
	// FlipperLow: button released, both coils off.
	FlipperLow FlipperState = iota
	// FlipperEnergized: power winding on, waiting for end-of-stroke.
	FlipperEnergized
	// FlipperHold: end-of-stroke reached, hold winding on.
	FlipperHold
	// FlipperEOSHold: end-of-stroke never reported, holding on the timer.
	FlipperEOSHold
	// FlipperBlocked: locked out (tilt), button ignored.
	FlipperBlocked
)

var flipperStateNames = [...]string{
	FlipperLow:       "LOW",
	FlipperEnergized: "ENERGIZED",
	FlipperHold:      "HOLD",
	FlipperEOSHold:   "EOSHOLD",
	FlipperBlocked:   "BLOCKED",
}

func (s FlipperState) String() string {
	if int(s) < len(flipperStateNames) {
		return flipperStateNames[s]
	}
	return fmt.Sprintf("FLIPPER_STATE(%d)", uint8(s))
}

// flipperCause identifies what drove a transition.
type flipperCause uint8

const (
	causeButton flipperCause = iota
	causeEOS
	causeTimer
)

// Flipper drives a two-winding flipper coil from a button and an
// end-of-stroke switch, falling back to a timer when the switch is silent.
type Flipper struct {
	*events.Observable

	name      string
	button    hardware.Device
	eos       hardware.Device
	energized hardware.OutputDevice
	hold      hardware.OutputDevice
	timer     *GameTimer
	logger    *slog.Logger

	state FlipperState
}

// NewFlipper wires a flipper to its inputs and outputs.
func NewFlipper(bus *events.Bus, name string, button, eos hardware.Device, energized, hold hardware.OutputDevice, opts ...Option) (*Flipper, error) {
	if button == nil || eos == nil || energized == nil || hold == nil {
		return nil, fmt.Errorf("%w: flipper %s: missing device", hardware.ErrProgramming, name)
	}

	o := buildOptions("flipper", name, opts)
	f := &Flipper{
		Observable: events.NewObservable(bus),
		name:       name,
		button:     button,
		eos:        eos,
		energized:  energized,
		hold:       hold,
		timer:      NewGameTimer(bus, o.eosTimeout),
		logger:     o.logger,
	}

	if err := button.Observe(f, events.DeviceChanged, func(ev events.Event) { f.handle(causeButton, ev.Active) }); err != nil {
		return nil, fmt.Errorf("flipper %s: observe button: %w", name, err)
	}
	if err := eos.Observe(f, events.DeviceChanged, func(ev events.Event) { f.handle(causeEOS, ev.Active) }); err != nil {
		return nil, fmt.Errorf("flipper %s: observe eos: %w", name, err)
	}
	if err := f.timer.Observe(f, events.TimerExpired, func(events.Event) { f.handle(causeTimer, true) }); err != nil {
		return nil, fmt.Errorf("flipper %s: observe timer: %w", name, err)
	}

	return f, nil
}

// Name returns the flipper name.
func (f *Flipper) Name() string {
	return f.name
}

// State returns the current state.
func (f *Flipper) State() FlipperState {
	return f.state
}

// Block locks the flipper out. Only a flipper at rest can be blocked.
func (f *Flipper) Block() bool {
	if f.state != FlipperLow {
		return false
	}
	f.enter(FlipperBlocked)
	return true
}

// Unblock releases a blocked flipper back to rest.
func (f *Flipper) Unblock() bool {
	if f.state != FlipperBlocked {
		return false
	}
	f.enter(FlipperLow)
	return true
}

// handle applies one input to the transition table.
func (f *Flipper) handle(cause flipperCause, active bool) {
	next, ok := f.next(cause, active)
	if !ok {
		return
	}
	if f.state == FlipperEnergized && next == FlipperEOSHold {
		f.logger.Warn("eos not detected", "timeout", f.timer.Timeout())
	}
	f.enter(next)
}

func (f *Flipper) next(cause flipperCause, active bool) (FlipperState, bool) {
	switch f.state {
	case FlipperLow:
		if cause == causeButton && active {
			return FlipperEnergized, true
		}
	case FlipperEnergized:
		switch {
		case cause == causeButton && !active:
			return FlipperLow, true
		case cause == causeEOS && active:
			return FlipperHold, true
		case cause == causeTimer:
			return FlipperEOSHold, true
		}
	case FlipperHold:
		switch {
		case cause == causeButton && !active:
			return FlipperLow, true
		case cause == causeEOS && !active:
			return FlipperEnergized, true
		}
	case FlipperEOSHold:
		switch {
		case cause == causeButton && !active:
			return FlipperLow, true
		case cause == causeEOS && active:
			return FlipperHold, true
		}
	}
	return f.state, false
}

func (f *Flipper) enter(next FlipperState) {
	f.logger.Debug("transition", "from", f.state, "to", next)
	f.state = next

	setOutput(f.energized, next == FlipperEnergized)
	setOutput(f.hold, next == FlipperHold || next == FlipperEOSHold)

	if next == FlipperEnergized {
		f.timer.Restart()
	} else {
		f.timer.Cancel()
	}

	f.Inform(events.Event{
		Source: f,
		Kind:   events.FlipperChanged,
		Active: next != FlipperLow && next != FlipperBlocked,
		Value:  int(next),
	})
}
