package gamedevices

import (
	"fmt"

	"pinball/events"
	"pinball/hardware"
)

// InlaneState is where the tracked ball was last seen.
type InlaneState uint8

const (
	InlaneNone InlaneState = iota
	InlaneLower
	InlaneUpper
)

func (s InlaneState) String() string {
	switch s {
	case InlaneNone:
		return "NONE"
	case InlaneLower:
		return "LOWER"
	case InlaneUpper:
		return "UPPER"
	}
	return fmt.Sprintf("INLANE_STATE(%d)", uint8(s))
}

// Inlane follows a ball through the shooter lane using a lower and an upper
// switch. Only one ball is tracked.
type Inlane struct {
	*events.Observable

	name  string
	lower hardware.Device
	upper hardware.Device
	state InlaneState
}

// NewInlane wires an inlane to its two switches.
func NewInlane(bus *events.Bus, name string, lower, upper hardware.Device) (*Inlane, error) {
	if lower == nil || upper == nil {
		return nil, fmt.Errorf("%w: inlane %s: missing device", hardware.ErrProgramming, name)
	}

	l := &Inlane{Observable: events.NewObservable(bus), name: name, lower: lower, upper: upper}
	if err := lower.Observe(l, events.DeviceChanged, func(ev events.Event) {
		if ev.Active {
			l.onLower()
		}
	}); err != nil {
		return nil, fmt.Errorf("inlane %s: observe lower: %w", name, err)
	}
	if err := upper.Observe(l, events.DeviceChanged, func(ev events.Event) {
		if ev.Active {
			l.onUpper()
		}
	}); err != nil {
		return nil, fmt.Errorf("inlane %s: observe upper: %w", name, err)
	}
	return l, nil
}

// Name returns the inlane name.
func (l *Inlane) Name() string {
	return l.name
}

// State returns the tracked ball position.
func (l *Inlane) State() InlaneState {
	return l.state
}

// Reset forgets the tracked ball.
func (l *Inlane) Reset() {
	l.state = InlaneNone
}

func (l *Inlane) onLower() {
	switch l.state {
	case InlaneNone:
		l.state = InlaneLower
		l.emit(events.InlaneStart)
	case InlaneLower:
		l.state = InlaneNone
		l.emit(events.InlaneFail)
	case InlaneUpper:
		l.state = InlaneNone
	}
}

func (l *Inlane) onUpper() {
	switch l.state {
	case InlaneLower:
		l.state = InlaneUpper
		l.emit(events.InlanePassed)
	case InlaneUpper:
		l.emit(events.InlaneBack)
	case InlaneNone:
		l.state = InlaneUpper
	}
}

func (l *Inlane) emit(kind events.Kind) {
	l.Inform(events.Event{Source: l, Kind: kind, Active: true, Value: int(l.state)})
}
