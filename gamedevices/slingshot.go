package gamedevices

import (
	"fmt"
	"log/slog"
	"time"

	"pinball/events"
	"pinball/hardware"
)

// Slingshot fires its coil for a short pulse on every detector hit, ignoring
// hits that follow the previous shot too closely.
type Slingshot struct {
	name     string
	detector hardware.Device
	coil     hardware.OutputDevice
	timer    *GameTimer
	logger   *slog.Logger

	now      func() time.Time
	debounce time.Duration
	lastShot time.Time
	shots    int
}

// NewSlingshot wires a slingshot to its detector switch and coil.
func NewSlingshot(bus *events.Bus, name string, detector hardware.Device, coil hardware.OutputDevice, opts ...Option) (*Slingshot, error) {
	if detector == nil || coil == nil {
		return nil, fmt.Errorf("%w: slingshot %s: missing device", hardware.ErrProgramming, name)
	}

	o := buildOptions("slingshot", name, opts)
	s := &Slingshot{
		name:     name,
		detector: detector,
		coil:     coil,
		timer:    NewGameTimer(bus, o.pulse),
		logger:   o.logger,
		now:      o.now,
		debounce: o.debounce,
	}

	if err := detector.Observe(s, events.DeviceChanged, s.onDetector); err != nil {
		return nil, fmt.Errorf("slingshot %s: observe detector: %w", name, err)
	}
	if err := s.timer.Observe(s, events.TimerExpired, func(events.Event) { s.coil.Deactivate() }); err != nil {
		return nil, fmt.Errorf("slingshot %s: observe timer: %w", name, err)
	}
	return s, nil
}

// Name returns the slingshot name.
func (s *Slingshot) Name() string {
	return s.name
}

// Shots counts accepted detector hits.
func (s *Slingshot) Shots() int {
	return s.shots
}

func (s *Slingshot) onDetector(ev events.Event) {
	if !ev.Active {
		return
	}

	now := s.now()
	if !s.lastShot.IsZero() && now.Sub(s.lastShot) < s.debounce {
		s.logger.Debug("shot ignored", "since", now.Sub(s.lastShot))
		return
	}
	s.lastShot = now
	s.shots++

	s.coil.Activate()
	s.timer.Restart()
}
