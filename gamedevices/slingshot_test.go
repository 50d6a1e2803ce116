package gamedevices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinball/controllers"
	"pinball/events"
	"pinball/hardware"
)

func TestSlingshotDebounce(t *testing.T) {
	bus := events.NewBus()
	ctrl := controllers.NewDummy(bus, "sim")
	detector := ctrl.In("detector", false)
	coil := ctrl.Out("coil")

	now := time.Unix(1000, 0)
	s, err := NewSlingshot(bus, "left sling", detector, coil,
		WithClock(func() time.Time { return now }),
		WithPulse(time.Millisecond))
	require.NoError(t, err)

	var on, off int
	require.NoError(t, coil.Observe(t, events.DeviceChanged, func(ev events.Event) {
		if ev.Active {
			on++
		} else {
			off++
		}
	}))

	hit := func() {
		detector.Simulate(true)
		bus.Process()
		detector.Simulate(false)
		bus.Process()
	}

	hit()
	assert.Equal(t, 1, s.Shots())

	// Second hit inside the debounce window is ignored
	now = now.Add(150 * time.Millisecond)
	hit()
	assert.Equal(t, 1, s.Shots())

	require.Eventually(t, func() bool {
		bus.Process()
		return off == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, on)
	assert.False(t, coil.IsActivated())

	// Outside the window from the last accepted shot
	now = now.Add(100 * time.Millisecond)
	hit()
	assert.Equal(t, 2, s.Shots())
	require.Eventually(t, func() bool {
		bus.Process()
		return off == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, 2, on)
}

func TestSlingshotPulse(t *testing.T) {
	bus := events.NewBus()
	ctrl := controllers.NewDummy(bus, "sim")
	detector := ctrl.In("detector", false)
	coil := ctrl.Out("coil")

	_, err := NewSlingshot(bus, "right sling", detector, coil, WithPulse(time.Hour))
	require.NoError(t, err)

	detector.Simulate(true)
	bus.Process()
	assert.True(t, coil.IsActivated())

	// Releasing the switch does not cut the pulse short
	detector.Simulate(false)
	bus.Process()
	assert.True(t, coil.IsActivated())
}

func TestSlingshotMissingDevice(t *testing.T) {
	bus := events.NewBus()
	_, err := NewSlingshot(bus, "sling", nil, controllers.NewDummy(bus, "sim").Out("coil"))
	assert.ErrorIs(t, err, hardware.ErrProgramming)
}
