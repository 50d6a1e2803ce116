package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinball/events"
	"pinball/hardware"
)

func TestDummyDevices(t *testing.T) {
	bus := events.NewBus()
	c := NewDummy(bus, "sim")

	in := c.In("start", false)
	out := c.Out("lamp")
	pwm := c.PwmOut("gi", 255)

	assert.Equal(t, "sim", c.Name())
	assert.Len(t, c.Devices(), 3)
	assert.Equal(t, []*hardware.InputDevice{in}, c.Inputs())

	out.Activate()
	pwm.SetIntensity(300)
	assert.True(t, out.IsActivated())
	assert.Equal(t, 255, pwm.Intensity())

	require.NoError(t, c.Sync())
	require.NoError(t, c.Sync())
	assert.Equal(t, 2, c.Syncs)
}

func TestDummyImplementsCapabilities(t *testing.T) {
	var c any = NewDummy(events.NewBus(), "sim")
	assert.Implements(t, (*hardware.Controller)(nil), c)
	assert.Implements(t, (*hardware.BinaryOutputCapable)(nil), c)
	assert.Implements(t, (*hardware.PwmOutputCapable)(nil), c)
	assert.Implements(t, (*hardware.InputCapable)(nil), c)
}
