package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinball/controllers"
	"pinball/events"
	"pinball/hardware"
)

var errBroken = errors.New("broken link")

// failingController fails every Sync after the first n
type failingController struct {
	*controllers.Dummy
	okSyncs int
}

func (c *failingController) Sync() error {
	if c.Syncs >= c.okSyncs {
		return errBroken
	}
	return c.Dummy.Sync()
}

// orderController records the order controllers are synced in
type orderController struct {
	*controllers.Dummy
	log *[]string
}

func (c *orderController) Sync() error {
	*c.log = append(*c.log, c.Name())
	return c.Dummy.Sync()
}

func TestTickDrainsThenSyncs(t *testing.T) {
	bus := events.NewBus()
	var order []string
	a := &orderController{Dummy: controllers.NewDummy(bus, "a"), log: &order}
	b := &orderController{Dummy: controllers.NewDummy(bus, "b"), log: &order}
	e := New(bus, []hardware.Controller{a, b})

	in := a.In("switch", false)
	require.NoError(t, in.Observe(t, events.DeviceChanged, func(events.Event) {
		order = append(order, "callback")
	}))
	in.Simulate(true)

	require.NoError(t, e.Tick())
	assert.Equal(t, []string{"callback", "a", "b"}, order)
	assert.Equal(t, uint64(1), e.Frames())
}

func TestTickInformsTick(t *testing.T) {
	bus := events.NewBus()
	e := New(bus, nil)

	var ticks int
	require.NoError(t, e.Observe(t, events.Tick, func(ev events.Event) {
		assert.Same(t, e, ev.Source)
		ticks++
	}))

	require.NoError(t, e.Tick())
	require.NoError(t, e.Tick())
	assert.Equal(t, 2, ticks)
}

func TestTickDefersNestedInforms(t *testing.T) {
	bus := events.NewBus()
	ctrl := controllers.NewDummy(bus, "sim")
	e := New(bus, []hardware.Controller{ctrl})

	button := ctrl.In("button", false)
	lamp := ctrl.Out("lamp")
	var lampChanges int
	require.NoError(t, button.Observe(t, events.DeviceChanged, func(ev events.Event) { lamp.Set(ev.Active) }))
	require.NoError(t, lamp.Observe(t, events.DeviceChanged, func(events.Event) { lampChanges++ }))

	button.Simulate(true)
	require.NoError(t, e.Tick())
	assert.True(t, lamp.IsActivated())
	assert.Zero(t, lampChanges, "lamp notification belongs to the next frame")

	require.NoError(t, e.Tick())
	assert.Equal(t, 1, lampChanges)
}

func TestTickStopsAtFirstSyncError(t *testing.T) {
	bus := events.NewBus()
	broken := &failingController{Dummy: controllers.NewDummy(bus, "broken")}
	after := controllers.NewDummy(bus, "after")
	e := New(bus, []hardware.Controller{broken, after})

	err := e.Tick()
	require.ErrorIs(t, err, errBroken)
	assert.Contains(t, err.Error(), "broken")
	assert.Zero(t, after.Syncs)
	assert.Zero(t, e.Frames())
}

func TestRunStopsOnContext(t *testing.T) {
	bus := events.NewBus()
	ctrl := controllers.NewDummy(bus, "sim")
	e := New(bus, []hardware.Controller{ctrl}, WithFrameInterval(time.Millisecond), WithFPSInterval(0))

	// Stale events from before Run are dropped
	stale := ctrl.In("stale", false)
	var staleSeen bool
	require.NoError(t, stale.Observe(t, events.DeviceChanged, func(events.Event) { staleSeen = true }))
	stale.Simulate(true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.NoError(t, e.Run(ctx))
	assert.Positive(t, e.Frames())
	assert.False(t, staleSeen)
}

func TestRunReturnsSyncError(t *testing.T) {
	bus := events.NewBus()
	broken := &failingController{Dummy: controllers.NewDummy(bus, "broken"), okSyncs: 3}
	e := New(bus, []hardware.Controller{broken}, WithFrameInterval(time.Millisecond), WithFPSInterval(0))

	err := e.Run(context.Background())
	require.ErrorIs(t, err, errBroken)
	assert.Equal(t, uint64(3), e.Frames())
}

func TestRunReportsFPS(t *testing.T) {
	bus := events.NewBus()
	e := New(bus, nil, WithFrameInterval(time.Millisecond), WithFPSInterval(10*time.Millisecond))

	reports := make(chan int, 16)
	require.NoError(t, e.Observe(t, events.FPS, func(ev events.Event) {
		select {
		case reports <- ev.Value:
		default:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	select {
	case fps := <-reports:
		assert.Positive(t, fps)
	case <-time.After(time.Second):
		t.Fatal("no FPS report")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestDevicesAndControllers(t *testing.T) {
	bus := events.NewBus()
	a := controllers.NewDummy(bus, "a")
	b := controllers.NewDummy(bus, "b")
	a.In("x", false)
	b.Out("y")
	b.PwmOut("z", 10)

	e := New(bus, []hardware.Controller{a, b})
	assert.Len(t, e.Devices(), 3)
	require.Len(t, e.Controllers(), 2)
	assert.Equal(t, "a", e.Controllers()[0].Name())
	assert.Same(t, bus, e.Bus())
}

func TestShutdown(t *testing.T) {
	bus := events.NewBus()
	ctrl := controllers.NewDummy(bus, "sim")
	coil := ctrl.Out("coil")
	gi := ctrl.PwmOut("gi", 255)
	in := ctrl.In("switch", false)
	e := New(bus, []hardware.Controller{ctrl})

	coil.Activate()
	gi.SetIntensity(200)
	in.Simulate(true)

	require.NoError(t, e.Shutdown())
	assert.False(t, coil.IsActivated())
	assert.Zero(t, gi.Intensity())
	assert.True(t, in.IsActivated(), "inputs are left alone")
	assert.Equal(t, 1, ctrl.Syncs)
}

func TestShutdownJoinsErrors(t *testing.T) {
	bus := events.NewBus()
	one := &failingController{Dummy: controllers.NewDummy(bus, "one")}
	two := &failingController{Dummy: controllers.NewDummy(bus, "two")}
	ok := controllers.NewDummy(bus, "ok")
	e := New(bus, []hardware.Controller{one, ok, two})

	err := e.Shutdown()
	require.ErrorIs(t, err, errBroken)
	assert.Contains(t, err.Error(), "one")
	assert.Contains(t, err.Error(), "two")
	assert.Equal(t, 1, ok.Syncs)
}
