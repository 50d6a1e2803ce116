package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type watcher struct {
	seen []Event
}

func (w *watcher) record(ev Event) {
	w.seen = append(w.seen, ev)
}

func TestInformIsDeferred(t *testing.T) {
	bus := NewBus()
	obs := NewObservable(bus)
	w := &watcher{}
	require.NoError(t, obs.Observe(w, DeviceChanged, w.record))

	obs.Inform(Event{Source: obs, Kind: DeviceChanged, Active: true})

	assert.Empty(t, w.seen, "callback must not run before a drain")
	assert.Equal(t, 1, bus.Pending())

	assert.Equal(t, 1, bus.Process())
	require.Len(t, w.seen, 1)
	assert.True(t, w.seen[0].Active)
	assert.Equal(t, 0, bus.Pending())
}

func TestInformDuringDrainRunsNextDrain(t *testing.T) {
	bus := NewBus()
	first := NewObservable(bus)
	second := NewObservable(bus)

	var order []string
	require.NoError(t, first.Observe(t, DeviceChanged, func(Event) {
		order = append(order, "first")
		second.Inform(Event{Source: second, Kind: DeviceChanged})
	}))
	require.NoError(t, second.Observe(t, DeviceChanged, func(Event) {
		order = append(order, "second")
	}))

	first.Inform(Event{Source: first, Kind: DeviceChanged})

	assert.Equal(t, 1, bus.Process())
	assert.Equal(t, []string{"first"}, order)
	assert.Equal(t, 1, bus.Pending())

	assert.Equal(t, 1, bus.Process())
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSelfInformDoesNotRecurse(t *testing.T) {
	bus := NewBus()
	obs := NewObservable(bus)

	calls := 0
	require.NoError(t, obs.Observe(t, Tick, func(ev Event) {
		calls++
		obs.Inform(ev)
	}))
	obs.Inform(Event{Kind: Tick})

	for i := 1; i <= 5; i++ {
		bus.Process()
		assert.Equal(t, i, calls)
	}
}

func TestFIFOOrderAcrossObservables(t *testing.T) {
	bus := NewBus()
	a := NewObservable(bus)
	b := NewObservable(bus)

	var got []string
	require.NoError(t, a.Observe(t, DeviceChanged, func(Event) { got = append(got, "a") }))
	require.NoError(t, b.Observe(t, DeviceChanged, func(Event) { got = append(got, "b") }))
	bus.Post(func() { got = append(got, "post") })

	b.Inform(Event{Kind: DeviceChanged})
	a.Inform(Event{Kind: DeviceChanged})
	b.Inform(Event{Kind: DeviceChanged})

	bus.Process()
	assert.Equal(t, []string{"post", "b", "a", "b"}, got)
}

func TestObserveRejectsNil(t *testing.T) {
	obs := NewObservable(NewBus())

	err := obs.Observe(nil, DeviceChanged, func(Event) {})
	assert.ErrorIs(t, err, ErrProgramming)

	err = obs.Observe(t, DeviceChanged, nil)
	assert.ErrorIs(t, err, ErrProgramming)

	tagged := taggedObserver{tags: []string{"left"}}
	err = obs.Observe(tagged, DeviceChanged, func(Event) {})
	assert.ErrorIs(t, err, ErrProgramming)
	assert.Zero(t, obs.Observers(DeviceChanged))

	assert.NotPanics(t, func() { obs.Deobserve(tagged, DeviceChanged) })

	var holder any = taggedObserver{}
	err = obs.Observe(struct{ inner any }{inner: holder}, DeviceChanged, func(Event) {})
	assert.ErrorIs(t, err, ErrProgramming)

	require.NoError(t, obs.Observe(&tagged, DeviceChanged, func(Event) {}))
	obs.Deobserve(&tagged, DeviceChanged)
	assert.Zero(t, obs.Observers(DeviceChanged))
}

// taggedObserver is a struct value that cannot be compared with ==
type taggedObserver struct {
	tags []string
}

func TestDeobserve(t *testing.T) {
	bus := NewBus()
	obs := NewObservable(bus)
	w1 := &watcher{}
	w2 := &watcher{}
	require.NoError(t, obs.Observe(w1, DeviceChanged, w1.record))
	require.NoError(t, obs.Observe(w2, DeviceChanged, w2.record))
	require.NoError(t, obs.Observe(w1, Tick, w1.record))

	obs.Deobserve(w1, DeviceChanged)
	assert.Equal(t, 1, obs.Observers(DeviceChanged))
	assert.Equal(t, 1, obs.Observers(Tick))

	// Absent registrations are ignored
	obs.Deobserve(w1, DeviceChanged)
	obs.Deobserve(&watcher{}, FPS)

	obs.Inform(Event{Kind: DeviceChanged})
	bus.Process()
	assert.Empty(t, w1.seen)
	assert.Len(t, w2.seen, 1)
}

func TestSequenceNumbers(t *testing.T) {
	bus := NewBus()
	obs := NewObservable(bus)
	w := &watcher{}
	require.NoError(t, obs.Observe(w, DeviceChanged, w.record))

	obs.Inform(Event{Kind: DeviceChanged})
	obs.Inform(Event{Kind: DeviceChanged})
	bus.Process()

	require.Len(t, w.seen, 2)
	assert.Less(t, w.seen[0].Seq, w.seen[1].Seq)
}

func TestConcurrentInform(t *testing.T) {
	bus := NewBus()
	obs := NewObservable(bus)
	count := 0
	require.NoError(t, obs.Observe(t, TimerExpired, func(Event) { count++ }))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				obs.Inform(Event{Kind: TimerExpired})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, bus.Process())
	assert.Equal(t, 800, count)
}

func TestClear(t *testing.T) {
	bus := NewBus()
	ran := false
	bus.Post(func() { ran = true })
	bus.Clear()

	assert.Equal(t, 0, bus.Process())
	assert.False(t, ran)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "INLANE_PASSED", InlanePassed.String())
	assert.Equal(t, "KIND(200)", Kind(200).String())
}
