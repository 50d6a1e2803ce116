package events

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrProgramming reports a wiring mistake detected at setup time, such as a
// subscription without an observer or callback.
var ErrProgramming = errors.New("programming error")

// rule is a single observer registration.
type rule struct {
	observer any
	cb       Callback
}

// Observable keeps per-kind observer lists and queues their callbacks on a
// Bus. Embed it in anything that others want to watch.
type Observable struct {
	bus *Bus

	mu    sync.Mutex
	rules map[Kind][]rule
	seq   uint64
}

// NewObservable creates an observable that informs through bus.
// Panics if bus is nil, since nothing could ever be delivered.
func NewObservable(bus *Bus) *Observable {
	if bus == nil {
		panic("events: observable needs a bus")
	}
	return &Observable{
		bus:   bus,
		rules: make(map[Kind][]rule),
	}
}

// Bus returns the bus this observable informs through.
func (o *Observable) Bus() *Bus {
	return o.bus
}

// Observe registers cb to be queued whenever kind is informed.
// The same observer may register several callbacks. The observer is the key
// Deobserve matches on, so it must be comparable: use a pointer for structs
// holding slices, maps or funcs.
func (o *Observable) Observe(observer any, kind Kind, cb Callback) error {
	if observer == nil {
		return fmt.Errorf("%w: observe %s: nil observer", ErrProgramming, kind)
	}
	if !reflect.ValueOf(observer).Comparable() {
		return fmt.Errorf("%w: observe %s: observer %T is not comparable", ErrProgramming, kind, observer)
	}
	if cb == nil {
		return fmt.Errorf("%w: observe %s: nil callback", ErrProgramming, kind)
	}

	o.mu.Lock()
	o.rules[kind] = append(o.rules[kind], rule{observer: observer, cb: cb})
	o.mu.Unlock()
	return nil
}

// Deobserve drops every registration of observer for kind.
// Nothing happens if the observer was not registered.
func (o *Observable) Deobserve(observer any, kind Kind) {
	if !reflect.ValueOf(observer).Comparable() {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	rules := o.rules[kind]
	kept := rules[:0]
	for _, r := range rules {
		if r.observer != observer {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		delete(o.rules, kind)
		return
	}
	o.rules[kind] = kept
}

// Observers returns how many registrations exist for kind.
func (o *Observable) Observers(kind Kind) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.rules[kind])
}

// Inform queues ev for every observer of ev.Kind, in registration order.
// Callbacks run on the next drain of the bus, never synchronously.
func (o *Observable) Inform(ev Event) {
	o.mu.Lock()
	o.seq++
	ev.Seq = o.seq
	rules := o.rules[ev.Kind]
	// Copy so a Deobserve racing with the enqueue cannot shift entries.
	snapshot := make([]rule, len(rules))
	copy(snapshot, rules)
	o.mu.Unlock()

	for _, r := range snapshot {
		o.bus.enqueue(r.cb, ev)
	}
}
