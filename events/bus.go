package events

import "sync"

// entry is one queued callback invocation.
type entry struct {
	cb Callback
	ev Event
	fn func()
}

// Bus holds the queue of callbacks waiting for the next drain.
//
// Enqueueing is safe from any goroutine. Callbacks only ever run inside
// Process, which the engine calls from its own goroutine, so no two callbacks
// execute concurrently.
type Bus struct {
	mu    sync.Mutex
	queue []entry
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{queue: make([]entry, 0, 64)}
}

// enqueue appends a callback invocation for the next drain.
func (b *Bus) enqueue(cb Callback, ev Event) {
	b.mu.Lock()
	b.queue = append(b.queue, entry{cb: cb, ev: ev})
	b.mu.Unlock()
}

// Post queues fn to run on the next drain. Goroutines that need to touch
// loop-owned state (devices, state machines) hand their work over this way.
func (b *Bus) Post(fn func()) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.queue = append(b.queue, entry{fn: fn})
	b.mu.Unlock()
}

// Process swaps out the current queue and runs every entry in FIFO order.
// Anything enqueued while it runs is left for the next call.
// Returns the number of entries executed.
func (b *Bus) Process() int {
	b.mu.Lock()
	pending := b.queue
	b.queue = make([]entry, 0, cap(pending))
	b.mu.Unlock()

	for _, e := range pending {
		if e.fn != nil {
			e.fn()
			continue
		}
		e.cb(e.ev)
	}
	return len(pending)
}

// Pending returns the number of queued entries.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Clear drops everything queued so far.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.queue = b.queue[:0]
	b.mu.Unlock()
}
