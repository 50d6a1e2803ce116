package gamedevices

import (
	"sync"
	"time"

	"pinball/events"
)

// GameTimer is a single-shot, cancellable and restartable timer. Expiry
// informs events.TimerExpired observers through the bus.
//
// Every start opens a new generation. An expiry belonging to an older
// generation is dropped when it fires and again when it is drained, so a
// Cancel or Restart issued from the loop is never followed by the stale
// expiry reaching an observer.
type GameTimer struct {
	*events.Observable

	mu      sync.Mutex
	timeout time.Duration
	timer   *time.Timer
	gen     uint64
	running bool
}

// NewGameTimer creates a stopped timer.
func NewGameTimer(bus *events.Bus, timeout time.Duration) *GameTimer {
	return &GameTimer{Observable: events.NewObservable(bus), timeout: timeout}
}

// Timeout returns the expiry delay.
func (t *GameTimer) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// SetTimeout changes the delay used by the next start.
func (t *GameTimer) SetTimeout(d time.Duration) {
	t.mu.Lock()
	t.timeout = d
	t.mu.Unlock()
}

// Running reports whether an expiry is pending.
func (t *GameTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Start arms the timer. It is a no-op if the timer is already running.
func (t *GameTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.arm()
}

// Restart cancels any pending expiry and arms the timer again.
func (t *GameTimer) Restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stop()
	t.arm()
}

// Cancel drops any pending expiry.
func (t *GameTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stop()
}

// Observe registers cb like events.Observable.Observe. Expiries from a
// generation that was cancelled or restarted after they fired are filtered
// out before cb runs.
func (t *GameTimer) Observe(observer any, kind events.Kind, cb events.Callback) error {
	if cb == nil || kind != events.TimerExpired {
		return t.Observable.Observe(observer, kind, cb)
	}
	return t.Observable.Observe(observer, kind, func(ev events.Event) {
		if !t.current(ev) {
			return
		}
		cb(ev)
	})
}

// arm must be called with mu held.
func (t *GameTimer) arm() {
	t.gen++
	t.running = true
	gen := t.gen
	t.timer = time.AfterFunc(t.timeout, func() { t.fire(gen) })
}

// stop must be called with mu held.
func (t *GameTimer) stop() {
	t.gen++
	t.running = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *GameTimer) fire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || !t.running {
		return
	}
	t.running = false
	t.timer = nil
	t.Inform(events.Event{Source: t, Kind: events.TimerExpired, Active: true, Value: int(gen)})
}

// current reports whether ev belongs to the latest generation.
func (t *GameTimer) current(ev events.Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint64(ev.Value) == t.gen
}
