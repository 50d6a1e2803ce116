// Package events implements the deferred observer system that drives the game
// loop. Observables never call their observers directly: every inform is
// queued on a Bus and executed when the engine drains it.
package events

import "fmt"

// Kind identifies what an event is about. Each cause gets its own value so
// that two unrelated signals can never be mistaken for each other.
type Kind uint8

const (
	DeviceChanged  Kind = iota + 1 // Input/output device changed state
	TimerExpired                   // GameTimer ran out
	Tick                           // Engine started a new frame
	FPS                            // Periodic frame rate report
	FlipperChanged                 // Flipper state machine transition
	InlaneStart                    // Ball entered the inlane from the bottom
	InlaneFail                     // Ball fell back before reaching the top
	InlanePassed                   // Ball left the inlane into play
	InlaneBack                     // Ball returned into the inlane from the field
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case DeviceChanged:
		return "DEVICE_CHANGED"
	case TimerExpired:
		return "TIMER_EXPIRED"
	case Tick:
		return "TICK"
	case FPS:
		return "FPS"
	case FlipperChanged:
		return "FLIPPER_CHANGED"
	case InlaneStart:
		return "INLANE_START"
	case InlaneFail:
		return "INLANE_FAIL"
	case InlanePassed:
		return "INLANE_PASSED"
	case InlaneBack:
		return "INLANE_BACK"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// Event is the payload handed to a callback. It is captured when the inform
// happens, not when the callback runs.
type Event struct {
	Source any  // The observable that informed
	Kind   Kind // What happened
	Active bool // Device/derived boolean state at inform time
	Value  int  // Kind-specific value (intensity, frames, flipper state)
	Seq    uint64
}

// Callback receives a queued event during a drain.
type Callback func(Event)
