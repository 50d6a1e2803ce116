package hardware

import (
	"errors"

	"pinball/events"
)

// Error kinds raised by controllers and devices. Wrap them with %w and test
// with errors.Is.
var (
	// ErrConfiguration means a controller's transport is missing or could not
	// be opened. Construction fails and the engine must not start.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport means a read or write failed during Sync. It is fatal for
	// the run: actuation writes are never retried.
	ErrTransport = errors.New("transport error")

	// ErrProgramming means the wiring itself is wrong, e.g. a physical pin
	// registered twice.
	ErrProgramming = events.ErrProgramming
)
