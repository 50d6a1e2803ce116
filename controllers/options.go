// Package controllers contains the hardware controllers: a no-op dummy for
// simulation and one controller per supported transport.
//
// Every controller creates its own devices through factory methods and is
// the only writer of their physical state, once per Sync.
package controllers

import (
	"io"
	"log/slog"
)

// Option tweaks a controller at construction.
type Option func(*options)

type options struct {
	logger *slog.Logger
	closer io.Closer
}

// WithLogger sets the logger used for write/read tracing at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// withCloser hands ownership of the transport to the controller.
func withCloser(c io.Closer) Option {
	return func(o *options) {
		o.closer = c
	}
}

func buildOptions(kind, name string, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", kind, "controller", name)
	return o
}

// Close releases the transport if the controller owns it.
func (o *options) Close() error {
	if o.closer == nil {
		return nil
	}
	err := o.closer.Close()
	o.closer = nil
	return err
}
