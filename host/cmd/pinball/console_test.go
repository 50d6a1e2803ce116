package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinball/engine"
	"pinball/events"
	"pinball/logging"
	"pinball/playfield"
	"pinball/playfield/config"
)

func startConsole(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()

	cfg := config.DefaultSimulationConfig()
	for i := range cfg.Flippers {
		cfg.Flippers[i].EOSTimeout = time.Hour
	}

	logger := logging.New(io.Discard, slog.LevelInfo, logging.FormatText)
	m, err := playfield.Build(cfg, events.NewBus(), logger.Logger)
	require.NoError(t, err)

	e := m.Engine(engine.WithFrameInterval(time.Millisecond), engine.WithFPSInterval(0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	var out bytes.Buffer
	c, err := newConsole(&out, m, e, logger)
	require.NoError(t, err)
	c.ctx = ctx
	return c, &out
}

func TestConsolePressDrivesFlipper(t *testing.T) {
	c, out := startConsole(t)

	assert.False(t, c.execute("press left button"))
	require.Eventually(t, func() bool {
		out.Reset()
		c.execute("flippers")
		return bytes.Contains(out.Bytes(), []byte("ENERGIZED"))
	}, time.Second, 5*time.Millisecond)

	c.execute("release left button")
	require.Eventually(t, func() bool {
		out.Reset()
		c.execute("flippers")
		return !bytes.Contains(out.Bytes(), []byte("ENERGIZED"))
	}, time.Second, 5*time.Millisecond)
}

func TestConsoleOutputs(t *testing.T) {
	c, out := startConsole(t)

	c.execute("on shoot again")
	out.Reset()
	c.execute("list")
	assert.Regexp(t, `shoot again\s+BinaryOutputDevice\s+true`, out.String())

	out.Reset()
	c.execute("pwm gi 300")
	assert.Equal(t, "gi = 255\n", out.String())

	out.Reset()
	c.execute("pwm gi bright")
	assert.Contains(t, out.String(), "Invalid value")
}

func TestConsoleBlock(t *testing.T) {
	c, out := startConsole(t)

	c.execute("block right")
	out.Reset()
	c.execute("flippers")
	assert.Contains(t, out.String(), "BLOCKED")

	out.Reset()
	c.execute("block right")
	assert.Contains(t, out.String(), "unchanged")

	c.execute("unblock right")
	out.Reset()
	c.execute("flippers")
	assert.NotContains(t, out.String(), "BLOCKED")
}

func TestConsoleErrors(t *testing.T) {
	c, out := startConsole(t)

	c.execute("press nothing")
	assert.Contains(t, out.String(), `Unknown input: "nothing"`)

	out.Reset()
	c.execute("on left button")
	assert.Contains(t, out.String(), "Unknown output")

	out.Reset()
	c.execute("dance")
	assert.Contains(t, out.String(), "Unknown command: dance")

	out.Reset()
	c.execute("fps")
	assert.Contains(t, out.String(), "No frame rate")

	assert.False(t, c.execute("   "))
	assert.True(t, c.execute("quit"))
}

func TestConsoleLogLevel(t *testing.T) {
	c, out := startConsole(t)

	c.execute("loglevel debug")
	assert.Equal(t, slog.LevelDebug, c.logger.Level())

	out.Reset()
	c.execute("loglevel")
	assert.Contains(t, out.String(), "DEBUG")

	out.Reset()
	c.execute("loglevel shout")
	assert.Contains(t, out.String(), "unknown log level")
}

func TestConsoleTracksReportedFPS(t *testing.T) {
	c, out := startConsole(t)
	assert.Equal(t, 1, c.engine.Observers(events.FPS))

	c.engine.Inform(events.Event{Source: c.engine, Kind: events.FPS, Value: 480})
	require.Eventually(t, func() bool { return c.fps.Load() == 480 }, time.Second, time.Millisecond)

	out.Reset()
	c.execute("fps")
	assert.Contains(t, out.String(), "480 fps")
}
