package controllers

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinball/events"
	"pinball/hardware"
)

func TestPowerDriver16Banner(t *testing.T) {
	port := &memPort{}
	_, err := NewPowerDriver16(events.NewBus(), port, "relays")
	require.NoError(t, err)
	assert.Equal(t, "MY MAGIC PINBALL\r\n", port.String())
}

func TestPowerDriver16Frames(t *testing.T) {
	port := &memPort{}
	c, err := NewPowerDriver16(events.NewBus(), port, "relays")
	require.NoError(t, err)
	port.Reset()
	port.writes = 0

	left, err := c.Out("left flipper", 0, BankA, 0)
	require.NoError(t, err)
	_, err = c.Out("right flipper", 0, BankA, 1)
	require.NoError(t, err)
	knocker, err := c.Out("knocker", 1, BankB, 7)
	require.NoError(t, err)

	// First output on each bank sends its initial all-off frame
	require.NoError(t, c.Sync())
	assert.Equal(t, 1, port.writes)
	assert.Equal(t, []byte{0, 0, 0x00, 1, 1, 0x00}, port.Bytes())

	port.Reset()
	require.NoError(t, c.Sync())
	assert.Equal(t, 1, port.writes, "clean sync must not write")

	left.Activate()
	knocker.Activate()
	require.NoError(t, c.Sync())
	assert.Equal(t, 2, port.writes)
	assert.Equal(t, []byte{0, 0, 0x01, 1, 1, 0x80}, port.Bytes())

	port.Reset()
	left.Deactivate()
	require.NoError(t, c.Sync())
	assert.Equal(t, []byte{0, 0, 0x00}, port.Bytes())
}

func TestPowerDriver16Validation(t *testing.T) {
	c, err := NewPowerDriver16(events.NewBus(), &memPort{}, "relays")
	require.NoError(t, err)

	_, err = c.Out("bad", 0, BankA, 8)
	assert.ErrorIs(t, err, hardware.ErrProgramming)
	_, err = c.Out("bad", 0, Bank(3), 0)
	assert.ErrorIs(t, err, hardware.ErrProgramming)

	_, err = c.Out("one", 2, BankB, 4)
	require.NoError(t, err)
	_, err = c.Out("two", 2, BankB, 4)
	assert.ErrorIs(t, err, hardware.ErrProgramming)

	// Same pin on another board is a different relay
	_, err = c.Out("three", 3, BankB, 4)
	assert.NoError(t, err)
}

func TestPowerDriver16Errors(t *testing.T) {
	_, err := NewPowerDriver16(events.NewBus(), nil, "relays")
	assert.ErrorIs(t, err, hardware.ErrConfiguration)

	_, err = NewPowerDriver16(events.NewBus(), &memPort{fail: true}, "relays")
	assert.ErrorIs(t, err, hardware.ErrConfiguration)

	_, err = OpenPowerDriver16(events.NewBus(), "", "relays")
	assert.ErrorIs(t, err, hardware.ErrConfiguration)

	_, err = OpenPowerDriver16(events.NewBus(), filepath.Join(t.TempDir(), "ttyUSB9"), "relays")
	assert.ErrorIs(t, err, hardware.ErrConfiguration)

	port := &memPort{}
	c, err := NewPowerDriver16(events.NewBus(), port, "relays")
	require.NoError(t, err)
	_, err = c.Out("coil", 0, BankA, 0)
	require.NoError(t, err)

	port.short = true
	assert.ErrorIs(t, c.Sync(), hardware.ErrTransport)

	_, err = c.Out("coil2", 0, BankB, 0)
	require.NoError(t, err)
	port.short = false
	port.fail = true
	err = c.Sync()
	assert.ErrorIs(t, err, hardware.ErrTransport)
	assert.ErrorIs(t, err, errWire)
}

func TestPowerDriver16CloseOwnedPortOnly(t *testing.T) {
	port := &memPort{}
	c, err := NewPowerDriver16(events.NewBus(), port, "relays")
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.False(t, port.closed)

	port = &memPort{}
	c, err = NewPowerDriver16(events.NewBus(), port, "relays", withCloser(port))
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.True(t, port.closed)
}
