package controllers

import (
	"bytes"
	"errors"
)

var errWire = errors.New("wire fault")

// txCall is one recorded I2C transaction
type txCall struct {
	addr uint16
	w    []byte
	r    int
}

// scriptedI2C records every transaction and can be told to fail
type scriptedI2C struct {
	calls []txCall
	reads map[uint8]uint8 // register -> value returned on read
	fail  bool
}

func (b *scriptedI2C) Tx(addr uint16, w, r []byte) error {
	b.calls = append(b.calls, txCall{addr: addr, w: append([]byte(nil), w...), r: len(r)})
	if b.fail {
		return errWire
	}
	if len(r) > 0 && len(w) > 0 {
		r[0] = b.reads[w[0]]
	}
	return nil
}

// memPort is an in-memory serial port
type memPort struct {
	bytes.Buffer
	writes int
	short  bool
	fail   bool
	closed bool
}

func (p *memPort) Write(b []byte) (int, error) {
	p.writes++
	if p.fail {
		return 0, errWire
	}
	if p.short && len(b) > 1 {
		return p.Buffer.Write(b[:len(b)-1])
	}
	return p.Buffer.Write(b)
}

func (p *memPort) Flush() error { return nil }

func (p *memPort) Close() error {
	p.closed = true
	return nil
}
