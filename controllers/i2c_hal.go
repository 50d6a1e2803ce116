package controllers

import (
	"fmt"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
	"tinygo.org/x/drivers"

	"pinball/hardware"
)

// I2CBus is the I2C transport register-based controllers talk through.
// Any bus with a Tx method works: periph buses on Linux, machine.I2C under
// TinyGo, or a recording fake in tests.
type I2CBus = drivers.I2C

// OpenI2C initialises the host drivers and opens an I2C bus by name
// ("" selects the first available bus, e.g. /dev/i2c-1 on a Raspberry Pi).
// Failure is a configuration error: without the bus nothing can start.
func OpenI2C(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: init host drivers: %w", hardware.ErrConfiguration, err)
	}

	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: open i2c bus %q: %w", hardware.ErrConfiguration, name, err)
	}
	return bus, nil
}

// writeRegister writes a single register in one transaction.
func writeRegister(bus I2CBus, addr uint16, reg, value uint8) error {
	return bus.Tx(addr, []byte{reg, value}, nil)
}

// readRegister reads a single register in one write-then-read transaction.
func readRegister(bus I2CBus, addr uint16, reg uint8) (uint8, error) {
	var buf [1]byte
	if err := bus.Tx(addr, []byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
