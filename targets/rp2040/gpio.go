//go:build rp2040

package main

import (
	"errors"
	"fmt"
	"machine"

	"penplot/core"
)

// RP2040 has GPIO0-GPIO29
const maxPin = 29

// RPGPIODriver implements core.GPIODriver on the RP2040's own pins
type RPGPIODriver struct {
	// Track claimed pins to prevent conflicts
	owners map[core.GPIOPin]string
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		owners: make(map[core.GPIOPin]string),
	}
}

func (d *RPGPIODriver) RequestOutputs(consumer string, pins []core.GPIOPin, initial []bool) (core.OutputLines, error) {
	if initial != nil && len(initial) != len(pins) {
		return nil, errors.New("initial values do not match pins")
	}

	seen := make(map[core.GPIOPin]bool, len(pins))
	for _, p := range pins {
		if p > maxPin {
			return nil, fmt.Errorf("gpio%d does not exist", p)
		}
		if owner, busy := d.owners[p]; busy {
			return nil, fmt.Errorf("gpio%d held by %s: %w", p, owner, core.ErrPinInUse)
		}
		if seen[p] {
			return nil, fmt.Errorf("gpio%d requested twice: %w", p, core.ErrPinInUse)
		}
		seen[p] = true
	}

	lines := &rpLines{driver: d, ids: pins, pins: make([]machine.Pin, len(pins))}
	for i, p := range pins {
		// GPIO0 = 0, GPIO1 = 1, etc.
		pin := machine.Pin(p)
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.Set(initial != nil && initial[i])

		lines.pins[i] = pin
		d.owners[p] = consumer
	}
	return lines, nil
}

// Close is a no-op; the pins belong to the chip
func (d *RPGPIODriver) Close() error {
	return nil
}

type rpLines struct {
	driver   *RPGPIODriver
	ids      []core.GPIOPin
	pins     []machine.Pin
	released bool
}

func (l *rpLines) SetPin(index int, value bool) error {
	if l.released {
		return core.ErrLinesReleased
	}
	if index < 0 || index >= len(l.pins) {
		return errors.New("line index out of range")
	}
	l.pins[index].Set(value)
	return nil
}

func (l *rpLines) SetValues(values []bool) error {
	if l.released {
		return core.ErrLinesReleased
	}
	if len(values) != len(l.pins) {
		return errors.New("values do not match lines")
	}
	for i, v := range values {
		l.pins[i].Set(v)
	}
	return nil
}

// Release unclaims the pins. They keep driving their last level so an
// active-low enable stays inactive.
func (l *rpLines) Release() error {
	if l.released {
		return core.ErrLinesReleased
	}
	l.released = true
	for _, p := range l.ids {
		delete(l.driver.owners, p)
	}
	return nil
}
