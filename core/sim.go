package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInjectedFault is returned by SimDriver writes selected with FailAtPulse
var ErrInjectedFault = errors.New("injected fault")

// PinWrite is one recorded line write
type PinWrite struct {
	Seq      int
	Consumer string
	Pin      GPIOPin
	Value    bool
}

// SimDriver is an in-memory GPIODriver. It backs the "sim" backend and the
// tests: it records every write, counts rising edges per pin, and can fail a
// chosen pulse to exercise fault handling.
type SimDriver struct {
	mu sync.Mutex

	claimed map[GPIOPin]string
	levels  map[GPIOPin]bool
	rising  map[GPIOPin]int
	writes  []PinWrite
	seq     int

	releases int
	closed   bool

	failPin   GPIOPin
	failPulse int // 0 = never
	failed    bool
}

// NewSimDriver creates an empty simulated chip
func NewSimDriver() *SimDriver {
	return &SimDriver{
		claimed: make(map[GPIOPin]string),
		levels:  make(map[GPIOPin]bool),
		rising:  make(map[GPIOPin]int),
	}
}

// Busy marks pins as held by another consumer
func (d *SimDriver) Busy(pins ...GPIOPin) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range pins {
		d.claimed[p] = "external"
	}
}

// FailAtPulse makes the n-th (1-based) attempt to drive pin high fail.
// Every later write fails as well, like a detached chip.
func (d *SimDriver) FailAtPulse(pin GPIOPin, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failPin = pin
	d.failPulse = n
}

// RequestOutputs claims pins for consumer
func (d *SimDriver) RequestOutputs(consumer string, pins []GPIOPin, initial []bool) (OutputLines, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("sim driver closed")
	}
	if initial != nil && len(initial) != len(pins) {
		return nil, fmt.Errorf("%d initial values for %d pins", len(initial), len(pins))
	}

	seen := make(map[GPIOPin]bool, len(pins))
	for _, p := range pins {
		if owner, ok := d.claimed[p]; ok || seen[p] {
			if owner == "" {
				owner = consumer
			}
			return nil, fmt.Errorf("pin %d held by %s: %w", p, owner, ErrPinInUse)
		}
		seen[p] = true
	}

	for i, p := range pins {
		d.claimed[p] = consumer
		v := false
		if initial != nil {
			v = initial[i]
		}
		d.levels[p] = v
	}

	return &simLines{
		driver:   d,
		consumer: consumer,
		pins:     append([]GPIOPin(nil), pins...),
	}, nil
}

// Close marks the driver closed
func (d *SimDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Pulses returns the number of low-to-high transitions written to pin
func (d *SimDriver) Pulses(pin GPIOPin) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rising[pin]
}

// Level returns the last level written to pin
func (d *SimDriver) Level(pin GPIOPin) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels[pin]
}

// Claimed reports whether pin is currently held
func (d *SimDriver) Claimed(pin GPIOPin) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.claimed[pin]
	return ok
}

// Releases returns how many line groups have been released
func (d *SimDriver) Releases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases
}

// Writes returns a copy of the write log
func (d *SimDriver) Writes() []PinWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]PinWrite(nil), d.writes...)
}

func (d *SimDriver) write(consumer string, pin GPIOPin, value bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failed {
		return ErrInjectedFault
	}
	if d.failPulse > 0 && pin == d.failPin && value && !d.levels[pin] {
		if d.rising[pin]+1 == d.failPulse {
			d.failed = true
			return ErrInjectedFault
		}
	}

	if value && !d.levels[pin] {
		d.rising[pin]++
	}
	d.levels[pin] = value
	d.seq++
	d.writes = append(d.writes, PinWrite{Seq: d.seq, Consumer: consumer, Pin: pin, Value: value})
	return nil
}

type simLines struct {
	driver   *SimDriver
	consumer string
	pins     []GPIOPin
	released bool
}

func (l *simLines) SetPin(index int, value bool) error {
	if l.released {
		return ErrLinesReleased
	}
	if index < 0 || index >= len(l.pins) {
		return fmt.Errorf("line index %d out of range", index)
	}
	return l.driver.write(l.consumer, l.pins[index], value)
}

func (l *simLines) SetValues(values []bool) error {
	if l.released {
		return ErrLinesReleased
	}
	if len(values) != len(l.pins) {
		return fmt.Errorf("%d values for %d lines", len(values), len(l.pins))
	}
	for i, v := range values {
		if err := l.driver.write(l.consumer, l.pins[i], v); err != nil {
			return err
		}
	}
	return nil
}

func (l *simLines) Release() error {
	if l.released {
		return ErrLinesReleased
	}
	l.released = true

	d := l.driver
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range l.pins {
		delete(d.claimed, p)
	}
	d.releases++
	return nil
}
