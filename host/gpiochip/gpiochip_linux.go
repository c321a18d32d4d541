//go:build linux

package gpiochip

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"

	"penplot/core"
)

// Driver is a core.GPIODriver backed by one GPIO chip
type Driver struct {
	chip   *gpiocdev.Chip
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Open opens the named chip ("gpiochip4" or "/dev/gpiochip4")
func Open(name string, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = DefaultChip
	}

	chip, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer("penplot"))
	if err != nil {
		return nil, &core.InitializationError{Resource: name, Err: err}
	}

	d := &Driver{
		chip:   chip,
		logger: logger.With("component", "gpiochip", "chip", chip.Name),
	}
	d.logger.Info("chip opened", "label", chip.Label, "lines", chip.Lines())
	return d, nil
}

// RequestOutputs requests pins as one line group driven to initial
func (d *Driver) RequestOutputs(consumer string, pins []core.GPIOPin, initial []bool) (core.OutputLines, error) {
	if initial != nil && len(initial) != len(pins) {
		return nil, fmt.Errorf("%d initial values for %d pins", len(initial), len(pins))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("gpio chip closed")
	}

	offsets := make([]int, len(pins))
	seen := make(map[core.GPIOPin]bool, len(pins))
	for i, p := range pins {
		if seen[p] {
			return nil, fmt.Errorf("pin %d requested twice: %w", p, core.ErrPinInUse)
		}
		seen[p] = true
		offsets[i] = int(p)
	}

	values := make([]int, len(pins))
	if initial != nil {
		values = levels(initial)
	}

	req, err := d.chip.RequestLines(offsets,
		gpiocdev.AsOutput(values...),
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("request lines %v: %w", offsets, requestError(err))
	}

	d.logger.Debug("lines requested", "consumer", consumer, "offsets", offsets)
	return &lines{req: req, values: values}, nil
}

// Close closes the chip. Lines already requested stay valid until released.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.chip.Close()
}

// requestError marks a line held by another process as core.ErrPinInUse
func requestError(err error) error {
	if errors.Is(err, unix.EBUSY) {
		return fmt.Errorf("%w: %w", core.ErrPinInUse, err)
	}
	return err
}

type lines struct {
	req      *gpiocdev.Lines
	values   []int
	released bool
}

// SetPin rewrites the whole group; the other lines keep their last level
func (l *lines) SetPin(index int, value bool) error {
	if l.released {
		return core.ErrLinesReleased
	}
	if index < 0 || index >= len(l.values) {
		return fmt.Errorf("line index %d out of range", index)
	}
	prev := l.values[index]
	l.values[index] = 0
	if value {
		l.values[index] = 1
	}
	if err := l.req.SetValues(l.values); err != nil {
		l.values[index] = prev
		return err
	}
	return nil
}

func (l *lines) SetValues(values []bool) error {
	if l.released {
		return core.ErrLinesReleased
	}
	if len(values) != len(l.values) {
		return fmt.Errorf("%d values for %d lines", len(values), len(l.values))
	}
	next := levels(values)
	if err := l.req.SetValues(next); err != nil {
		return err
	}
	l.values = next
	return nil
}

func (l *lines) Release() error {
	if l.released {
		return core.ErrLinesReleased
	}
	l.released = true
	return l.req.Close()
}
