package mcu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"penplot/core"
	"penplot/protocol"
)

const (
	cmdAllocateOIDs = "allocate_oids"
	cmdConfigOut    = "config_digital_out"
	cmdUpdateOut    = "update_digital_out"
)

// DefaultMaxOIDs is the object table size requested at connect time
const DefaultMaxOIDs = 32

// Bridge drives the microcontroller's pins as plain digital outputs. Each
// pin becomes one digital_out object the first time it is requested and
// keeps that object for the life of the connection.
type Bridge struct {
	mcu *MCU

	// Timeout bounds each line write
	Timeout time.Duration

	mu      sync.Mutex
	maxOIDs int
	oids    map[core.GPIOPin]uint8
	owners  map[core.GPIOPin]string
	closed  bool
}

// NewBridge prepares the object table on m. maxOIDs <= 0 uses DefaultMaxOIDs.
func NewBridge(ctx context.Context, m *MCU, maxOIDs int) (*Bridge, error) {
	for _, name := range []string{cmdConfigOut, cmdUpdateOut} {
		if !m.Supports(name) {
			return nil, &core.InitializationError{
				Resource: "mcu",
				Err:      fmt.Errorf("firmware lacks %s", name),
			}
		}
	}
	if maxOIDs <= 0 {
		maxOIDs = DefaultMaxOIDs
	}

	if m.Supports(cmdAllocateOIDs) {
		err := m.SendCommand(ctx, cmdAllocateOIDs, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQUint(out, uint32(maxOIDs))
		})
		if err != nil {
			return nil, &core.InitializationError{Resource: "mcu", Err: err}
		}
	}

	return &Bridge{
		mcu:     m,
		Timeout: protocol.DefaultAckTimeout,
		maxOIDs: maxOIDs,
		oids:    make(map[core.GPIOPin]uint8),
		owners:  make(map[core.GPIOPin]string),
	}, nil
}

// RequestOutputs claims pins for consumer, configuring any pin not seen
// before and driving every pin to its initial level
func (b *Bridge) RequestOutputs(consumer string, pins []core.GPIOPin, initial []bool) (core.OutputLines, error) {
	if initial != nil && len(initial) != len(pins) {
		return nil, fmt.Errorf("%d initial values for %d pins", len(initial), len(pins))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.New("mcu bridge closed")
	}
	seen := make(map[core.GPIOPin]bool, len(pins))
	for _, p := range pins {
		if owner, ok := b.owners[p]; ok {
			return nil, fmt.Errorf("pin %d held by %s: %w", p, owner, core.ErrPinInUse)
		}
		if seen[p] {
			return nil, fmt.Errorf("pin %d requested twice: %w", p, core.ErrPinInUse)
		}
		seen[p] = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()

	lines := &bridgeLines{bridge: b, oids: make([]uint8, len(pins))}
	for i, p := range pins {
		value := initial != nil && initial[i]
		oid, err := b.configure(ctx, p, value)
		if err != nil {
			return nil, err
		}
		lines.oids[i] = oid
	}
	for _, p := range pins {
		b.owners[p] = consumer
	}
	lines.pins = append([]core.GPIOPin(nil), pins...)
	return lines, nil
}

// configure returns the object for pin, creating it on first use.
// Called with b.mu held.
func (b *Bridge) configure(ctx context.Context, pin core.GPIOPin, value bool) (uint8, error) {
	if oid, ok := b.oids[pin]; ok {
		return oid, b.update(ctx, oid, value)
	}
	if len(b.oids) >= b.maxOIDs {
		return 0, fmt.Errorf("pin %d: all %d mcu objects in use", pin, b.maxOIDs)
	}

	oid := uint8(len(b.oids))
	err := b.mcu.SendCommand(ctx, cmdConfigOut, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
		protocol.EncodeVLQUint(out, uint32(pin))
		protocol.EncodeVLQUint(out, bit(value))
		protocol.EncodeVLQUint(out, 0) // default_value
		protocol.EncodeVLQUint(out, 0) // max_duration
	})
	if err != nil {
		return 0, fmt.Errorf("configure pin %d: %w", pin, err)
	}
	b.oids[pin] = oid
	return oid, nil
}

func (b *Bridge) update(ctx context.Context, oid uint8, value bool) error {
	return b.mcu.SendCommand(ctx, cmdUpdateOut, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
		protocol.EncodeVLQUint(out, bit(value))
	})
}

func (b *Bridge) set(oid uint8, value bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()
	return b.update(ctx, oid, value)
}

// Close releases the connection
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.mcu.Close()
}

func bit(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

type bridgeLines struct {
	bridge   *Bridge
	pins     []core.GPIOPin
	oids     []uint8
	released bool
}

func (l *bridgeLines) SetPin(index int, value bool) error {
	if l.released {
		return core.ErrLinesReleased
	}
	if index < 0 || index >= len(l.oids) {
		return fmt.Errorf("line index %d out of range", index)
	}
	return l.bridge.set(l.oids[index], value)
}

func (l *bridgeLines) SetValues(values []bool) error {
	if l.released {
		return core.ErrLinesReleased
	}
	if len(values) != len(l.oids) {
		return fmt.Errorf("%d values for %d lines", len(values), len(l.oids))
	}
	for i, v := range values {
		if err := l.bridge.set(l.oids[i], v); err != nil {
			return err
		}
	}
	return nil
}

func (l *bridgeLines) Release() error {
	if l.released {
		return core.ErrLinesReleased
	}
	l.released = true

	b := l.bridge
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range l.pins {
		delete(b.owners, p)
	}
	return nil
}
