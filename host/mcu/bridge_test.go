package mcu

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penplot/core"
	"penplot/plotter"
	"penplot/plotter/stepgen"
	"penplot/protocol"
)

var _ core.GPIODriver = (*Bridge)(nil)

// fakeMCU speaks just enough of the firmware side: identify, allocate_oids
// and the two digital_out commands
type fakeMCU struct {
	conn       net.Conn
	dictionary []byte
	commands   map[string]int

	mu      sync.Mutex
	oids    map[uint32]uint32 // oid -> pin
	levels  map[uint32]bool   // pin -> level
	rising  map[uint32]int
	allocs  uint32
	configs int
}

func newFakeMCU(t *testing.T, compress bool, commands map[string]int) (*fakeMCU, net.Conn) {
	t.Helper()
	dict, err := json.Marshal(map[string]any{
		"version":   "fake-1",
		"commands":  commands,
		"responses": map[string]int{"identify_response offset=%u data=%*s": 0},
		"config":    map[string]any{"CLOCK_FREQ": 12000000},
	})
	require.NoError(t, err)

	if compress {
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		_, _ = w.Write(dict)
		require.NoError(t, w.Close())
		dict = buf.Bytes()
	}

	host, conn := net.Pipe()
	f := &fakeMCU{
		conn:       conn,
		dictionary: dict,
		commands:   commands,
		oids:       make(map[uint32]uint32),
		levels:     make(map[uint32]bool),
		rising:     make(map[uint32]int),
	}
	go f.run()
	t.Cleanup(func() { conn.Close() })
	return f, host
}

func (f *fakeMCU) id(prefix string) int {
	for k, v := range f.commands {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			return v
		}
	}
	return -1
}

func (f *fakeMCU) run() {
	buf := make([]byte, 256)
	var pending []byte
	for {
		n, err := f.conn.Read(buf)
		if err != nil {
			return
		}
		pending = append(pending, buf[:n]...)
		for {
			msg, size, err := protocol.DecodeFrame(pending)
			if err != nil {
				break
			}
			pending = pending[size:]

			// apply the command before acknowledging it
			resp := f.handle(msg.Payload)
			next := protocol.NextSequence(msg.Sequence)
			ack, _ := protocol.EncodeFrame(next, nil)
			if _, err := f.conn.Write(ack); err != nil {
				return
			}
			if resp != nil {
				frame, _ := protocol.EncodeFrame(next, resp)
				if _, err := f.conn.Write(frame); err != nil {
					return
				}
			}
		}
	}
}

func (f *fakeMCU) handle(payload []byte) []byte {
	cmd, _ := protocol.DecodeVLQUint(&payload)
	args := func(n int) []uint32 {
		out := make([]uint32, n)
		for i := range out {
			out[i], _ = protocol.DecodeVLQUint(&payload)
		}
		return out
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch int(cmd) {
	case 1:
		a := args(2)
		offset, count := a[0], a[1]
		end := min(int(offset+count), len(f.dictionary))
		chunk := f.dictionary[min(int(offset), end):end]
		out := protocol.NewScratchOutput()
		protocol.EncodeVLQUint(out, 0)
		protocol.EncodeVLQUint(out, offset)
		protocol.EncodeVLQBytes(out, chunk)
		return append([]byte(nil), out.Result()...)
	case f.id("allocate_oids"):
		f.allocs = args(1)[0]
	case f.id("config_digital_out"):
		a := args(5)
		f.oids[a[0]] = a[1]
		f.levels[a[1]] = a[2] != 0
		f.configs++
	case f.id("update_digital_out"):
		a := args(2)
		pin := f.oids[a[0]]
		v := a[1] != 0
		if v && !f.levels[pin] {
			f.rising[pin]++
		}
		f.levels[pin] = v
	}
	return nil
}

func (f *fakeMCU) level(pin uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[pin]
}

func (f *fakeMCU) pulses(pin uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rising[pin]
}

var fullCommands = map[string]int{
	"identify offset=%u count=%c": 1,
	"allocate_oids count=%c":      2,
	"config_digital_out oid=%c pin=%u value=%c default_value=%c max_duration=%u": 14,
	"update_digital_out oid=%c value=%c":                                        16,
}

func connect(t *testing.T, host net.Conn) (*MCU, *Bridge) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := Connect(ctx, host, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	b, err := NewBridge(ctx, m, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return m, b
}

func TestConnectReadsCompressedDictionary(t *testing.T) {
	fake, host := newFakeMCU(t, true, fullCommands)
	m, _ := connect(t, host)

	assert.Equal(t, "fake-1", m.Dictionary().Version)
	id, ok := m.Dictionary().Command("update_digital_out")
	assert.True(t, ok)
	assert.Equal(t, uint16(16), id)
	_, ok = m.Dictionary().Command("update_digital")
	assert.False(t, ok, "prefix must stop at a word boundary")

	fake.mu.Lock()
	assert.Equal(t, uint32(DefaultMaxOIDs), fake.allocs)
	fake.mu.Unlock()
}

func TestBridgeDrivesAxis(t *testing.T) {
	fake, host := newFakeMCU(t, false, fullCommands)
	_, b := connect(t, host)

	axis, err := stepgen.NewAxis(b, plotter.AxisConfig{
		Name:   "x",
		Motors: []plotter.MotorConfig{{DirPin: 2, StepPin: 3}},
	}, core.NopSleeper)
	require.NoError(t, err)

	require.NoError(t, axis.SetDirection(1))
	for i := 0; i < 3; i++ {
		require.NoError(t, axis.Pulse(0))
	}
	assert.True(t, fake.level(2))
	assert.Equal(t, 3, fake.pulses(3))
	assert.False(t, fake.level(3))

	require.NoError(t, axis.Cleanup())
	assert.False(t, fake.level(2))

	// the pin keeps its object when claimed again
	_, err = b.RequestOutputs("again", []core.GPIOPin{3}, []bool{true})
	require.NoError(t, err)
	fake.mu.Lock()
	assert.Equal(t, 2, fake.configs)
	fake.mu.Unlock()
	assert.True(t, fake.level(3))
}

func TestBridgeRejectsBusyPins(t *testing.T) {
	_, host := newFakeMCU(t, false, fullCommands)
	_, b := connect(t, host)

	lines, err := b.RequestOutputs("a", []core.GPIOPin{5, 6}, nil)
	require.NoError(t, err)

	_, err = b.RequestOutputs("b", []core.GPIOPin{6}, nil)
	assert.ErrorIs(t, err, core.ErrPinInUse)
	_, err = b.RequestOutputs("c", []core.GPIOPin{7, 7}, nil)
	assert.ErrorIs(t, err, core.ErrPinInUse)

	require.NoError(t, lines.Release())
	assert.ErrorIs(t, lines.Release(), core.ErrLinesReleased)
	assert.ErrorIs(t, lines.SetPin(0, true), core.ErrLinesReleased)

	_, err = b.RequestOutputs("b", []core.GPIOPin{6}, nil)
	assert.NoError(t, err)
}

func TestNewBridgeNeedsDigitalOut(t *testing.T) {
	_, host := newFakeMCU(t, false, map[string]int{
		"identify offset=%u count=%c": 1,
		"get_uptime":                  5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m, err := Connect(ctx, host, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer m.Close()

	_, err = NewBridge(ctx, m, 0)
	var initErr *core.InitializationError
	assert.ErrorAs(t, err, &initErr)
}
