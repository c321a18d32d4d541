package stepgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penplot/core"
	"penplot/plotter"
)

func countTicks(stepsX, stepsY uint32) (x, y, ticks int, paired int) {
	for t := range Schedule(stepsX, stepsY) {
		ticks++
		if t.Major == AxisX {
			x++
		} else {
			y++
		}
		if t.Minor {
			paired++
			if t.MinorAxis() == AxisX {
				x++
			} else {
				y++
			}
		}
	}
	return x, y, ticks, paired
}

func TestScheduleExactCounts(t *testing.T) {
	for a := uint32(0); a <= 40; a++ {
		for b := uint32(0); b <= 40; b++ {
			x, y, ticks, _ := countTicks(a, b)
			if x != int(a) || y != int(b) {
				t.Fatalf("Schedule(%d, %d): got x=%d y=%d", a, b, x, y)
			}
			if ticks != int(max(a, b)) {
				t.Fatalf("Schedule(%d, %d): got %d ticks, want %d", a, b, ticks, max(a, b))
			}
		}
	}
}

func TestScheduleLargeMoves(t *testing.T) {
	tests := []struct {
		x, y uint32
	}{
		{480, 1},
		{1, 480},
		{479, 480},
		{65535, 12345},
		{3, 100000},
	}

	for _, test := range tests {
		x, y, _, _ := countTicks(test.x, test.y)
		assert.Equal(t, int(test.x), x, "x pulses for %v", test)
		assert.Equal(t, int(test.y), y, "y pulses for %v", test)
	}
}

func TestScheduleDiagonal(t *testing.T) {
	for _, n := range []uint32{1, 2, 7, 100} {
		_, _, ticks, paired := countTicks(n, n)
		assert.Equal(t, int(n), ticks)
		assert.Equal(t, ticks, paired, "every tick pairs both axes for n=%d", n)
	}
}

func TestScheduleZeroEmitsNothing(t *testing.T) {
	for range Schedule(0, 0) {
		t.Fatal("zero move yielded a tick")
	}
}

func TestScheduleMajorAxis(t *testing.T) {
	for tick := range Schedule(10, 3) {
		require.Equal(t, AxisX, tick.Major)
	}
	for tick := range Schedule(3, 10) {
		require.Equal(t, AxisY, tick.Major)
	}
	// ties go to Y
	for tick := range Schedule(4, 4) {
		require.Equal(t, AxisY, tick.Major)
	}
}

func TestScheduleEvenSpacing(t *testing.T) {
	// 10 major ticks, 2 minor pulses: they must not be adjacent
	var minorAt []int
	i := 0
	for tick := range Schedule(10, 2) {
		if tick.Minor {
			minorAt = append(minorAt, i)
		}
		i++
	}
	require.Len(t, minorAt, 2)
	assert.GreaterOrEqual(t, minorAt[1]-minorAt[0], 4)
}

func TestScheduleStopsEarly(t *testing.T) {
	n := 0
	for range Schedule(100, 0) {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}

// recordingPulser logs calls so ordering can be asserted
type recordingPulser struct {
	name   string
	log    *[]string
	failAt int
	count  int
}

func (p *recordingPulser) SetDirection(bit uint8) error {
	*p.log = append(*p.log, p.name+"dir")
	return nil
}

func (p *recordingPulser) Pulse(time.Duration) error {
	p.count++
	if p.failAt > 0 && p.count == p.failAt {
		return errors.New("line write failed")
	}
	*p.log = append(*p.log, p.name)
	return nil
}

func TestSynchronizerOrdering(t *testing.T) {
	var log []string
	x := &recordingPulser{name: "x", log: &log}
	y := &recordingPulser{name: "y", log: &log}
	s := NewSynchronizer(x, y)

	err := s.Move(context.Background(), plotter.NewRelativeMove(-2, 4))
	require.NoError(t, err)

	// directions first, then Y (major) before X (minor) in every tick
	assert.Equal(t, []string{"xdir", "ydir", "y", "y", "x", "y", "y", "x"}, log)
}

func TestSynchronizerZeroMove(t *testing.T) {
	var log []string
	s := NewSynchronizer(&recordingPulser{name: "x", log: &log}, &recordingPulser{name: "y", log: &log})

	require.NoError(t, s.Move(context.Background(), plotter.NewRelativeMove(0, 0)))
	assert.Empty(t, log, "zero move must not touch direction lines")
}

func TestSynchronizerStopsOnFault(t *testing.T) {
	var log []string
	x := &recordingPulser{name: "x", log: &log, failAt: 3}
	y := &recordingPulser{name: "y", log: &log}
	s := NewSynchronizer(x, y)

	err := s.Move(context.Background(), plotter.NewRelativeMove(10, 0))
	require.Error(t, err)
	assert.Equal(t, []string{"xdir", "ydir", "x", "x"}, log)
}

func TestSynchronizerCancelBetweenTicks(t *testing.T) {
	driver := core.NewSimDriver()
	x, y := newTestXY(t, driver)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSynchronizer(&cancelAfter{Pulser: x, n: 7, cancel: cancel}, y)

	err := s.Move(ctx, plotter.NewRelativeMove(50, 0))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 7, driver.Pulses(21))
	assert.False(t, driver.Level(21), "step line left high after cancel")
}

type cancelAfter struct {
	Pulser
	n      int
	seen   int
	cancel context.CancelFunc
}

func (c *cancelAfter) Pulse(d time.Duration) error {
	err := c.Pulser.Pulse(d)
	c.seen++
	if c.seen == c.n {
		c.cancel()
	}
	return err
}

func TestSynchronizerDrivesHardware(t *testing.T) {
	driver := core.NewSimDriver()
	x, y := newTestXY(t, driver)
	s := NewSynchronizer(x, y)

	require.NoError(t, s.Move(context.Background(), plotter.NewRelativeMove(30, -12)))

	assert.Equal(t, 30, driver.Pulses(21))
	assert.Equal(t, 12, driver.Pulses(6))
	assert.True(t, driver.Level(20), "x direction should be forward")
	assert.False(t, driver.Level(5), "y direction should be reverse")
}
