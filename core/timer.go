package core

import (
	"context"
	"time"
)

// Default pulse timing, per phase (high, then low)
const (
	DefaultPulseDelay  = time.Millisecond
	DefaultZPulseDelay = 7 * time.Millisecond

	// DefaultDirSetup is held between a direction change and the first pulse
	DefaultDirSetup = 100 * time.Microsecond
)

// Sleeper blocks for one pulse phase. Hardware code never calls time.Sleep
// directly so tests and simulation can run without real delays.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleepFunc adapts a function to the Sleeper interface
type SleepFunc func(d time.Duration)

func (f SleepFunc) Sleep(d time.Duration) {
	f(d)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}

// RealSleeper blocks the calling goroutine with time.Sleep
var RealSleeper Sleeper = realSleeper{}

// NopSleeper returns immediately
var NopSleeper Sleeper = SleepFunc(func(time.Duration) {})

// SleepContext waits for d unless ctx is cancelled first. Used only for
// settle pauses between moves, never inside a pulse phase.
func SleepContext(ctx context.Context, s Sleeper, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if _, ok := s.(realSleeper); !ok {
		s.Sleep(d)
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
