package stepgen

import (
	"context"
	"iter"
	"time"

	"penplot/plotter"
)

// AxisID names one of the two synchronized axes
type AxisID uint8

const (
	AxisX AxisID = iota
	AxisY
)

func (a AxisID) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}

// Tick is one scheduling step: the major axis always pulses, and the minor
// axis pulses after it when Minor is set.
type Tick struct {
	Major AxisID
	Minor bool
}

// MinorAxis returns the axis that is not the major one
func (t Tick) MinorAxis() AxisID {
	return 1 - t.Major
}

// Schedule rasterizes a move with an integer error accumulator. It yields
// max(stepsX, stepsY) ticks and sets Minor on exactly min(stepsX, stepsY)
// of them, spread as evenly as possible. Y is the major axis on ties.
func Schedule(stepsX, stepsY uint32) iter.Seq[Tick] {
	return func(yield func(Tick) bool) {
		major, minor := stepsY, stepsX
		majorAxis := AxisY
		if stepsX > stepsY {
			major, minor = stepsX, stepsY
			majorAxis = AxisX
		}
		if major == 0 {
			return
		}

		errAcc := int64(major / 2)
		for i := uint32(0); i < major; i++ {
			t := Tick{Major: majorAxis}
			errAcc -= int64(minor)
			if errAcc < 0 {
				t.Minor = true
				errAcc += int64(major)
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Pulser is the part of an axis the synchronizer drives
type Pulser interface {
	SetDirection(bit uint8) error
	Pulse(delay time.Duration) error
}

// Synchronizer moves two axes so both arrive at the same tick
type Synchronizer struct {
	x, y Pulser

	// Delay overrides each axis' configured pulse delay when positive
	Delay time.Duration
}

// NewSynchronizer pairs an X and a Y axis
func NewSynchronizer(x, y Pulser) *Synchronizer {
	return &Synchronizer{x: x, y: y}
}

// Move sets both direction signals and then walks the schedule, pulsing
// the major axis before the minor one within each tick. Cancellation is
// checked between ticks only. The first failed write aborts the move.
func (s *Synchronizer) Move(ctx context.Context, m plotter.RelativeMove) error {
	if m.IsZero() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.x.SetDirection(m.DirX); err != nil {
		return err
	}
	if err := s.y.SetDirection(m.DirY); err != nil {
		return err
	}

	for t := range Schedule(m.StepsX, m.StepsY) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.axis(t.Major).Pulse(s.Delay); err != nil {
			return err
		}
		if t.Minor {
			if err := s.axis(t.MinorAxis()).Pulse(s.Delay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Synchronizer) axis(id AxisID) Pulser {
	if id == AxisX {
		return s.x
	}
	return s.y
}
