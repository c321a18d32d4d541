// Package sequencer drives a plotter through a contour list: it plans the
// moves, runs them through the step synchronizer and the pen lift, and keeps
// the logical cursor.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"penplot/core"
	"penplot/plotter"
	"penplot/plotter/planner"
	"penplot/plotter/stepgen"
)

// PenLifter is the pen-lift actuator the sequencer drives
type PenLifter interface {
	Lift(ctx context.Context) error
	Lower(ctx context.Context) error
	State() plotter.PenState
	Cleanup() error
}

// Sequencer coordinates the axes for a plot. It owns the axes and their
// pins from New until Cleanup.
type Sequencer struct {
	x, y   *stepgen.Axis
	pen    PenLifter
	sync   *stepgen.Synchronizer
	driver core.GPIODriver
	logger *slog.Logger

	cursor   plotter.Cursor
	released bool

	sleeper    core.Sleeper
	closeDrive bool
}

// Option configures a Sequencer
type Option func(*Sequencer)

// WithLogger sets the logger; slog.Default() is used otherwise
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = l
	}
}

// WithSleeper replaces the pulse timing source
func WithSleeper(sl core.Sleeper) Option {
	return func(s *Sequencer) {
		s.sleeper = sl
	}
}

// WithPenLifter uses lifter instead of a stepper Z axis. The Z axis
// configuration passed to New is ignored.
func WithPenLifter(lifter PenLifter) Option {
	return func(s *Sequencer) {
		s.pen = lifter
	}
}

// WithDriverOwnership closes the driver as the last step of Cleanup
func WithDriverOwnership() Option {
	return func(s *Sequencer) {
		s.closeDrive = true
	}
}

// New claims the X, Y and Z axes on driver. It fails with a
// *core.InitializationError if any pin group cannot be claimed, after
// releasing the groups it did claim.
func New(driver core.GPIODriver, x, y plotter.AxisConfig, z plotter.ZAxisConfig, opts ...Option) (*Sequencer, error) {
	s := &Sequencer{
		driver:  driver,
		logger:  slog.Default(),
		sleeper: core.RealSleeper,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sequencer")

	if x.Name == "" {
		x.Name = "x"
	}
	if y.Name == "" {
		y.Name = "y"
	}
	if z.Name == "" {
		z.Name = "z"
	}

	var err error
	if s.x, err = stepgen.NewAxis(driver, x, s.sleeper); err != nil {
		return nil, err
	}
	if s.y, err = stepgen.NewAxis(driver, y, s.sleeper); err != nil {
		_ = s.x.Cleanup()
		return nil, err
	}
	if s.pen == nil {
		zaxis, err := stepgen.NewZAxis(driver, z, s.sleeper)
		if err != nil {
			_ = s.x.Cleanup()
			_ = s.y.Cleanup()
			return nil, err
		}
		s.pen = zaxis
	}

	s.sync = stepgen.NewSynchronizer(s.x, s.y)

	s.logger.Debug("axes claimed",
		"x_coupled", s.x.Coupled(),
		"y_coupled", s.y.Coupled(),
		"pen", s.pen.State().String())
	return s, nil
}

// Cursor returns the logical tool position
func (s *Sequencer) Cursor() plotter.Cursor {
	return s.cursor
}

// Pen returns the pen state
func (s *Sequencer) Pen() plotter.PenState {
	return s.pen.State()
}

// Pulses returns the pulses issued to the X and Y axes so far
func (s *Sequencer) Pulses() (x, y uint64) {
	return s.x.Pulses(), s.y.Pulses()
}

// Execute plots contours in order and returns to the origin. On a hardware
// fault the remaining plan is abandoned and the hardware is released before
// the fault is returned; the caller's own Cleanup is then a no-op.
// A cancelled ctx stops the plan between ticks and is returned as is.
// Contours with a point outside ±MaxCoordinate are rejected with
// plotter.ErrOutOfRange before anything moves.
func (s *Sequencer) Execute(ctx context.Context, contours []plotter.Contour) error {
	if s.released {
		return &core.HardwareFaultError{Axis: "all", Op: "execute", Err: core.ErrLinesReleased}
	}
	for i, c := range contours {
		for j, p := range c {
			if err := p.Check(); err != nil {
				return fmt.Errorf("contour %d point %d: %w", i, j, err)
			}
		}
	}

	plan := planner.Build(s.cursor.Point(), contours)
	stats := planner.Summarize(contours, plan)

	log := s.logger.With("run", uuid.NewString())
	if stats.Skipped > 0 {
		log.Warn("skipping degenerate contours", "count", stats.Skipped)
	}
	log.Info("plan built",
		"contours", stats.Contours,
		"moves", stats.Moves,
		"steps_x", stats.StepsX,
		"steps_y", stats.StepsY)

	err := s.run(ctx, log, plan)
	if err == nil {
		log.Info("plan complete", "cursor_x", s.cursor.X, "cursor_y", s.cursor.Y)
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Warn("plan interrupted", "cursor_x", s.cursor.X, "cursor_y", s.cursor.Y, "err", err)
		return err
	}

	log.Error("plan aborted", "cursor_x", s.cursor.X, "cursor_y", s.cursor.Y, "err", err)
	if cerr := s.Cleanup(); cerr != nil {
		log.Error("cleanup after fault", "err", cerr)
	}
	return err
}

func (s *Sequencer) run(ctx context.Context, log *slog.Logger, plan plotter.MotionPlan) error {
	current := -2
	for _, step := range plan {
		if step.Contour != current {
			current = step.Contour
			if current >= 0 {
				log.Debug("contour", "index", current)
			} else {
				log.Debug("return to origin")
			}
		}

		var err error
		switch step.Action {
		case plotter.ActionLift:
			err = s.pen.Lift(ctx)
		case plotter.ActionLower:
			err = s.pen.Lower(ctx)
		case plotter.ActionMove:
			err = s.move(ctx, step.Move, step.Target)
		}
		if err != nil {
			return fmt.Errorf("contour %d %s: %w", step.Contour, step.Action, err)
		}
	}
	return nil
}

// move issues one relative move and advances the cursor once every pulse
// has been written. Zero moves never reach the synchronizer.
func (s *Sequencer) move(ctx context.Context, m plotter.RelativeMove, target plotter.Point) error {
	if m.IsZero() {
		return nil
	}
	if err := s.sync.Move(ctx, m); err != nil {
		return err
	}
	s.cursor = plotter.Cursor{X: target.X, Y: target.Y}
	return nil
}

// MoveTo moves the tool to p with the pen in whatever state it is in. A
// target outside ±MaxCoordinate fails with plotter.ErrOutOfRange and
// leaves the cursor where it was.
func (s *Sequencer) MoveTo(ctx context.Context, p plotter.Point) error {
	if s.released {
		return &core.HardwareFaultError{Axis: "all", Op: "move", Err: core.ErrLinesReleased}
	}
	if err := p.Check(); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	return s.move(ctx, plotter.MoveBetween(s.cursor.Point(), p), p)
}

// Lift raises the pen
func (s *Sequencer) Lift(ctx context.Context) error {
	return s.pen.Lift(ctx)
}

// Lower drops the pen
func (s *Sequencer) Lower(ctx context.Context) error {
	return s.pen.Lower(ctx)
}

// Home lifts the pen and returns to the origin
func (s *Sequencer) Home(ctx context.Context) error {
	if err := s.Lift(ctx); err != nil {
		return err
	}
	return s.MoveTo(ctx, plotter.Origin)
}

// Cleanup de-energizes and releases every axis. It runs once; later calls
// return nil without touching the hardware.
func (s *Sequencer) Cleanup() error {
	if s.released {
		return nil
	}
	s.released = true

	errs := []error{
		s.x.Cleanup(),
		s.y.Cleanup(),
		s.pen.Cleanup(),
	}
	if s.closeDrive {
		errs = append(errs, s.driver.Close())
	}

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("cleanup", "err", err)
	} else {
		s.logger.Debug("hardware released")
	}
	return err
}
