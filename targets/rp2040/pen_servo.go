//go:build rp2040

package main

import (
	"context"

	"tinygo.org/x/drivers/servo"

	"penplot/core"
	"penplot/plotter"
)

// servoLifter is a sequencer.PenLifter that swings a servo horn
type servoLifter struct {
	servo  servo.Servo
	config servoConfig
	state  plotter.PenState
	closed bool
}

func newServoLifter(cfg servoConfig) (*servoLifter, error) {
	s, err := servo.New(cfg.PWM, cfg.Pin)
	if err != nil {
		return nil, &core.InitializationError{Resource: "servo", Err: err}
	}
	if err := s.SetAngle(cfg.UpAngle); err != nil {
		return nil, &core.InitializationError{Resource: "servo", Err: err}
	}
	return &servoLifter{servo: s, config: cfg, state: plotter.PenUp}, nil
}

func (l *servoLifter) Lift(ctx context.Context) error {
	return l.swing(ctx, plotter.PenUp, l.config.UpAngle)
}

func (l *servoLifter) Lower(ctx context.Context) error {
	return l.swing(ctx, plotter.PenDown, l.config.DownAngle)
}

func (l *servoLifter) swing(ctx context.Context, target plotter.PenState, angle int) error {
	if l.state == target {
		return nil
	}
	if l.closed {
		return &core.HardwareFaultError{Axis: "z", Op: "servo", Err: core.ErrLinesReleased}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.servo.SetAngle(angle); err != nil {
		return &core.HardwareFaultError{Axis: "z", Op: "servo", Err: err}
	}
	l.state = target
	return core.SleepContext(ctx, core.RealSleeper, l.config.Settle)
}

func (l *servoLifter) State() plotter.PenState {
	return l.state
}

// Cleanup parks the pen up
func (l *servoLifter) Cleanup() error {
	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.servo.SetAngle(l.config.UpAngle); err != nil {
		return &core.HardwareFaultError{Axis: "z", Op: "servo", Err: err}
	}
	l.state = plotter.PenUp
	return nil
}
