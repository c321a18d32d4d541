package stepgen

import (
	"context"
	"errors"
	"time"

	"penplot/core"
	"penplot/plotter"
)

const DefaultZSteps = 100

// ZAxis is the pen-lift actuator: a fixed burst of pulses in a fixed
// direction for each transition. It has no tracked position, only a state.
type ZAxis struct {
	axis    *Axis
	steps   int
	downDir uint8
	settle  time.Duration
	sleeper core.Sleeper

	state plotter.PenState
}

// NewZAxis claims the pen-lift motor. The pen is assumed up.
func NewZAxis(driver core.GPIODriver, config plotter.ZAxisConfig, sleeper core.Sleeper) (*ZAxis, error) {
	if config.Coupled() {
		return nil, &core.InitializationError{
			Resource: "axis " + config.Name,
			Err:      errors.New("pen lift supports a single motor"),
		}
	}
	if config.PulseDelay <= 0 {
		config.PulseDelay = core.DefaultZPulseDelay
	}
	if config.Steps <= 0 {
		config.Steps = DefaultZSteps
	}
	if sleeper == nil {
		sleeper = core.RealSleeper
	}

	axis, err := NewAxis(driver, config.AxisConfig, sleeper)
	if err != nil {
		return nil, err
	}

	return &ZAxis{
		axis:    axis,
		steps:   config.Steps,
		downDir: config.DownDir & 1,
		settle:  config.Settle,
		sleeper: sleeper,
		state:   plotter.PenUp,
	}, nil
}

// State returns the current pen state
func (z *ZAxis) State() plotter.PenState {
	return z.state
}

// Lift raises the pen. Lifting a pen that is already up issues no pulses.
func (z *ZAxis) Lift(ctx context.Context) error {
	return z.transition(ctx, plotter.PenUp, 1-z.downDir)
}

// Lower drops the pen onto the paper
func (z *ZAxis) Lower(ctx context.Context) error {
	return z.transition(ctx, plotter.PenDown, z.downDir)
}

func (z *ZAxis) transition(ctx context.Context, target plotter.PenState, dir uint8) error {
	if z.state == target {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := z.axis.SetDirection(dir); err != nil {
		return err
	}
	for i := 0; i < z.steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := z.axis.Pulse(0); err != nil {
			return err
		}
	}
	z.state = target

	return core.SleepContext(ctx, z.sleeper, z.settle)
}

// Pulses returns the number of pulses issued to the pen-lift motor
func (z *ZAxis) Pulses() uint64 {
	return z.axis.Pulses()
}

// Cleanup de-energizes and releases the pen-lift motor
func (z *ZAxis) Cleanup() error {
	return z.axis.Cleanup()
}
