package stepgen

import (
	"errors"
	"fmt"
	"time"

	"penplot/core"
	"penplot/plotter"
)

// Line positions inside a motor's claimed group. Optional lines follow in
// the order MotorConfig.Pins lists them.
const (
	lineDir  = 0
	lineStep = 1
)

// Axis drives one logical axis: a single stepper, or two coupled steppers
// that always receive the same step in the same tick.
type Axis struct {
	name    string
	config  plotter.AxisConfig
	motors  []*motor
	sleeper core.Sleeper

	direction uint8
	pulses    uint64
	released  bool
}

// motor is one physical driver and the lines it owns
type motor struct {
	config plotter.MotorConfig
	lines  core.OutputLines
	width  int

	// optional line indexes, -1 when not wired
	ms1    int
	ms2    int
	enable int
}

// NewAxis claims the pins of every motor on the axis and enables the
// drivers with the configured microstep mode. If any group cannot be
// claimed the groups already held are released again.
func NewAxis(driver core.GPIODriver, config plotter.AxisConfig, sleeper core.Sleeper) (*Axis, error) {
	if len(config.Motors) == 0 {
		return nil, &core.InitializationError{
			Resource: "axis " + config.Name,
			Err:      errors.New("no motors configured"),
		}
	}
	if sleeper == nil {
		sleeper = core.RealSleeper
	}
	if config.PulseDelay <= 0 {
		config.PulseDelay = core.DefaultPulseDelay
	}
	if config.DirSetup <= 0 {
		config.DirSetup = core.DefaultDirSetup
	}

	axis := &Axis{
		name:    config.Name,
		config:  config,
		sleeper: sleeper,
	}

	for i, mc := range config.Motors {
		m := newMotor(mc)
		consumer := fmt.Sprintf("penplot-%s%d", config.Name, i+1)

		lines, err := driver.RequestOutputs(consumer, mc.Pins(), axis.enabledLevels(m))
		if err != nil {
			for _, held := range axis.motors {
				_ = held.lines.Release()
			}
			return nil, &core.InitializationError{
				Resource: fmt.Sprintf("axis %s motor %d", config.Name, i+1),
				Err:      err,
			}
		}
		m.lines = lines
		axis.motors = append(axis.motors, m)
	}

	return axis, nil
}

func newMotor(mc plotter.MotorConfig) *motor {
	m := &motor{config: mc, ms1: -1, ms2: -1, enable: -1}
	next := lineStep + 1
	if mc.MS1Pin != nil {
		m.ms1 = next
		next++
	}
	if mc.MS2Pin != nil {
		m.ms2 = next
		next++
	}
	if mc.EnablePin != nil {
		m.enable = next
		next++
	}
	m.width = next
	return m
}

// enabledLevels is the line state with the driver energized: direction and
// step low, microstep pair applied, enable asserted.
func (a *Axis) enabledLevels(m *motor) []bool {
	levels := make([]bool, m.width)
	ms1, ms2 := a.config.Microstep.Pins()
	if m.ms1 >= 0 {
		levels[m.ms1] = ms1
	}
	if m.ms2 >= 0 {
		levels[m.ms2] = ms2
	}
	if m.enable >= 0 {
		levels[m.enable] = !a.ActiveLowEnable()
	}
	return levels
}

// disabledLevels zeroes every output and holds enable inactive
func (a *Axis) disabledLevels(m *motor) []bool {
	levels := make([]bool, m.width)
	if m.enable >= 0 {
		levels[m.enable] = a.ActiveLowEnable()
	}
	return levels
}

// Coupled reports whether the axis drives two motors
func (a *Axis) Coupled() bool {
	return len(a.motors) > 1
}

// ActiveLowEnable reports the enable line polarity
func (a *Axis) ActiveLowEnable() bool {
	return a.config.ActiveLowEnable()
}

// Direction returns the last direction bit set
func (a *Axis) Direction() uint8 {
	return a.direction
}

// Pulses returns the number of pulses issued since the axis was created
func (a *Axis) Pulses() uint64 {
	return a.pulses
}

// SetDirection applies bit to every motor, inverted for motors configured
// with InvertDir, then holds the direction setup time.
func (a *Axis) SetDirection(bit uint8) error {
	if a.released {
		return a.fault("set direction", core.ErrLinesReleased)
	}
	bit &= 1
	for _, m := range a.motors {
		level := core.Level(bit)
		if m.config.InvertDir {
			level = !level
		}
		if err := m.lines.SetPin(lineDir, level); err != nil {
			return a.fault("set direction", err)
		}
	}
	a.direction = bit
	a.sleeper.Sleep(a.config.DirSetup)
	return nil
}

// Pulse issues one step: every motor's step line goes high, the axis holds
// for delay, every line goes low, and the axis holds for delay again.
// A zero delay uses the configured pulse delay.
func (a *Axis) Pulse(delay time.Duration) error {
	if a.released {
		return a.fault("pulse", core.ErrLinesReleased)
	}
	if delay <= 0 {
		delay = a.config.PulseDelay
	}

	for _, m := range a.motors {
		if err := m.lines.SetPin(lineStep, true); err != nil {
			return a.fault("pulse", err)
		}
	}
	a.sleeper.Sleep(delay)
	for _, m := range a.motors {
		if err := m.lines.SetPin(lineStep, false); err != nil {
			return a.fault("pulse", err)
		}
	}
	a.sleeper.Sleep(delay)

	a.pulses++
	return nil
}

// Cleanup de-energizes every motor and releases its lines. It always tries
// every motor; later calls are no-ops.
func (a *Axis) Cleanup() error {
	if a.released {
		return nil
	}
	a.released = true

	var errs []error
	for i, m := range a.motors {
		if err := m.lines.SetValues(a.disabledLevels(m)); err != nil {
			errs = append(errs, fmt.Errorf("axis %s motor %d: de-energize: %w", a.name, i+1, err))
		}
		if err := m.lines.Release(); err != nil {
			errs = append(errs, fmt.Errorf("axis %s motor %d: release: %w", a.name, i+1, err))
		}
	}
	return errors.Join(errs...)
}

func (a *Axis) fault(op string, err error) error {
	return &core.HardwareFaultError{Axis: a.name, Op: op, Err: err}
}
