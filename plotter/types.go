// Package plotter holds the data model shared by the plotter motion packages
package plotter

import (
	"errors"
	"fmt"
	"time"

	"penplot/core"
)

// Point is a position in step space (pixels after steps-per-pixel scaling)
type Point struct {
	X int
	Y int
}

// Origin is where the tool starts and where every plan returns
var Origin = Point{}

// MaxCoordinate bounds both axes so that the delta between any two valid
// points fits a 32-bit int and a uint32 step count.
const MaxCoordinate = 1<<30 - 1

// ErrOutOfRange is returned for a point outside [-MaxCoordinate, MaxCoordinate]
var ErrOutOfRange = errors.New("coordinate out of range")

// Check rejects a point that the step generator cannot reach exactly
func (p Point) Check() error {
	if p.X < -MaxCoordinate || p.X > MaxCoordinate || p.Y < -MaxCoordinate || p.Y > MaxCoordinate {
		return fmt.Errorf("(%d,%d): %w", p.X, p.Y, ErrOutOfRange)
	}
	return nil
}

// Contour is one continuous pen stroke, in drawing order
type Contour []Point

// PenState is the position of the pen-lift actuator
type PenState uint8

const (
	PenUp PenState = iota
	PenDown
)

func (p PenState) String() string {
	if p == PenDown {
		return "down"
	}
	return "up"
}

// RelativeMove is a signed displacement plus the step/direction form the
// synchronizer consumes. A zero delta maps to direction 0.
type RelativeMove struct {
	DX, DY int

	StepsX, StepsY uint32
	DirX, DirY     uint8
}

// NewRelativeMove derives step counts and direction bits from a delta.
// Both deltas must lie within ±2*MaxCoordinate; callers check their
// endpoints with Point.Check first.
func NewRelativeMove(dx, dy int) RelativeMove {
	return RelativeMove{
		DX:     dx,
		DY:     dy,
		StepsX: uint32(abs(dx)),
		StepsY: uint32(abs(dy)),
		DirX:   dirBit(dx),
		DirY:   dirBit(dy),
	}
}

// MoveBetween returns the move that takes the tool from one point to another
func MoveBetween(from, to Point) RelativeMove {
	return NewRelativeMove(to.X-from.X, to.Y-from.Y)
}

// IsZero reports a move that would emit no pulses
func (m RelativeMove) IsZero() bool {
	return m.StepsX == 0 && m.StepsY == 0
}

// Action is the kind of a plan step
type Action uint8

const (
	ActionMove Action = iota
	ActionLift
	ActionLower
)

func (a Action) String() string {
	switch a {
	case ActionLift:
		return "lift"
	case ActionLower:
		return "lower"
	default:
		return "move"
	}
}

// PlanStep is one entry of a MotionPlan. For ActionMove, Target is the
// absolute point the cursor holds once the move completes and Pen is the
// pen state the move is issued with.
type PlanStep struct {
	Action  Action
	Move    RelativeMove
	Target  Point
	Pen     PenState
	Contour int // index into the source contour list, -1 for the return move
}

// MotionPlan is built once per contour list and consumed once
type MotionPlan []PlanStep

// Totals sums the pulses each axis receives over the whole plan
func (p MotionPlan) Totals() (x, y uint64) {
	for _, s := range p {
		if s.Action == ActionMove {
			x += uint64(s.Move.StepsX)
			y += uint64(s.Move.StepsY)
		}
	}
	return x, y
}

// Cursor is the logical tool position. It diverges from the physical
// position after a fault or interrupt.
type Cursor struct {
	X, Y int
}

// Point returns the cursor as a Point
func (c Cursor) Point() Point {
	return Point{X: c.X, Y: c.Y}
}

// MotorConfig describes one physical stepper driver's lines. Optional pins
// are nil when the driver has them strapped in hardware.
type MotorConfig struct {
	DirPin    core.GPIOPin  `yaml:"dir_pin"`
	StepPin   core.GPIOPin  `yaml:"step_pin"`
	MS1Pin    *core.GPIOPin `yaml:"ms1_pin,omitempty"`
	MS2Pin    *core.GPIOPin `yaml:"ms2_pin,omitempty"`
	EnablePin *core.GPIOPin `yaml:"enable_pin,omitempty"`
	InvertDir bool          `yaml:"invert_dir"`
}

// Pins lists every line the motor drives
func (m MotorConfig) Pins() []core.GPIOPin {
	pins := []core.GPIOPin{m.DirPin, m.StepPin}
	for _, p := range []*core.GPIOPin{m.MS1Pin, m.MS2Pin, m.EnablePin} {
		if p != nil {
			pins = append(pins, *p)
		}
	}
	return pins
}

// AxisConfig is the static configuration of one logical axis. A second
// entry in Motors is a mechanically coupled motor driven in lockstep.
type AxisConfig struct {
	Name            string         `yaml:"-"`
	Motors          []MotorConfig  `yaml:"motors"`
	PulseDelay      time.Duration  `yaml:"pulse_delay"`
	DirSetup        time.Duration  `yaml:"dir_setup"` // hold after a direction change
	Microstep       core.Microstep `yaml:"microstep"`
	EnableActiveLow *bool          `yaml:"enable_active_low,omitempty"`
}

// Coupled reports whether the axis drives two motors
func (a AxisConfig) Coupled() bool {
	return len(a.Motors) > 1
}

// ActiveLowEnable reports the enable polarity, active low unless configured
func (a AxisConfig) ActiveLowEnable() bool {
	return a.EnableActiveLow == nil || *a.EnableActiveLow
}

// ZAxisConfig configures the pen-lift actuator
type ZAxisConfig struct {
	AxisConfig `yaml:",inline"`

	Steps   int           `yaml:"steps"`    // pulses per lift or lower
	DownDir uint8         `yaml:"down_dir"` // direction bit that lowers the pen
	Settle  time.Duration `yaml:"settle"`   // pause after each transition
}

// SerialConfig configures the serial bridge backend
type SerialConfig struct {
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// MachineConfig represents the complete machine configuration
type MachineConfig struct {
	Backend  string       `yaml:"backend"` // "gpiochip", "serial", "sim"
	Chip     string       `yaml:"chip"`
	Serial   SerialConfig `yaml:"serial"`
	Realtime bool         `yaml:"realtime"`

	StepsPerPixel int `yaml:"steps_per_pixel"`
	CanvasSize    int `yaml:"canvas_size"`

	X AxisConfig  `yaml:"x"`
	Y AxisConfig  `yaml:"y"`
	Z ZAxisConfig `yaml:"z"`
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func dirBit(delta int) uint8 {
	if delta > 0 {
		return 1
	}
	return 0
}
