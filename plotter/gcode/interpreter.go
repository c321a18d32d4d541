package gcode

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"penplot/plotter"
)

// Interpreter turns commands into contours. A G0 ends the contour being
// drawn and moves the start of the next one; each G1 appends a point.
// Travel-only runs never become contours.
type Interpreter struct {
	absolute bool
	x, y     float64

	current  plotter.Contour
	finished []plotter.Contour
}

// NewInterpreter starts at the origin in absolute mode
func NewInterpreter() *Interpreter {
	return &Interpreter{absolute: true}
}

// Execute applies one command
func (interp *Interpreter) Execute(cmd *Command) error {
	if cmd == nil || cmd.Type == 0 {
		return nil
	}
	if cmd.Type != 'G' {
		return nil
	}

	switch cmd.Number {
	case 0:
		x, y, err := interp.target(cmd)
		if err != nil {
			return err
		}
		interp.endContour()
		interp.x, interp.y = x, y
	case 1:
		x, y, err := interp.target(cmd)
		if err != nil {
			return err
		}
		if len(interp.current) == 0 {
			interp.current = append(interp.current, interp.Position())
		}
		interp.x, interp.y = x, y
		p := interp.Position()
		if p != interp.current[len(interp.current)-1] {
			interp.current = append(interp.current, p)
		}
	case 28:
		interp.endContour()
		interp.x, interp.y = 0, 0
	case 90:
		interp.absolute = true
	case 91:
		interp.absolute = false
	case 92:
		x, y := cmd.Parameter('X', interp.x), cmd.Parameter('Y', interp.y)
		if err := checkRange(x, y); err != nil {
			return err
		}
		interp.endContour()
		interp.x, interp.y = x, y
	}
	return nil
}

func (interp *Interpreter) target(cmd *Command) (x, y float64, err error) {
	if interp.absolute {
		x, y = cmd.Parameter('X', interp.x), cmd.Parameter('Y', interp.y)
	} else {
		x, y = interp.x+cmd.Parameter('X', 0), interp.y+cmd.Parameter('Y', 0)
	}
	return x, y, checkRange(x, y)
}

// checkRange rejects positions that do not round to a reachable point
func checkRange(x, y float64) error {
	for _, v := range []float64{x, y} {
		if math.IsNaN(v) || math.Abs(math.Round(v)) > plotter.MaxCoordinate {
			return fmt.Errorf("position (%g,%g): %w", x, y, plotter.ErrOutOfRange)
		}
	}
	return nil
}

func (interp *Interpreter) endContour() {
	if len(interp.current) >= 2 {
		interp.finished = append(interp.finished, interp.current)
	}
	interp.current = nil
}

// Position returns the current position rounded to whole steps
func (interp *Interpreter) Position() plotter.Point {
	return plotter.Point{X: int(math.Round(interp.x)), Y: int(math.Round(interp.y))}
}

// Take returns the contours completed so far and forgets them
func (interp *Interpreter) Take() []plotter.Contour {
	out := interp.finished
	interp.finished = nil
	return out
}

// Finish closes the open contour and returns everything not yet taken
func (interp *Interpreter) Finish() []plotter.Contour {
	interp.endContour()
	return interp.Take()
}

// Read parses a whole program
func Read(r io.Reader) ([]plotter.Contour, error) {
	parser := NewParser()
	interp := NewInterpreter()

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		cmd, err := parser.ParseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := interp.Execute(cmd); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return interp.Finish(), nil
}
