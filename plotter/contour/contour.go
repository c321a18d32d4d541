// Package contour loads and prepares contour lists for plotting
package contour

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"penplot/plotter"
)

// Decode reads contours in the nested-array form [[[x,y],[x,y],...],...]
func Decode(r io.Reader) ([]plotter.Contour, error) {
	var raw [][][2]int
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode contours: %w", err)
	}

	contours := make([]plotter.Contour, len(raw))
	for i, c := range raw {
		contour := make(plotter.Contour, len(c))
		for j, p := range c {
			contour[j] = plotter.Point{X: p[0], Y: p[1]}
		}
		contours[i] = contour
	}
	return contours, nil
}

// Encode writes contours in the form Decode reads
func Encode(w io.Writer, contours []plotter.Contour) error {
	raw := make([][][2]int, len(contours))
	for i, c := range contours {
		raw[i] = make([][2]int, len(c))
		for j, p := range c {
			raw[i][j] = [2]int{p.X, p.Y}
		}
	}
	return json.NewEncoder(w).Encode(raw)
}

// LoadFile reads a contour file
func LoadFile(path string) ([]plotter.Contour, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contours, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return contours, nil
}

// Scale multiplies every coordinate by factor. A factor of 1 returns the
// input unchanged. A product beyond ±MaxCoordinate fails with
// plotter.ErrOutOfRange instead of wrapping.
func Scale(contours []plotter.Contour, factor int) ([]plotter.Contour, error) {
	if factor < 1 {
		return nil, fmt.Errorf("scale factor must be positive, got %d", factor)
	}
	if factor == 1 {
		return contours, nil
	}
	limit := plotter.MaxCoordinate / factor
	out := make([]plotter.Contour, len(contours))
	for i, c := range contours {
		scaled := make(plotter.Contour, len(c))
		for j, p := range c {
			if p.X < -limit || p.X > limit || p.Y < -limit || p.Y > limit {
				return nil, fmt.Errorf("contour %d point %d (%d,%d) x%d: %w", i, j, p.X, p.Y, factor, plotter.ErrOutOfRange)
			}
			scaled[j] = plotter.Point{X: p.X * factor, Y: p.Y * factor}
		}
		out[i] = scaled
	}
	return out, nil
}

// Validate checks that every point lies on the canvas: pixels 0 through
// size-1 on both axes. A size of 0 only rejects negative coordinates.
func Validate(contours []plotter.Contour, size int) error {
	for i, c := range contours {
		for j, p := range c {
			if p.X < 0 || p.Y < 0 {
				return fmt.Errorf("contour %d point %d (%d,%d): negative coordinate", i, j, p.X, p.Y)
			}
			if size > 0 && (p.X >= size || p.Y >= size) {
				return fmt.Errorf("contour %d point %d (%d,%d): outside %dx%d canvas", i, j, p.X, p.Y, size, size)
			}
		}
	}
	return nil
}

// Drawable counts the contours that will actually be drawn
func Drawable(contours []plotter.Contour) int {
	n := 0
	for _, c := range contours {
		if len(c) >= 2 {
			n++
		}
	}
	return n
}
