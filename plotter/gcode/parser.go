// Package gcode reads a small G-code dialect into contours: G0 travels,
// G1 draws, G90/G91 pick absolute or relative coordinates, G92 sets the
// position and G28 returns to the origin.
package gcode

import (
	"fmt"
	"strconv"
)

// Command is one parsed G-code line
type Command struct {
	Type       byte // 'G', 'M', 'T', or 0 for a comment-only line
	Number     int
	Parameters map[byte]float64
	Comment    string
}

// HasParameter checks if a parameter exists in the command
func (c *Command) HasParameter(param byte) bool {
	_, ok := c.Parameters[param]
	return ok
}

// Parameter returns a parameter value, or def if it is absent
func (c *Command) Parameter(param byte, def float64) float64 {
	if v, ok := c.Parameters[param]; ok {
		return v
	}
	return def
}

func (c *Command) String() string {
	return fmt.Sprintf("%c%d", c.Type, c.Number)
}

// Parser splits G-code lines into commands
type Parser struct{}

// NewParser creates a new G-code parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseLine parses a single line. Blank lines yield a nil command; a line
// holding only a comment yields a command with Type 0.
func (p *Parser) ParseLine(line string) (*Command, error) {
	i := skipSpace(line, 0)
	if i >= len(line) {
		return nil, nil
	}

	cmd := &Command{Parameters: make(map[byte]float64)}

	if isComment(line[i]) {
		cmd.Comment = line[i:]
		return cmd, nil
	}

	switch c := toUpper(line[i]); c {
	case 'G', 'M', 'T':
		cmd.Type = c
		end := scanNumber(line, i+1)
		if end == i+1 {
			return nil, fmt.Errorf("%c without a number", c)
		}
		n, err := strconv.Atoi(line[i+1 : end])
		if err != nil {
			return nil, fmt.Errorf("command number %q: %w", line[i+1:end], err)
		}
		cmd.Number = n
		i = end
	default:
		return nil, fmt.Errorf("unexpected %q at column %d", line[i], i+1)
	}

	for {
		i = skipSpace(line, i)
		if i >= len(line) {
			break
		}
		if isComment(line[i]) {
			cmd.Comment = line[i:]
			break
		}
		if !isLetter(line[i]) {
			return nil, fmt.Errorf("unexpected %q at column %d", line[i], i+1)
		}

		letter := toUpper(line[i])
		end := scanNumber(line, i+1)
		if end == i+1 {
			return nil, fmt.Errorf("parameter %c without a value", letter)
		}
		v, err := strconv.ParseFloat(line[i+1:end], 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %c: %w", letter, err)
		}
		cmd.Parameters[letter] = v
		i = end
	}

	return cmd, nil
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r') {
		i++
	}
	return i
}

// scanNumber returns the end of the numeric run starting at i
func scanNumber(s string, i int) int {
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	for i < len(s) && ((s[i] >= '0' && s[i] <= '9') || s[i] == '.') {
		i++
	}
	return i
}

func isComment(c byte) bool {
	return c == ';' || c == '('
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
