package core

import (
	"fmt"
	"strings"
)

// Microstep selects the driver resolution through the MS1/MS2 pin pair
type Microstep uint8

const (
	MicrostepFull Microstep = iota
	MicrostepHalf
	MicrostepQuarter
	MicrostepEighth
)

// Pins returns the MS1, MS2 levels for the mode (MP6500 truth table)
func (m Microstep) Pins() (ms1, ms2 bool) {
	switch m {
	case MicrostepHalf:
		return true, false
	case MicrostepQuarter:
		return false, true
	case MicrostepEighth:
		return true, true
	default:
		return false, false
	}
}

func (m Microstep) String() string {
	switch m {
	case MicrostepFull:
		return "FULL"
	case MicrostepHalf:
		return "HALF"
	case MicrostepQuarter:
		return "QUARTER"
	case MicrostepEighth:
		return "EIGHTH"
	default:
		return fmt.Sprintf("Microstep(%d)", uint8(m))
	}
}

// ParseMicrostep accepts the mode names as well as the "1/4" and "1/8" spellings
func ParseMicrostep(s string) (Microstep, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "FULL", "1":
		return MicrostepFull, nil
	case "HALF", "1/2":
		return MicrostepHalf, nil
	case "QUARTER", "1/4":
		return MicrostepQuarter, nil
	case "EIGHTH", "1/8":
		return MicrostepEighth, nil
	}
	return MicrostepFull, fmt.Errorf("%w: %q", ErrUnknownMicrostep, s)
}

func (m Microstep) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Microstep) UnmarshalText(text []byte) error {
	v, err := ParseMicrostep(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
