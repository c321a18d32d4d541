//go:build rp2040

package main

// PenMode selects the pen-lift actuator
type PenMode uint8

const (
	// PenStepper drives the Z axis as a third stepper (100 pulses per transition)
	PenStepper PenMode = iota
	// PenServo swings a hobby servo between two angles
	PenServo
)

// ModeConfig determines how the firmware lifts the pen
type ModeConfig struct {
	Pen PenMode
}

// GetMode returns the pen-lift configuration. Change Pen to PenServo for
// boards with a servo on servoPin.
func GetMode() ModeConfig {
	return ModeConfig{
		Pen: PenStepper,
	}
}
