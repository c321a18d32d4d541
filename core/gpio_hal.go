package core

// GPIOPin identifies a hardware GPIO line offset on its chip
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that motion code uses.
// Platform-specific implementations handle actual hardware control
// (Linux gpiochip, serial bridge to an MCU, TinyGo machine pins, simulation).
type GPIODriver interface {
	// RequestOutputs claims a group of pins as digital outputs, driven to
	// the given initial levels. The group stays claimed until Release.
	// Returns an error if any pin is invalid or already in use.
	RequestOutputs(consumer string, pins []GPIOPin, initial []bool) (OutputLines, error)

	// Close releases the driver itself (chip handle, serial port).
	Close() error
}

// OutputLines is a claimed group of output pins. Indexes refer to the
// position of the pin in the slice passed to RequestOutputs.
type OutputLines interface {
	// SetPin drives a single line of the group high (true) or low (false)
	SetPin(index int, value bool) error

	// SetValues drives every line of the group in one operation
	SetValues(values []bool) error

	// Release returns the lines to the driver. Further writes fail with
	// ErrLinesReleased.
	Release() error
}

// Level converts a direction/step bit to a line level.
func Level(bit uint8) bool {
	return bit != 0
}
