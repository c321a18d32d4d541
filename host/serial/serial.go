// Package serial opens the serial link to a microcontroller running the
// digital output bridge
package serial

import (
	"io"
	"time"
)

// Port is an open serial link
type Port interface {
	io.ReadWriteCloser
}

// Driver selects the serial library used by Open
type Driver string

const (
	DriverTarm  Driver = "tarm"
	DriverBugST Driver = "bugst"
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g. "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; USB CDC links ignore it
	Baud int

	// ReadTimeout bounds each Read; zero blocks
	ReadTimeout time.Duration

	Driver Driver
}

// DefaultConfig returns the Klipper link defaults for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100 * time.Millisecond,
		Driver:      DriverTarm,
	}
}
