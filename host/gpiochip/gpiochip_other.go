//go:build !linux

package gpiochip

import (
	"errors"
	"log/slog"

	"penplot/core"
)

var errUnsupported = errors.New("gpio character device requires linux")

// Driver is unavailable off Linux
type Driver struct{}

// Open always fails off Linux
func Open(name string, _ *slog.Logger) (*Driver, error) {
	return nil, &core.InitializationError{Resource: name, Err: errUnsupported}
}

func (d *Driver) RequestOutputs(string, []core.GPIOPin, []bool) (core.OutputLines, error) {
	return nil, errUnsupported
}

func (d *Driver) Close() error { return nil }

// Tune is a no-op failure off Linux
func Tune(int) error { return errUnsupported }
