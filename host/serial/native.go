//go:build !wasm && !tinygo

package serial

import (
	"errors"
	"fmt"

	"github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// Open opens cfg.Device with the configured driver
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errors.New("serial: nil config")
	}

	switch cfg.Driver {
	case "", DriverTarm:
		port, err := serial.OpenPort(&serial.Config{
			Name:        cfg.Device,
			Baud:        cfg.Baud,
			ReadTimeout: cfg.ReadTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
		}
		return port, nil

	case DriverBugST:
		port, err := bugst.Open(cfg.Device, &bugst.Mode{BaudRate: cfg.Baud})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
		}
		if cfg.ReadTimeout > 0 {
			if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
				port.Close()
				return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
			}
		}
		return port, nil
	}

	return nil, fmt.Errorf("serial: unknown driver %q", cfg.Driver)
}
