package main

import (
	"context"
	"fmt"

	"penplot/core"
	"penplot/host/gpiochip"
	"penplot/host/mcu"
	"penplot/host/serial"
	"penplot/plotter"
	"penplot/plotter/config"
	"penplot/plotter/sequencer"
)

// openDriver opens the hardware sink named by cfg.Backend
func openDriver(ctx context.Context, cfg *plotter.MachineConfig, opts *options) (core.GPIODriver, error) {
	logger := opts.logger

	switch cfg.Backend {
	case config.BackendSim:
		return core.NewSimDriver(), nil

	case config.BackendSerial:
		port, err := serial.Open(&serial.Config{
			Device:      cfg.Serial.Device,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeout,
			Driver:      serial.Driver(opts.serialDriver),
		})
		if err != nil {
			return nil, &core.InitializationError{Resource: cfg.Serial.Device, Err: err}
		}
		m, err := mcu.Connect(ctx, port, logger)
		if err != nil {
			return nil, &core.InitializationError{Resource: cfg.Serial.Device, Err: err}
		}
		bridge, err := mcu.NewBridge(ctx, m, 0)
		if err != nil {
			m.Close()
			return nil, err
		}
		return bridge, nil

	case config.BackendGPIOChip:
		if cfg.Realtime {
			if err := gpiochip.Tune(gpiochip.DefaultNice); err != nil {
				logger.Warn("realtime tuning incomplete", "err", err)
			}
		}
		chip, err := gpiochip.Open(cfg.Chip, logger)
		if err != nil {
			return nil, err
		}
		return chip, nil
	}

	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// openSequencer claims the machine's axes. The sequencer owns the driver
// and closes it on Cleanup.
func openSequencer(ctx context.Context, cfg *plotter.MachineConfig, opts *options) (*sequencer.Sequencer, error) {
	driver, err := openDriver(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	seqOpts := []sequencer.Option{
		sequencer.WithLogger(opts.logger),
		sequencer.WithDriverOwnership(),
	}
	if cfg.Backend == config.BackendSim {
		seqOpts = append(seqOpts, sequencer.WithSleeper(core.NopSleeper))
	}

	seq, err := sequencer.New(driver, cfg.X, cfg.Y, cfg.Z, seqOpts...)
	if err != nil {
		driver.Close()
		return nil, err
	}
	return seq, nil
}
