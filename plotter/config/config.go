package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"penplot/core"
	"penplot/plotter"
)

// EnvConfig names the config file when no path is given
const EnvConfig = "PENPLOT_CONFIG"

const (
	BackendGPIOChip = "gpiochip"
	BackendSerial   = "serial"
	BackendSim      = "sim"
)

const (
	DefaultStepsPerPixel = 1
	DefaultCanvasSize    = 480
	DefaultZSteps        = 100
	DefaultSettle        = 500 * time.Millisecond
	DefaultBaud          = 250000
	DefaultReadTimeout   = 100 * time.Millisecond
)

// LoadConfig parses a YAML (or JSON) document on top of DefaultConfig,
// fills in anything still missing and validates the result
func LoadConfig(data []byte) (*plotter.MachineConfig, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(config)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile reads path, or the file named by PENPLOT_CONFIG when path is
// empty. With neither set the default configuration is returned.
func LoadFile(path string) (*plotter.MachineConfig, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		config := DefaultConfig()
		applyDefaults(config)
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	config, err := LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *plotter.MachineConfig) {
	if config.Backend == "" {
		config.Backend = BackendGPIOChip
	}
	if config.Chip == "" {
		config.Chip = "gpiochip4"
	}
	if config.Serial.Baud == 0 {
		config.Serial.Baud = DefaultBaud
	}
	if config.Serial.ReadTimeout == 0 {
		config.Serial.ReadTimeout = DefaultReadTimeout
	}
	if config.StepsPerPixel == 0 {
		config.StepsPerPixel = DefaultStepsPerPixel
	}
	if config.CanvasSize == 0 {
		config.CanvasSize = DefaultCanvasSize
	}

	config.X.Name, config.Y.Name, config.Z.Name = "x", "y", "z"
	if config.X.PulseDelay == 0 {
		config.X.PulseDelay = core.DefaultPulseDelay
	}
	if config.Y.PulseDelay == 0 {
		config.Y.PulseDelay = core.DefaultPulseDelay
	}
	if config.Z.PulseDelay == 0 {
		config.Z.PulseDelay = core.DefaultZPulseDelay
	}
	for _, axis := range []*plotter.AxisConfig{&config.X, &config.Y, &config.Z.AxisConfig} {
		if axis.DirSetup == 0 {
			axis.DirSetup = core.DefaultDirSetup
		}
	}
	if config.Z.Steps == 0 {
		config.Z.Steps = DefaultZSteps
	}
}

// Validate checks the configuration for wiring mistakes that would only
// show up once the motors are energized
func Validate(config *plotter.MachineConfig) error {
	var errs []error

	switch config.Backend {
	case BackendGPIOChip, BackendSerial, BackendSim:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", config.Backend))
	}
	if config.Backend == BackendSerial && config.Serial.Device == "" {
		errs = append(errs, errors.New("serial backend needs serial.device"))
	}
	if config.StepsPerPixel < 1 {
		errs = append(errs, fmt.Errorf("steps_per_pixel must be positive, got %d", config.StepsPerPixel))
	}
	if config.CanvasSize < 0 {
		errs = append(errs, fmt.Errorf("canvas_size must not be negative, got %d", config.CanvasSize))
	}

	for _, axis := range []plotter.AxisConfig{config.X, config.Y, config.Z.AxisConfig} {
		errs = append(errs, validateAxis(axis)...)
	}
	if config.Z.Coupled() {
		errs = append(errs, errors.New("axis z: pen lift supports a single motor"))
	}
	if config.Z.Steps < 1 {
		errs = append(errs, fmt.Errorf("axis z: steps must be positive, got %d", config.Z.Steps))
	}
	if config.Z.DownDir > 1 {
		errs = append(errs, fmt.Errorf("axis z: down_dir must be 0 or 1, got %d", config.Z.DownDir))
	}
	if config.Z.Settle < 0 {
		errs = append(errs, errors.New("axis z: settle must not be negative"))
	}

	owners := make(map[core.GPIOPin]string)
	for _, axis := range []plotter.AxisConfig{config.X, config.Y, config.Z.AxisConfig} {
		for i, m := range axis.Motors {
			who := fmt.Sprintf("%s motor %d", axis.Name, i+1)
			for _, p := range m.Pins() {
				if prev, ok := owners[p]; ok {
					errs = append(errs, fmt.Errorf("pin %d used by %s and %s", p, prev, who))
					continue
				}
				owners[p] = who
			}
		}
	}

	return errors.Join(errs...)
}

func validateAxis(axis plotter.AxisConfig) []error {
	var errs []error
	switch n := len(axis.Motors); {
	case n == 0:
		errs = append(errs, fmt.Errorf("axis %s: no motors configured", axis.Name))
	case n > 2:
		errs = append(errs, fmt.Errorf("axis %s: %d motors, at most two can be coupled", axis.Name, n))
	}
	if axis.PulseDelay <= 0 {
		errs = append(errs, fmt.Errorf("axis %s: pulse_delay must be positive", axis.Name))
	}
	if axis.DirSetup < 0 {
		errs = append(errs, fmt.Errorf("axis %s: dir_setup must not be negative", axis.Name))
	}
	return errs
}

func pin(p core.GPIOPin) *core.GPIOPin {
	return &p
}

// DefaultConfig returns the pin map of the reference machine: a Raspberry
// Pi 5 (gpiochip4) with MP6500 carriers, two coupled X motors, one Y motor
// and a stepper pen lift
func DefaultConfig() *plotter.MachineConfig {
	return &plotter.MachineConfig{
		Backend:       BackendGPIOChip,
		Chip:          "gpiochip4",
		StepsPerPixel: DefaultStepsPerPixel,
		CanvasSize:    DefaultCanvasSize,
		Serial: plotter.SerialConfig{
			Baud:        DefaultBaud,
			ReadTimeout: DefaultReadTimeout,
		},
		X: plotter.AxisConfig{
			Name: "x",
			Motors: []plotter.MotorConfig{
				{DirPin: 20, StepPin: 21, MS1Pin: pin(22), MS2Pin: pin(23), EnablePin: pin(24)},
				{DirPin: 25, StepPin: 26, MS1Pin: pin(27), MS2Pin: pin(28), EnablePin: pin(29)},
			},
			PulseDelay: core.DefaultPulseDelay,
			DirSetup:   core.DefaultDirSetup,
			Microstep:  core.MicrostepFull,
		},
		Y: plotter.AxisConfig{
			Name: "y",
			Motors: []plotter.MotorConfig{
				{DirPin: 5, StepPin: 6, MS1Pin: pin(7), MS2Pin: pin(8), EnablePin: pin(9)},
			},
			PulseDelay: core.DefaultPulseDelay,
			DirSetup:   core.DefaultDirSetup,
			Microstep:  core.MicrostepFull,
		},
		Z: plotter.ZAxisConfig{
			AxisConfig: plotter.AxisConfig{
				Name:       "z",
				Motors:     []plotter.MotorConfig{{DirPin: 18, StepPin: 19}},
				PulseDelay: core.DefaultZPulseDelay,
				DirSetup:   core.DefaultDirSetup,
			},
			Steps:   DefaultZSteps,
			DownDir: 1,
			Settle:  DefaultSettle,
		},
	}
}
