//go:build rp2040

package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/servo"

	"penplot/core"
	"penplot/plotter"
)

// Pico wiring: two coupled X carriers, one Y carrier, a Z stepper and an
// optional servo on GP15. Microstep pins are strapped on the carriers.
var (
	xAxis = plotter.AxisConfig{
		Name: "x",
		Motors: []plotter.MotorConfig{
			{DirPin: 2, StepPin: 3},
			{DirPin: 4, StepPin: 5, InvertDir: true},
		},
		PulseDelay: core.DefaultPulseDelay,
		DirSetup:   core.DefaultDirSetup,
	}

	yAxis = plotter.AxisConfig{
		Name:       "y",
		Motors:     []plotter.MotorConfig{{DirPin: 6, StepPin: 7}},
		PulseDelay: core.DefaultPulseDelay,
		DirSetup:   core.DefaultDirSetup,
	}

	zAxis = plotter.ZAxisConfig{
		AxisConfig: plotter.AxisConfig{
			Name:       "z",
			Motors:     []plotter.MotorConfig{{DirPin: 10, StepPin: 11}},
			PulseDelay: core.DefaultZPulseDelay,
		},
		Steps:   100,
		DownDir: 1,
		Settle:  500 * time.Millisecond,
	}

	servoPen = servoConfig{
		Pin:       machine.GP15,
		PWM:       machine.PWM7, // GP15 is slice 7, channel B
		UpAngle:   90,
		DownAngle: 30,
		Settle:    300 * time.Millisecond,
	}
)

type servoConfig struct {
	Pin       machine.Pin
	PWM       servo.PWM
	UpAngle   int
	DownAngle int
	Settle    time.Duration
}
