//go:build rp2040

package main

import (
	"log/slog"
	"machine"
	"strings"
	"sync"
	"time"

	"penplot/plotter/gcode"
	"penplot/plotter/sequencer"
)

var (
	// Complete lines from the host, emergency stops excluded
	hostLines = make(chan string, 16)

	jobMu     sync.Mutex
	jobCancel func()

	// Debug counters
	linesReceived uint32
	overruns      uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()

	seq, err := newSequencer(GetMode())
	if err != nil {
		USBWriteString("!! " + err.Error() + "\n")
		errorBlink()
	}

	go usbReaderLoop()
	RunPlotter(seq)
}

func newSequencer(mode ModeConfig) (*sequencer.Sequencer, error) {
	// Log lines share the reply channel, so they go out as comments
	logger := slog.New(slog.NewTextHandler(gcode.NewCommentWriter(machine.Serial), &slog.HandlerOptions{Level: slog.LevelWarn}))
	opts := []sequencer.Option{sequencer.WithLogger(logger)}

	if mode.Pen == PenServo {
		lifter, err := newServoLifter(servoPen)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sequencer.WithPenLifter(lifter))
	}
	return sequencer.New(NewRPGPIODriver(), xAxis, yAxis, zAxis, opts...)
}

// usbReaderLoop assembles host bytes into lines. M112 is acted on here so
// that it can stop a plot that is already running.
func usbReaderLoop() {
	var line []byte
	for {
		if USBAvailable() == 0 {
			// Yield to avoid a busy loop
			time.Sleep(100 * time.Microsecond)
			continue
		}
		data, err := USBRead()
		if err != nil {
			time.Sleep(1 * time.Millisecond)
			continue
		}

		if data != '\n' && data != '\r' {
			line = append(line, data)
			continue
		}
		if len(line) == 0 {
			continue
		}
		text := string(line)
		line = line[:0]
		linesReceived++

		if isEmergencyStop(text) {
			cancelJob()
		}
		select {
		case hostLines <- text:
		default:
			overruns++
			USBWriteString("error: input overrun\n")
		}
	}
}

func isEmergencyStop(line string) bool {
	fields := strings.Fields(strings.ToUpper(line))
	return len(fields) > 0 && fields[0] == "M112"
}

func setJobCancel(cancel func()) {
	jobMu.Lock()
	jobCancel = cancel
	jobMu.Unlock()
}

func cancelJob() {
	jobMu.Lock()
	defer jobMu.Unlock()
	if jobCancel != nil {
		jobCancel()
	}
}

// errorBlink flashes the LED rapidly forever
func errorBlink() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
