//go:build rp2040

package main

import (
	"context"
	"machine"
	"time"

	"penplot/plotter/gcode"
	"penplot/plotter/sequencer"
)

// plotSession buffers a G-code program and plots it when the program ends
type plotSession struct {
	seq    *sequencer.Sequencer
	parser *gcode.Parser
	interp *gcode.Interpreter
	halted bool
}

// RunPlotter answers host lines until the board resets
func RunPlotter(seq *sequencer.Sequencer) {
	s := &plotSession{
		seq:    seq,
		parser: gcode.NewParser(),
		interp: gcode.NewInterpreter(),
	}

	// Flash LED 3 times to indicate the plotter is ready
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < 3; i++ {
		led.High()
		time.Sleep(200 * time.Millisecond)
		led.Low()
		time.Sleep(200 * time.Millisecond)
	}

	for line := range hostLines {
		USBWriteString(s.handle(line))
	}
}

func (s *plotSession) handle(line string) string {
	cmd, err := s.parser.ParseLine(line)
	if err != nil {
		return "error: " + err.Error() + "\n"
	}
	if cmd == nil {
		return "ok\n"
	}

	if cmd.Type == 'M' {
		switch cmd.Number {
		case 112:
			s.halt()
			return "!! emergency stop\n"
		case 2, 30:
			return s.plot()
		}
	}
	if s.halted {
		return "!! halted, reset the board\n"
	}
	if err := s.interp.Execute(cmd); err != nil {
		return "error: " + err.Error() + "\n"
	}
	return "ok\n"
}

// plot draws every contour received since the last program end and
// returns to the origin
func (s *plotSession) plot() string {
	contours := s.interp.Finish()
	if s.halted {
		return "!! halted, reset the board\n"
	}

	ctx, cancel := context.WithCancel(context.Background())
	setJobCancel(cancel)
	err := s.seq.Execute(ctx, contours)
	setJobCancel(nil)
	cancel()

	if err != nil {
		s.halt()
		return "!! " + err.Error() + "\n"
	}
	s.interp = gcode.NewInterpreter()
	return "ok\n"
}

func (s *plotSession) halt() {
	if s.halted {
		return
	}
	s.halted = true
	_ = s.seq.Cleanup()
}
