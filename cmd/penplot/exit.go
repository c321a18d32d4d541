package main

import (
	"context"
	"errors"

	"penplot/core"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInit        = 2
	exitFault       = 3
	exitInterrupted = 130
)

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	var initErr *core.InitializationError
	var fault *core.HardwareFaultError

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.As(err, &initErr):
		return exitInit
	case errors.As(err, &fault):
		return exitFault
	default:
		return exitError
	}
}
