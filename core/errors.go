package core

import (
	"errors"
	"fmt"
)

var (
	ErrLinesReleased    = errors.New("output lines already released")
	ErrPinInUse         = errors.New("pin already in use")
	ErrUnknownMicrostep = errors.New("unknown microstep mode")
)

// InitializationError reports a hardware resource that could not be claimed.
// Nothing has moved when this is returned.
type InitializationError struct {
	Resource string
	Err      error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Resource, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// HardwareFaultError reports a direction or pulse write that failed while
// a move was in progress. The physical tool position is unknown afterwards.
type HardwareFaultError struct {
	Axis string
	Op   string
	Err  error
}

func (e *HardwareFaultError) Error() string {
	return fmt.Sprintf("hardware fault on axis %s during %s: %v", e.Axis, e.Op, e.Err)
}

func (e *HardwareFaultError) Unwrap() error {
	return e.Err
}
