//go:build linux

package gpiochip

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Tune locks the process memory and raises its scheduling priority so that
// pulse timing is not disturbed by paging or ordinary load. Both steps need
// privileges; failures are reported together and the caller may carry on.
func Tune(nice int) error {
	var errs []error
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		errs = append(errs, fmt.Errorf("mlockall: %w", err))
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, nice); err != nil {
		errs = append(errs, fmt.Errorf("setpriority %d: %w", nice, err))
	}
	return errors.Join(errs...)
}
