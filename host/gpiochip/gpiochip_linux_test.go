//go:build linux

package gpiochip

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"

	"penplot/core"
)

var _ core.GPIODriver = (*Driver)(nil)

func TestRequestErrorMarksBusyLines(t *testing.T) {
	err := requestError(unix.EBUSY)
	assert.ErrorIs(t, err, core.ErrPinInUse)
	assert.ErrorIs(t, err, unix.EBUSY)

	assert.False(t, errors.Is(requestError(io.EOF), core.ErrPinInUse))
}

func TestOpenMissingChip(t *testing.T) {
	_, err := Open("gpiochip-penplot-missing", nil)
	var initErr *core.InitializationError
	assert.ErrorAs(t, err, &initErr)
	assert.Equal(t, "gpiochip-penplot-missing", initErr.Resource)
}
