package gpiochip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	assert.Equal(t, []int{1, 0, 1}, levels([]bool{true, false, true}))
	assert.Empty(t, levels(nil))
}
