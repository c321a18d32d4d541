// Package gpiochip drives GPIO lines through the Linux character device
// (/dev/gpiochipN), the same interface the gpiod tools use.
package gpiochip

// DefaultChip is the header GPIO controller on a Raspberry Pi 5
const DefaultChip = "gpiochip4"

// DefaultNice is the scheduling priority Tune requests when none is given
const DefaultNice = -10

func levels(values []bool) []int {
	out := make([]int, len(values))
	for i, v := range values {
		if v {
			out[i] = 1
		}
	}
	return out
}
