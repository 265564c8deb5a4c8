// Package timefmt formats millisecond durations for display.
package timefmt

import (
	"fmt"
	"math"
)

// Format renders a millisecond duration as "m:ss" or "h:mm:ss".
// Negative, NaN and infinite inputs all render as "0:00".
func Format(ms float64) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return "0:00"
	}

	total := int64(ms / 1000)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
