// Package util provides formatting helpers shared by the reporters and the CLI.
package util

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration formats seconds as HH:MM:SS.
func FormatDuration(seconds float64) string {
	if seconds < 0 || seconds != seconds { // NaN check
		return "??:??:??"
	}

	totalSecs := int64(seconds)
	hours := totalSecs / 3600
	minutes := (totalSecs % 3600) / 60
	secs := totalSecs % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// FormatElapsed formats a wall-clock duration. Durations under a second keep
// millisecond precision since most reductions finish well inside one.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		return "??:??:??"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return FormatDuration(d.Seconds())
}

// FormatSeconds formats an animation time with millisecond precision.
func FormatSeconds(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "?s"
	}
	return fmt.Sprintf("%.3fs", seconds)
}

// FormatKeyframes formats a keyframe count with its unit.
func FormatKeyframes(n int) string {
	if n == 1 {
		return "1 keyframe"
	}
	return fmt.Sprintf("%d keyframes", n)
}

// CalculateReduction calculates the percentage of keyframes removed.
// Returns positive values for a reduction, negative for growth.
func CalculateReduction(before, after int) float64 {
	if before <= 0 {
		return 0
	}
	return (float64(before) - float64(after)) / float64(before) * 100
}
