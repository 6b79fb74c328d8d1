package validation

import (
	"fmt"

	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
)

// Check names, as they appear in steps and repairs.
const (
	CheckKeyCount = "Keyframe count"
	CheckStart    = "Start keyframe"
	CheckEnd      = "End keyframe"
	CheckSync     = "Channel sync"
)

// minKeyframes is the smallest keyframe count a playable curve can have.
const minKeyframes = 2

// ValidateKeyCount checks that a lead channel has enough keyframes.
func ValidateKeyCount(count int) (bool, string) {
	if count >= minKeyframes {
		return true, fmt.Sprintf("%d keyframes", count)
	}
	return false, fmt.Sprintf("Expected at least %d keyframes, got %d", minKeyframes, count)
}

// ValidateStart checks that the first keyframe sits at time zero.
func ValidateStart(times []float64) (bool, string) {
	if len(times) == 0 {
		return false, "No keyframes"
	}
	if keyframe.SameTime(times[0], 0) {
		return true, "First keyframe at 0s"
	}
	return false, fmt.Sprintf("First keyframe at %.3fs, expected 0s", times[0])
}

// ValidateEnd checks that a keyframe exists at the animation length.
func ValidateEnd(times []float64, length float64) (bool, string) {
	for i := len(times) - 1; i >= 0; i-- {
		if keyframe.SameTime(times[i], length) {
			return true, fmt.Sprintf("Keyframe at animation length (%.3fs)", length)
		}
		if times[i] < length {
			break
		}
	}
	return false, fmt.Sprintf("No keyframe at animation length (%.3fs)", length)
}

// ValidateAligned checks that a channel shares the time axis of the lead channel.
func ValidateAligned(lead, other []float64) (bool, string) {
	if len(lead) != len(other) {
		return false, fmt.Sprintf("Key count mismatch: %d vs %d", len(other), len(lead))
	}
	for i := range lead {
		if !keyframe.SameTime(lead[i], other[i]) {
			return false, fmt.Sprintf("Key %d at %.3fs, expected %.3fs", i, other[i], lead[i])
		}
	}
	return true, fmt.Sprintf("%d keyframes aligned", len(lead))
}
