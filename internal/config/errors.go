package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidPreset indicates an unknown preset name was provided.
	ErrInvalidPreset = errors.New("invalid preset")

	// ErrInvalidAnimationLength indicates a non-positive animation length.
	ErrInvalidAnimationLength = errors.New("animation length must be positive")

	// ErrInvalidFPS indicates a frame rate outside the valid range.
	ErrInvalidFPS = errors.New("frame rate out of range")

	// ErrInvalidTolerance indicates a negative or non-finite reduction tolerance.
	ErrInvalidTolerance = errors.New("reduction tolerance invalid")

	// ErrInvalidSnap indicates frame snapping was requested without a frame rate.
	ErrInvalidSnap = errors.New("frame snapping configuration invalid")

	// ErrInvalidWorkers indicates a negative worker count.
	ErrInvalidWorkers = errors.New("worker count must not be negative")
)
