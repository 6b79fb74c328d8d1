// Package config provides configuration types and defaults for the animation engine.
package config

import (
	"fmt"
	"math"
	"strings"
)

// Default constants
const (
	// DefaultAnimationLength is the length, in seconds, of a new animation.
	DefaultAnimationLength = 2.0

	// DefaultFPS is the frame rate keyframes are snapped to when averaging.
	DefaultFPS = 30.0

	// MaxFPS is the highest accepted frame rate.
	MaxFPS = 1000.0

	// DefaultAvgToSnap is whether dense keys are averaged onto frame times.
	DefaultAvgToSnap = false

	// DefaultRemoveFlats is whether motionless sections collapse into holds.
	DefaultRemoveFlats = true

	// DefaultSimplify is whether keys within tolerance are dropped.
	DefaultSimplify = true

	// DefaultMinMeaningfulDistance is the position tolerance, in world units.
	DefaultMinMeaningfulDistance = 0.01

	// DefaultMinMeaningfulRotation is the rotation tolerance, in degrees.
	DefaultMinMeaningfulRotation = 1.0

	// DefaultMinMeaningfulFloatParamRangeRatio is the scalar tolerance, as a
	// fraction of the parameter range.
	DefaultMinMeaningfulFloatParamRangeRatio = 0.01

	// FinePresetMinMeaningfulDistance is the position tolerance of the Fine preset.
	FinePresetMinMeaningfulDistance = 0.002

	// FinePresetMinMeaningfulRotation is the rotation tolerance of the Fine preset.
	FinePresetMinMeaningfulRotation = 0.25

	// FinePresetMinMeaningfulFloatParamRangeRatio is the scalar tolerance of the Fine preset.
	FinePresetMinMeaningfulFloatParamRangeRatio = 0.002

	// AggressivePresetMinMeaningfulDistance is the position tolerance of the Aggressive preset.
	AggressivePresetMinMeaningfulDistance = 0.05

	// AggressivePresetMinMeaningfulRotation is the rotation tolerance of the Aggressive preset.
	AggressivePresetMinMeaningfulRotation = 4.0

	// AggressivePresetMinMeaningfulFloatParamRangeRatio is the scalar tolerance of the Aggressive preset.
	AggressivePresetMinMeaningfulFloatParamRangeRatio = 0.05

	// ProgressLogIntervalPercent is the progress logging interval.
	ProgressLogIntervalPercent uint8 = 10
)

// Preset represents a named group of reduction tolerances.
type Preset string

const (
	PresetFine       Preset = "fine"
	PresetBalanced   Preset = "balanced"
	PresetAggressive Preset = "aggressive"
)

// ParsePreset parses a string into a Preset.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(s) {
	case "fine":
		return PresetFine, nil
	case "balanced":
		return PresetBalanced, nil
	case "aggressive":
		return PresetAggressive, nil
	default:
		return "", fmt.Errorf("%w: '%s', valid options: fine, balanced, aggressive", ErrInvalidPreset, s)
	}
}

// String returns the string representation of the preset.
func (p Preset) String() string {
	return string(p)
}

// ReduceSettings holds the tolerances of one reduction pass.
type ReduceSettings struct {
	FPS                               float64 `yaml:"fps"`
	AvgToSnap                         bool    `yaml:"avg_to_snap"`
	RemoveFlats                       bool    `yaml:"remove_flats"`
	Simplify                          bool    `yaml:"simplify"`
	MinMeaningfulDistance             float64 `yaml:"min_meaningful_distance"`
	MinMeaningfulRotation             float64 `yaml:"min_meaningful_rotation"`
	MinMeaningfulFloatParamRangeRatio float64 `yaml:"min_meaningful_float_param_range_ratio"`
}

// DefaultReduceSettings returns the Balanced tolerances.
func DefaultReduceSettings() ReduceSettings {
	return ReduceSettings{
		FPS:                               DefaultFPS,
		AvgToSnap:                         DefaultAvgToSnap,
		RemoveFlats:                       DefaultRemoveFlats,
		Simplify:                          DefaultSimplify,
		MinMeaningfulDistance:             DefaultMinMeaningfulDistance,
		MinMeaningfulRotation:             DefaultMinMeaningfulRotation,
		MinMeaningfulFloatParamRangeRatio: DefaultMinMeaningfulFloatParamRangeRatio,
	}
}

// GetPresetValues returns the reduction settings of a preset.
func GetPresetValues(p Preset) ReduceSettings {
	values := DefaultReduceSettings()
	switch p {
	case PresetFine:
		values.MinMeaningfulDistance = FinePresetMinMeaningfulDistance
		values.MinMeaningfulRotation = FinePresetMinMeaningfulRotation
		values.MinMeaningfulFloatParamRangeRatio = FinePresetMinMeaningfulFloatParamRangeRatio
	case PresetAggressive:
		values.AvgToSnap = true
		values.MinMeaningfulDistance = AggressivePresetMinMeaningfulDistance
		values.MinMeaningfulRotation = AggressivePresetMinMeaningfulRotation
		values.MinMeaningfulFloatParamRangeRatio = AggressivePresetMinMeaningfulFloatParamRangeRatio
	}
	return values
}

// Validate checks the settings for errors.
func (s ReduceSettings) Validate() error {
	if math.IsNaN(s.FPS) || s.FPS < 0 || s.FPS > MaxFPS {
		return fmt.Errorf("%w: must be 0-%g, got %g", ErrInvalidFPS, MaxFPS, s.FPS)
	}
	if s.AvgToSnap && s.FPS == 0 {
		return fmt.Errorf("%w: averaging to frames needs a frame rate", ErrInvalidSnap)
	}
	tolerances := []struct {
		name  string
		value float64
	}{
		{"min_meaningful_distance", s.MinMeaningfulDistance},
		{"min_meaningful_rotation", s.MinMeaningfulRotation},
		{"min_meaningful_float_param_range_ratio", s.MinMeaningfulFloatParamRangeRatio},
	}
	for _, tol := range tolerances {
		if math.IsNaN(tol.value) || math.IsInf(tol.value, 0) || tol.value < 0 {
			return fmt.Errorf("%w: %s must be a finite value >= 0, got %g", ErrInvalidTolerance, tol.name, tol.value)
		}
	}
	return nil
}

// Config holds the engine configuration.
type Config struct {
	// Log directory for command line runs
	LogDir string

	// Animation
	AnimationLength float64
	Loop            bool

	// Reduction
	Reduce ReduceSettings

	// Targets reduced in parallel; 0 means one per logical CPU
	Workers int

	// Selected preset (optional)
	Preset *Preset
}

// NewConfig creates a new Config with default values.
func NewConfig(logDir string) *Config {
	return &Config{
		LogDir:          logDir,
		AnimationLength: DefaultAnimationLength,
		Reduce:          DefaultReduceSettings(),
	}
}

// ApplyPreset applies the given preset to the config. The frame rate is kept.
func (c *Config) ApplyPreset(p Preset) {
	values := GetPresetValues(p)
	values.FPS = c.Reduce.FPS
	c.Preset = &p
	c.Reduce = values
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if math.IsNaN(c.AnimationLength) || c.AnimationLength <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidAnimationLength, c.AnimationLength)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, c.Workers)
	}
	return c.Reduce.Validate()
}
