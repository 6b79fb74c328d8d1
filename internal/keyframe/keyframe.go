// Package keyframe defines the keyframe record shared by curves, the spline
// solver and the persistence layer, along with the closed set of curve types.
package keyframe

import (
	"math"
	"strconv"
	"strings"

	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
)

// TimeEpsilon is the distance under which two keyframe times are the same time.
const TimeEpsilon = 1e-4

// CurveType selects how the tangents of a keyframe are computed.
//
// The ordinals are persisted in animation files and must never be renumbered.
type CurveType int

const (
	// SmoothLocal keyframes get their control points from the spline solver.
	SmoothLocal CurveType = iota
	// Linear keyframes use the secant slope to their neighbours.
	Linear
	// Flat keyframes have zero tangents on both sides.
	Flat
	// Bounce keyframes arrive on a steep secant and leave on a damped one.
	Bounce
	// LinearFlat keyframes are linear on the way in and flat on the way out.
	LinearFlat
	// FlatLinear keyframes are flat on the way in and linear on the way out.
	FlatLinear
	// CopyPrevious keyframes repeat the previous value with zero tangents.
	CopyPrevious
	// LeaveAsIs keyframes keep whatever control points they already have.
	LeaveAsIs
)

var curveTypeLabels = [...]string{
	SmoothLocal:  "SmoothLocal",
	Linear:       "Linear",
	Flat:         "Flat",
	Bounce:       "Bounce",
	LinearFlat:   "LinearFlat",
	FlatLinear:   "FlatLinear",
	CopyPrevious: "CopyPrevious",
	LeaveAsIs:    "LeaveAsIs",
}

// CurveTypes returns every curve type in ordinal order.
func CurveTypes() []CurveType {
	types := make([]CurveType, len(curveTypeLabels))
	for i := range curveTypeLabels {
		types[i] = CurveType(i)
	}
	return types
}

// Valid reports whether c is one of the known curve types.
func (c CurveType) Valid() bool {
	return c >= SmoothLocal && int(c) < len(curveTypeLabels)
}

// Check reports whether a keyframe may be written at time with curveType.
// Times must be finite and not negative.
func Check(time float64, curveType CurveType) error {
	if !(time >= 0) || math.IsInf(time, 1) {
		return errors.NewInvalidStateError("invalid keyframe time " + strconv.FormatFloat(time, 'g', -1, 64))
	}
	if !curveType.Valid() {
		return errors.NewUnsupportedOperationError("unknown curve type " + curveType.String())
	}
	return nil
}

// String returns the stable label of the curve type.
func (c CurveType) String() string {
	if !c.Valid() {
		return "CurveType(" + strconv.Itoa(int(c)) + ")"
	}
	return curveTypeLabels[c]
}

// Ordinal returns the persisted integer form of the curve type.
func (c CurveType) Ordinal() int {
	return int(c)
}

// FromOrdinal converts a persisted ordinal back into a curve type.
func FromOrdinal(n int) (CurveType, error) {
	c := CurveType(n)
	if !c.Valid() {
		return 0, errors.NewUnsupportedOperationError("unknown curve type ordinal " + strconv.Itoa(n))
	}
	return c, nil
}

// ParseCurveType parses either a label (case-insensitive) or an ordinal.
func ParseCurveType(s string) (CurveType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return FromOrdinal(n)
	}
	for i, label := range curveTypeLabels {
		if strings.EqualFold(label, s) {
			return CurveType(i), nil
		}
	}
	return 0, errors.NewUnsupportedOperationError("unknown curve type " + strconv.Quote(s))
}

// MarshalText implements encoding.TextMarshaler using the stable label.
func (c CurveType) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, errors.NewUnsupportedOperationError("unknown curve type ordinal " + strconv.Itoa(int(c)))
	}
	return []byte(curveTypeLabels[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler; labels and ordinals are both accepted.
func (c *CurveType) UnmarshalText(text []byte) error {
	parsed, err := ParseCurveType(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Keyframe is one sample of a curve.
type Keyframe struct {
	Time       float64
	Value      float64
	CurveType  CurveType
	ControlIn  float64
	ControlOut float64
}

// New returns a keyframe whose control points sit on its value.
func New(time, value float64, curveType CurveType) Keyframe {
	return Keyframe{
		Time:       time,
		Value:      value,
		CurveType:  curveType,
		ControlIn:  value,
		ControlOut: value,
	}
}

// SameTime reports whether two times address the same keyframe.
func SameTime(a, b float64) bool {
	return math.Abs(a-b) < TimeEpsilon
}

// ChannelSnapshot is a plain copy of one channel of a keyframe.
type ChannelSnapshot struct {
	Value      float64   `yaml:"value"`
	ControlIn  float64   `yaml:"in"`
	ControlOut float64   `yaml:"out"`
	CurveType  CurveType `yaml:"type"`
}

// Snapshot returns the plain-data copy of the keyframe.
func (k Keyframe) Snapshot() ChannelSnapshot {
	return ChannelSnapshot{
		Value:      k.Value,
		ControlIn:  k.ControlIn,
		ControlOut: k.ControlOut,
		CurveType:  k.CurveType,
	}
}

// Restore rebuilds a keyframe at time from a snapshot.
func (s ChannelSnapshot) Restore(time float64) Keyframe {
	return Keyframe{
		Time:       time,
		Value:      s.Value,
		CurveType:  s.CurveType,
		ControlIn:  s.ControlIn,
		ControlOut: s.ControlOut,
	}
}
