// Package curve holds one channel of animation data: an ordered list of
// keyframes evaluated as a chain of cubic Bezier segments.
package curve

import (
	"fmt"
	"slices"
	"sort"

	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
	"github.com/acidbubbles/vam-timeline-sub003/internal/spline"
)

// Curve is an ordered set of keyframes with strictly increasing times.
//
// Writes mark the curve dirty; tangents are recomputed on the next Evaluate
// or explicitly through ComputeCurves. A Curve is not safe for concurrent use.
type Curve struct {
	keys   []keyframe.Keyframe
	loop   bool
	dirty  bool
	solver *spline.Solver
}

// Option configures a Curve.
type Option func(*Curve)

// WithSolver makes the curve share a solver, and its scratch buffers, with
// other curves of the same target.
func WithSolver(s *spline.Solver) Option {
	return func(c *Curve) {
		if s != nil {
			c.solver = s
		}
	}
}

// WithLoop marks the curve as looping.
func WithLoop(loop bool) Option {
	return func(c *Curve) {
		c.loop = loop
	}
}

// WithCapacity pre-sizes the keyframe storage.
func WithCapacity(n int) Option {
	return func(c *Curve) {
		c.IncreaseCapacity(n)
	}
}

// New creates an empty curve.
func New(opts ...Option) *Curve {
	c := &Curve{}
	for _, opt := range opts {
		opt(c)
	}
	if c.solver == nil {
		c.solver = spline.New()
	}
	if cap(c.keys) > 0 {
		c.solver.Reserve(cap(c.keys))
	}
	return c
}

// Len returns the number of keyframes.
func (c *Curve) Len() int {
	return len(c.keys)
}

// LastKey returns the index of the last keyframe, or -1 when the curve is empty.
func (c *Curve) LastKey() int {
	return len(c.keys) - 1
}

// Key returns the keyframe at index i. It panics if i is out of range.
func (c *Curve) Key(i int) keyframe.Keyframe {
	return c.keys[i]
}

// Keys returns a copy of every keyframe.
func (c *Curve) Keys() []keyframe.Keyframe {
	return slices.Clone(c.keys)
}

// Duration returns the time of the last keyframe.
func (c *Curve) Duration() float64 {
	if len(c.keys) == 0 {
		return 0
	}
	return c.keys[len(c.keys)-1].Time
}

// Dirty reports whether the tangents are stale.
func (c *Curve) Dirty() bool {
	return c.dirty
}

// Loop reports whether the curve wraps from its last keyframe to its first.
func (c *Curve) Loop() bool {
	return c.loop
}

// SetLoop changes the looping mode.
func (c *Curve) SetLoop(loop bool) {
	if c.loop != loop {
		c.loop = loop
		c.dirty = true
	}
}

// KeyframeBinarySearch returns the index of the keyframe at time. When no
// keyframe matches it returns the nearest index if returnClosest is set, and
// -1 otherwise.
func (c *Curve) KeyframeBinarySearch(time float64, returnClosest bool) int {
	if len(c.keys) == 0 {
		return -1
	}
	i := c.lowerBound(time)
	if i < len(c.keys) && keyframe.SameTime(c.keys[i].Time, time) {
		return i
	}
	if !returnClosest {
		return -1
	}
	switch {
	case i == 0:
		return 0
	case i == len(c.keys):
		return i - 1
	case time-c.keys[i-1].Time <= c.keys[i].Time-time:
		return i - 1
	default:
		return i
	}
}

// lowerBound returns the first index whose time is not before time, within epsilon.
func (c *Curve) lowerBound(time float64) int {
	return sort.Search(len(c.keys), func(i int) bool {
		return c.keys[i].Time > time-keyframe.TimeEpsilon
	})
}

// SetKeyframe writes value at time. An existing keyframe at that time is
// updated in place, otherwise a new one is inserted in order. Nothing is
// written and -1 is returned when keyframe.Check rejects time or curveType.
func (c *Curve) SetKeyframe(time, value float64, curveType keyframe.CurveType) int {
	if keyframe.Check(time, curveType) != nil {
		return -1
	}
	i := c.lowerBound(time)
	c.dirty = true
	if i < len(c.keys) && keyframe.SameTime(c.keys[i].Time, time) {
		c.keys[i].Value = value
		c.keys[i].CurveType = curveType
		return i
	}
	c.keys = slices.Insert(c.keys, i, keyframe.New(time, value, curveType))
	return i
}

// SetKey writes a full keyframe, control points included, replacing any
// keyframe already at its time. It returns -1 for keyframes keyframe.Check
// rejects.
func (c *Curve) SetKey(k keyframe.Keyframe) int {
	if keyframe.Check(k.Time, k.CurveType) != nil {
		return -1
	}
	i := c.lowerBound(k.Time)
	c.dirty = true
	if i < len(c.keys) && keyframe.SameTime(c.keys[i].Time, k.Time) {
		k.Time = c.keys[i].Time
		c.keys[i] = k
		return i
	}
	c.keys = slices.Insert(c.keys, i, k)
	return i
}

// AddKey inserts k and returns its index, or -1 if a keyframe already exists
// at that time or keyframe.Check rejects k.
func (c *Curve) AddKey(k keyframe.Keyframe) int {
	if keyframe.Check(k.Time, k.CurveType) != nil {
		return -1
	}
	i := c.lowerBound(k.Time)
	if i < len(c.keys) && keyframe.SameTime(c.keys[i].Time, k.Time) {
		return -1
	}
	c.keys = slices.Insert(c.keys, i, k)
	c.dirty = true
	return i
}

// SetKeyframeByKey overwrites the value of an existing keyframe.
func (c *Curve) SetKeyframeByKey(key int, value float64) error {
	if err := c.checkKey(key); err != nil {
		return err
	}
	c.keys[key].Value = value
	c.dirty = true
	return nil
}

// SetCurveType changes the curve type of an existing keyframe.
func (c *Curve) SetCurveType(key int, curveType keyframe.CurveType) error {
	if err := c.checkKey(key); err != nil {
		return err
	}
	if !curveType.Valid() {
		return errors.NewUnsupportedOperationError(fmt.Sprintf("unknown curve type %s", curveType))
	}
	c.keys[key].CurveType = curveType
	c.dirty = true
	return nil
}

// RemoveKey deletes the keyframe at index key.
func (c *Curve) RemoveKey(key int) error {
	if err := c.checkKey(key); err != nil {
		return err
	}
	c.keys = slices.Delete(c.keys, key, key+1)
	c.dirty = true
	return nil
}

// MoveKey changes the time of a keyframe and returns its new index. Moving
// onto the time of another keyframe fails.
func (c *Curve) MoveKey(key int, time float64) (int, error) {
	if err := c.checkKey(key); err != nil {
		return -1, err
	}
	if time < 0 {
		return -1, errors.NewInvalidStateError(fmt.Sprintf("cannot move keyframe %d to negative time %g", key, time))
	}
	if other := c.KeyframeBinarySearch(time, false); other != -1 && other != key {
		return -1, errors.NewInvalidStateError(fmt.Sprintf("keyframe %d already exists at time %g", other, time))
	}
	k := c.keys[key]
	k.Time = time
	c.keys = slices.Delete(c.keys, key, key+1)
	i := c.lowerBound(time)
	c.keys = slices.Insert(c.keys, i, k)
	c.dirty = true
	return i, nil
}

func (c *Curve) checkKey(key int) error {
	if key < 0 || key >= len(c.keys) {
		return errors.NewNotFoundError(fmt.Sprintf("keyframe %d", key))
	}
	return nil
}

func (c *Curve) requireSegments() error {
	if len(c.keys) < 2 {
		return errors.NewInvalidStateError(fmt.Sprintf("curve has %d keyframes, at least 2 are required", len(c.keys)))
	}
	return nil
}

// ComputeCurves recomputes the control points of every keyframe.
func (c *Curve) ComputeCurves() error {
	if err := c.requireSegments(); err != nil {
		return err
	}
	if c.loop {
		c.solver.SolveLooping(c.keys)
	} else {
		c.solver.Solve(c.keys)
	}
	c.dirty = false
	return nil
}

// RecomputeKey refreshes the control points of key and its two neighbours.
//
// Smooth keyframes are coupled through the whole spline, so a curve holding
// any of them, or a looping curve, falls back to a full ComputeCurves.
func (c *Curve) RecomputeKey(key int) error {
	if err := c.requireSegments(); err != nil {
		return err
	}
	if err := c.checkKey(key); err != nil {
		return err
	}
	if c.loop || c.hasSmoothKeys() {
		return c.ComputeCurves()
	}
	for i := max(0, key-1); i <= min(len(c.keys)-1, key+1); i++ {
		spline.ComputeKey(c.keys, i)
	}
	// Held values run forward through consecutive CopyPrevious keys, and the
	// key closing the run reads the last held value.
	for next := key + 2; next < len(c.keys); next++ {
		held := c.keys[next].CurveType == keyframe.CopyPrevious
		if !held && c.keys[next-1].CurveType != keyframe.CopyPrevious {
			break
		}
		spline.ComputeKey(c.keys, next)
		if !held {
			break
		}
	}
	return nil
}

func (c *Curve) hasSmoothKeys() bool {
	for i := range c.keys {
		if spline.NeedsSolve(c.keys[i].CurveType) {
			return true
		}
	}
	return false
}

// Evaluate returns the value of the curve at time. Times before the first
// keyframe or after the last one are clamped to the boundary values.
func (c *Curve) Evaluate(time float64) (float64, error) {
	if err := c.requireSegments(); err != nil {
		return 0, err
	}
	if c.dirty {
		if err := c.ComputeCurves(); err != nil {
			return 0, err
		}
	}
	first, last := c.keys[0], c.keys[len(c.keys)-1]
	if time <= first.Time {
		return first.Value, nil
	}
	if time >= last.Time {
		return last.Value, nil
	}

	// Last keyframe at or before time.
	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Time > time }) - 1
	from, to := c.keys[i], c.keys[i+1]
	span := to.Time - from.Time
	if span <= 0 {
		return to.Value, nil
	}
	return bezier(from.Value, from.ControlOut, to.ControlIn, to.Value, (time-from.Time)/span), nil
}

func bezier(p0, p1, p2, p3, t float64) float64 {
	mt := 1 - t
	return p0*mt*mt*mt + 3*p1*mt*mt*t + 3*p2*mt*t*t + p3*t*t*t
}

// AddEdgeFramesIfMissing makes sure the curve has a keyframe at time 0 and one
// at animationLength. It reports whether anything was added.
//
// A CopyPrevious keyframe that ends up right before the final keyframe would
// hold into the boundary, so it is converted to curveType.
func (c *Curve) AddEdgeFramesIfMissing(animationLength float64, curveType keyframe.CurveType) bool {
	added := false
	if len(c.keys) == 0 {
		c.keys = append(c.keys, keyframe.New(0, 0, curveType))
		added = true
	}
	if !keyframe.SameTime(c.keys[0].Time, 0) {
		c.keys = slices.Insert(c.keys, 0, keyframe.New(0, c.keys[0].Value, curveType))
		added = true
	}
	if c.KeyframeBinarySearch(animationLength, false) == -1 && animationLength > 0 {
		c.SetKeyframe(animationLength, c.valueAt(animationLength), curveType)
		added = true
	}
	if added {
		c.dirty = true
		if n := len(c.keys); n >= 3 && c.keys[n-2].CurveType == keyframe.CopyPrevious {
			c.keys[n-2].CurveType = curveType
		}
	}
	return added
}

// valueAt evaluates the curve, tolerating a single keyframe.
func (c *Curve) valueAt(time float64) float64 {
	if len(c.keys) == 1 {
		return c.keys[0].Value
	}
	v, err := c.Evaluate(time)
	if err != nil {
		return c.keys[len(c.keys)-1].Value
	}
	return v
}

// Reverse mirrors the curve in time around its duration.
func (c *Curve) Reverse() {
	if len(c.keys) == 0 {
		return
	}
	duration := c.Duration()
	slices.Reverse(c.keys)
	for i := range c.keys {
		k := &c.keys[i]
		k.Time = duration - k.Time
		k.ControlIn, k.ControlOut = k.ControlOut, k.ControlIn
		switch k.CurveType {
		case keyframe.LinearFlat:
			k.CurveType = keyframe.FlatLinear
		case keyframe.FlatLinear:
			k.CurveType = keyframe.LinearFlat
		}
	}
	c.dirty = true
}

// Clone returns a deep copy of the curve. The copy shares the solver but
// never the keyframe storage.
func (c *Curve) Clone() *Curve {
	return &Curve{
		keys:   slices.Clone(c.keys),
		loop:   c.loop,
		dirty:  c.dirty,
		solver: c.solver,
	}
}

// CopyFrom replaces the keyframes of c with a copy of those of other.
func (c *Curve) CopyFrom(other *Curve) {
	c.keys = append(c.keys[:0], other.keys...)
	c.loop = other.loop
	c.dirty = true
}

// Capacity returns how many keyframes fit without reallocating.
func (c *Curve) Capacity() int {
	return cap(c.keys)
}

// IncreaseCapacity reserves room for n more keyframes, both in the curve and
// in its solver.
func (c *Curve) IncreaseCapacity(n int) {
	if n <= 0 {
		return
	}
	c.keys = slices.Grow(c.keys, n)
	if c.solver != nil {
		c.solver.Reserve(len(c.keys) + n)
	}
}

// TrimCapacity releases keyframe storage beyond the current length.
func (c *Curve) TrimCapacity() {
	if cap(c.keys) == len(c.keys) {
		return
	}
	trimmed := make([]keyframe.Keyframe, len(c.keys))
	copy(trimmed, c.keys)
	c.keys = trimmed
}
