package target

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
)

// Transform is a rigid transform: a rotation followed by a translation.
type Transform struct {
	Position r3.Vec
	Rotation quat.Number
}

// Identity returns the transform that leaves points unchanged.
func Identity() Transform {
	return Transform{Rotation: quat.Number{Real: 1}}
}

// Apply maps a local pose into the space of t.
func (t Transform) Apply(pos r3.Vec, rot quat.Number) (r3.Vec, quat.Number) {
	q := Normalize(t.Rotation)
	return r3.Add(t.Position, r3.Rotation(q).Rotate(pos)), quat.Mul(q, rot)
}

// Inverse maps a pose in the space of t back into local space.
func (t Transform) Inverse(pos r3.Vec, rot quat.Number) (r3.Vec, quat.Number) {
	inv := quat.Conj(Normalize(t.Rotation))
	return r3.Rotation(inv).Rotate(r3.Sub(pos, t.Position)), quat.Mul(inv, rot)
}

// ParentResolver locates the transform that keyframes are stored relative to.
//
// ResolveParent returns a nil transform when the target has no parent, and
// ok=false when the parent exists but cannot be resolved right now; callers
// should retry later.
type ParentResolver interface {
	ResolveParent() (parent *Transform, ok bool)
}

// ResolverFunc adapts a function to ParentResolver.
type ResolverFunc func() (*Transform, bool)

// ResolveParent calls f.
func (f ResolverFunc) ResolveParent() (*Transform, bool) {
	return f()
}

// SetResolver replaces the parent resolver.
func (t *Target) SetResolver(r ParentResolver) {
	t.resolver = r
}

// parent resolves the parent transform. A target without resolver, or whose
// resolver reports no parent, is expressed in world space.
func (t *Target) parent() (Transform, bool) {
	if t.resolver == nil {
		return Identity(), true
	}
	p, ok := t.resolver.ResolveParent()
	if !ok {
		return Transform{}, false
	}
	if p == nil {
		return Identity(), true
	}
	return *p, true
}

// Dot returns the four-dimensional dot product of two quaternions.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Normalize scales q to unit length. A zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < 1e-12 || math.IsNaN(n) {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// AngleDegrees returns the angle between two orientations, in degrees,
// treating q and -q as the same orientation.
func AngleDegrees(a, b quat.Number) float64 {
	d := math.Abs(Dot(Normalize(a), Normalize(b)))
	return 2 * math.Acos(math.Min(1, d)) * 180 / math.Pi
}

func (t *Target) requirePosition() (group, error) {
	g, ok := t.kind.positionGroup()
	if !ok {
		return group{}, errors.NewUnsupportedOperationError(fmt.Sprintf("%s target has no position channels", t.kind))
	}
	return g, nil
}

func (t *Target) requireRotation() (group, error) {
	g, ok := t.kind.rotationGroup()
	if !ok {
		return group{}, errors.NewUnsupportedOperationError(fmt.Sprintf("%s target has no rotation channels", t.kind))
	}
	return g, nil
}

func vecValues(v r3.Vec) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

func quatValues(q quat.Number) []float64 {
	return []float64{q.Imag, q.Jmag, q.Kmag, q.Real}
}

// setGroup writes the channels of g at time. Channels outside the group keep
// their key at that time, or get one sampled from their current curve, so the
// time axis stays shared.
func (t *Target) setGroup(time float64, g group, values []float64, curveType keyframe.CurveType) (int, error) {
	all := make([]float64, len(t.channels))
	for i, c := range t.channels {
		if i >= g.offset && i < g.offset+g.size {
			all[i] = values[i-g.offset]
			continue
		}
		if key := c.KeyframeBinarySearch(time, false); key != -1 {
			all[i] = c.Key(key).Value
			continue
		}
		all[i] = sampleChannel(c, time)
	}
	return t.SetKeyframeByTime(time, all, curveType)
}

// SetPositionKeyframe writes a local position at time.
func (t *Target) SetPositionKeyframe(time float64, pos r3.Vec, curveType keyframe.CurveType) (int, error) {
	g, err := t.requirePosition()
	if err != nil {
		return -1, err
	}
	return t.setGroup(time, g, vecValues(pos), curveType)
}

// SetRotationKeyframe writes a local rotation at time. The quaternion is
// stored as given.
func (t *Target) SetRotationKeyframe(time float64, rot quat.Number, curveType keyframe.CurveType) (int, error) {
	g, err := t.requireRotation()
	if err != nil {
		return -1, err
	}
	return t.setGroup(time, g, quatValues(rot), curveType)
}

// SetTransformKeyframe writes a local position and rotation at time.
func (t *Target) SetTransformKeyframe(time float64, tr Transform, curveType keyframe.CurveType) (int, error) {
	if t.kind != KindTransform {
		return -1, errors.NewUnsupportedOperationError(fmt.Sprintf("%s target is not a transform", t.kind))
	}
	return t.SetKeyframeByTime(time, append(vecValues(tr.Position), quatValues(tr.Rotation)...), curveType)
}

// EvaluatePosition returns the local position at time.
func (t *Target) EvaluatePosition(time float64) (r3.Vec, error) {
	g, err := t.requirePosition()
	if err != nil {
		return r3.Vec{}, err
	}
	v, err := t.evaluateGroup(time, g)
	if err != nil {
		return r3.Vec{}, err
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// EvaluateRotation returns the local rotation at time. Each component is
// interpolated on its own curve and the result is not renormalized.
func (t *Target) EvaluateRotation(time float64) (quat.Number, error) {
	g, err := t.requireRotation()
	if err != nil {
		return quat.Number{}, err
	}
	v, err := t.evaluateGroup(time, g)
	if err != nil {
		return quat.Number{}, err
	}
	return quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2], Real: v[3]}, nil
}

func (t *Target) evaluateGroup(time float64, g group) ([]float64, error) {
	values := make([]float64, g.size)
	for i := range values {
		v, err := t.channels[g.offset+i].Evaluate(time)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// SetWorldPosition converts a world position into the parent's space and
// writes it at time. It returns ok=false, leaving the keyframes untouched,
// when the parent cannot be resolved.
func (t *Target) SetWorldPosition(time float64, pos r3.Vec, curveType keyframe.CurveType) (key int, ok bool, err error) {
	if _, err := t.requirePosition(); err != nil {
		return -1, false, err
	}
	parent, ok := t.parent()
	if !ok {
		return -1, false, nil
	}
	local, _ := parent.Inverse(pos, quat.Number{Real: 1})
	key, err = t.SetPositionKeyframe(time, local, curveType)
	return key, err == nil, err
}

// SetWorldRotation converts a world rotation into the parent's space and
// writes it at time. It returns ok=false, leaving the keyframes untouched,
// when the parent cannot be resolved.
func (t *Target) SetWorldRotation(time float64, rot quat.Number, curveType keyframe.CurveType) (key int, ok bool, err error) {
	if _, err := t.requireRotation(); err != nil {
		return -1, false, err
	}
	parent, ok := t.parent()
	if !ok {
		return -1, false, nil
	}
	_, local := parent.Inverse(r3.Vec{}, rot)
	key, err = t.SetRotationKeyframe(time, local, curveType)
	return key, err == nil, err
}

// EvaluateWorldPosition evaluates the position at time and maps it into
// world space. ok is false when the parent cannot be resolved.
func (t *Target) EvaluateWorldPosition(time float64) (pos r3.Vec, ok bool, err error) {
	if _, err := t.requirePosition(); err != nil {
		return r3.Vec{}, false, err
	}
	parent, ok := t.parent()
	if !ok {
		return r3.Vec{}, false, nil
	}
	local, err := t.EvaluatePosition(time)
	if err != nil {
		return r3.Vec{}, false, err
	}
	pos, _ = parent.Apply(local, quat.Number{Real: 1})
	return pos, true, nil
}

// EvaluateWorldRotation evaluates the rotation at time and maps it into world
// space. Unlike EvaluateRotation, the result is normalized. ok is false when
// the parent cannot be resolved.
func (t *Target) EvaluateWorldRotation(time float64) (rot quat.Number, ok bool, err error) {
	if _, err := t.requireRotation(); err != nil {
		return quat.Number{}, false, err
	}
	parent, ok := t.parent()
	if !ok {
		return quat.Number{}, false, nil
	}
	local, err := t.EvaluateRotation(time)
	if err != nil {
		return quat.Number{}, false, err
	}
	_, rot = parent.Apply(r3.Vec{}, Normalize(local))
	return Normalize(rot), true, nil
}
