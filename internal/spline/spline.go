// Package spline computes keyframe control points.
//
// Smooth keyframes are solved as a weighted natural spline. Each segment i
// between knots K_i and K_{i+1} has two unknowns, its outgoing control point
// P1_i (stored on K_i.ControlOut) and its incoming control point P2_i (stored
// on K_{i+1}.ControlIn). With the unknowns interleaved as
// [P1_0, P2_0, P1_1, P2_1, ...], C1 and C2 continuity at the interior knots
// plus a zero second derivative at both ends give a system whose only
// non-zero diagonals are -1, 0, +1 and +2. It is solved with a Thomas-style
// forward elimination followed by back substitution; every pivot of that
// system stays strictly negative, so no pivoting is needed.
//
// Segment weights are the Euclidean length of each segment in (time, value)
// space, not its duration.
package spline

import (
	"math"

	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
)

// minWeight keeps degenerate segments from producing a singular system.
const minWeight = 1e-6

// maxLoopWrap is how many keys are borrowed from the opposite end of a looping curve.
const maxLoopWrap = 3

const (
	bounceStrength = 1.5
	bounceDamping  = 0.5
)

// Solver computes control points. Its scratch buffers grow to the largest
// curve seen and are reused across calls. A Solver is not safe for
// concurrent use.
type Solver struct {
	weights []float64
	lower   []float64
	diag    []float64
	upper1  []float64
	upper2  []float64
	rhs     []float64
	x       []float64
	wrapped []keyframe.Keyframe
}

// New returns a solver with empty scratch buffers.
func New() *Solver {
	return &Solver{}
}

// Reserve grows the scratch buffers so that curves of up to keys keyframes
// can be solved without allocating.
func (s *Solver) Reserve(keys int) {
	if keys < 2 {
		return
	}
	segments := keys - 1
	unknowns := 2 * segments
	s.weights = grow(s.weights, segments)
	s.lower = grow(s.lower, unknowns)
	s.diag = grow(s.diag, unknowns)
	s.upper1 = grow(s.upper1, unknowns)
	s.upper2 = grow(s.upper2, unknowns)
	s.rhs = grow(s.rhs, unknowns)
	s.x = grow(s.x, unknowns)
}

// Capacity returns the largest keyframe count the scratch buffers can hold.
func (s *Solver) Capacity() int {
	if cap(s.weights) == 0 {
		return 0
	}
	return cap(s.weights) + 1
}

func grow(buf []float64, n int) []float64 {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// Solve computes the control points of every keyframe of a non-looping curve.
// LeaveAsIs keyframes are not modified. Curves with fewer than two keyframes
// are left untouched.
func (s *Solver) Solve(keys []keyframe.Keyframe) {
	if len(keys) < 2 {
		return
	}
	resolveCopyPrevious(keys)
	s.solveSmooth(keys)
	applyDirect(keys)
}

// SolveLooping computes the control points of a curve whose last keyframe
// wraps back onto its first one. Up to three keys from the opposite end are
// borrowed as neighbours so the tangents stay continuous across the wrap.
func (s *Solver) SolveLooping(keys []keyframe.Keyframe) {
	n := len(keys) - 1
	if n < 2 {
		s.Solve(keys)
		return
	}
	resolveCopyPrevious(keys)

	length := keys[n].Time - keys[0].Time
	wrap := min(maxLoopWrap, n-1)
	s.wrapped = s.wrapped[:0]
	for i := n - wrap; i < n; i++ {
		k := keys[i]
		k.Time -= length
		s.wrapped = append(s.wrapped, k)
	}
	s.wrapped = append(s.wrapped, keys...)
	for i := 1; i <= wrap; i++ {
		k := keys[i]
		k.Time += length
		s.wrapped = append(s.wrapped, k)
	}

	s.solveSmooth(s.wrapped)
	applyDirect(s.wrapped)

	for i := range keys {
		if keys[i].CurveType == keyframe.LeaveAsIs {
			continue
		}
		keys[i].ControlIn = s.wrapped[wrap+i].ControlIn
		keys[i].ControlOut = s.wrapped[wrap+i].ControlOut
	}
}

// solveSmooth writes the spline solution onto every SmoothLocal keyframe.
func (s *Solver) solveSmooth(keys []keyframe.Keyframe) {
	n := len(keys) - 1
	s.Reserve(len(keys))
	w, a, b, c, d, r, x := s.weights, s.lower, s.diag, s.upper1, s.upper2, s.rhs, s.x

	for i := 0; i < n; i++ {
		w[i] = max(math.Hypot(keys[i+1].Time-keys[i].Time, keys[i+1].Value-keys[i].Value), minWeight)
	}

	// Natural start: K_0 - 2 P1_0 + P2_0 = 0
	a[0], b[0], c[0], d[0], r[0] = 0, -2, 1, 0, -keys[0].Value

	for i := 1; i < n; i++ {
		k := keys[i].Value
		wp, wn := w[i-1], w[i]
		wp2, wn2 := wp*wp, wn*wn

		// C2 at K_i
		row := 2*i - 1
		a[row], b[row], c[row], d[row] = wn2, -2*wn2, 2*wp2, -wp2
		r[row] = k * (wp2 - wn2)

		// C1 at K_i
		row = 2 * i
		a[row], b[row], c[row], d[row] = -wn, -wp, 0, 0
		r[row] = -k * (wn + wp)
	}

	// Natural end: P1_{n-1} - 2 P2_{n-1} + K_n = 0
	last := 2*n - 1
	a[last], b[last], c[last], d[last], r[last] = 1, -2, 0, 0, -keys[n].Value

	thomas(a, b, c, d, r, x)

	for i := 0; i < n; i++ {
		if keys[i].CurveType == keyframe.SmoothLocal {
			keys[i].ControlOut = x[2*i]
		}
		if keys[i+1].CurveType == keyframe.SmoothLocal {
			keys[i+1].ControlIn = x[2*i+1]
		}
	}
	if keys[0].CurveType == keyframe.SmoothLocal {
		keys[0].ControlIn = keys[0].Value
	}
	if keys[n].CurveType == keyframe.SmoothLocal {
		keys[n].ControlOut = keys[n].Value
	}
}

// thomas solves a system with one sub-diagonal (a) and two super-diagonals
// (c, d). b and r are overwritten.
func thomas(a, b, c, d, r, x []float64) {
	size := len(b)
	for i := 1; i < size; i++ {
		m := a[i] / b[i-1]
		b[i] -= m * c[i-1]
		c[i] -= m * d[i-1]
		r[i] -= m * r[i-1]
	}
	x[size-1] = r[size-1] / b[size-1]
	if size > 1 {
		x[size-2] = (r[size-2] - c[size-2]*x[size-1]) / b[size-2]
	}
	for i := size - 3; i >= 0; i-- {
		x[i] = (r[i] - c[i]*x[i+1] - d[i]*x[i+2]) / b[i]
	}
}

// resolveCopyPrevious propagates held values forward so the solver sees them as knots.
func resolveCopyPrevious(keys []keyframe.Keyframe) {
	for i := 1; i < len(keys); i++ {
		if keys[i].CurveType == keyframe.CopyPrevious {
			keys[i].Value = keys[i-1].Value
		}
	}
}

// ComputeKey applies the direct tangent rule of a single non-smooth keyframe,
// using its neighbours in keys. SmoothLocal and LeaveAsIs keyframes are not
// modified; they need the full solve.
func ComputeKey(keys []keyframe.Keyframe, i int) {
	if i < 0 || i >= len(keys) {
		return
	}
	if i > 0 && keys[i].CurveType == keyframe.CopyPrevious {
		keys[i].Value = keys[i-1].Value
	}
	applyDirectAt(keys, i)
}

// NeedsSolve reports whether the keyframe's tangents come from the spline solver.
func NeedsSolve(c keyframe.CurveType) bool {
	return c == keyframe.SmoothLocal
}

// applyDirect applies the direct rules to every non-smooth keyframe.
func applyDirect(keys []keyframe.Keyframe) {
	for i := range keys {
		applyDirectAt(keys, i)
	}
}

func applyDirectAt(keys []keyframe.Keyframe, i int) {
	k := &keys[i]
	if k.CurveType == keyframe.SmoothLocal || k.CurveType == keyframe.LeaveAsIs {
		return
	}

	var prev, next *keyframe.Keyframe
	if i > 0 {
		prev = &keys[i-1]
	}
	if i < len(keys)-1 {
		next = &keys[i+1]
	}

	linearIn := k.Value
	if prev != nil {
		linearIn = k.Value - (k.Value-prev.Value)/3
	}
	linearOut := k.Value
	if next != nil {
		linearOut = k.Value + (next.Value-k.Value)/3
	}

	switch k.CurveType {
	case keyframe.Linear:
		k.ControlIn, k.ControlOut = linearIn, linearOut
	case keyframe.Flat:
		k.ControlIn, k.ControlOut = k.Value, k.Value
	case keyframe.Bounce:
		k.ControlIn = k.Value - (k.Value-linearIn)*bounceStrength
		k.ControlOut = k.Value + (linearOut-k.Value)*bounceStrength*bounceDamping
	case keyframe.LinearFlat:
		k.ControlIn, k.ControlOut = linearIn, k.Value
	case keyframe.FlatLinear:
		k.ControlIn, k.ControlOut = k.Value, linearOut
	case keyframe.CopyPrevious:
		k.ControlIn, k.ControlOut = k.Value, k.Value
		if i > 0 && prev.CurveType != keyframe.LeaveAsIs {
			prev.ControlOut = prev.Value
		}
	}
}
