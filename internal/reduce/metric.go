package reduce

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/acidbubbles/vam-timeline-sub003/internal/config"
	"github.com/acidbubbles/vam-timeline-sub003/internal/target"
)

// stabilityDivisor scales a tolerance down to the threshold used by IsStable.
const stabilityDivisor = 10

// rangeEpsilon guards the range of float parameters.
const rangeEpsilon = 1e-9

// metric measures and combines the values of one target kind. Values are
// full channel vectors, in the target's storage order.
type metric interface {
	// deviation returns how far b is from a, in tolerance units.
	deviation(a, b []float64) float64
	// stable reports whether a and b belong to the same hold.
	stable(a, b []float64) bool
	// average writes the weighted mean of values into out. Weights sum to 1.
	average(values [][]float64, weights []float64, out []float64)
}

func metricFor(t *target.Target, s config.ReduceSettings) metric {
	switch t.Kind() {
	case target.KindPosition:
		return positionMetric{offset: 0, tolerance: s.MinMeaningfulDistance}
	case target.KindRotation:
		return rotationMetric{offset: 0, tolerance: s.MinMeaningfulRotation}
	case target.KindTransform:
		return transformMetric{
			position: positionMetric{offset: 0, tolerance: s.MinMeaningfulDistance},
			rotation: rotationMetric{offset: 3, tolerance: s.MinMeaningfulRotation},
		}
	default:
		lo, hi := t.Range()
		return floatMetric{span: hi - lo, ratio: s.MinMeaningfulFloatParamRangeRatio}
	}
}

// normalized divides delta by tolerance. A disabled tolerance only accepts an
// exact match.
func normalized(delta, tolerance float64) float64 {
	if math.IsNaN(delta) {
		return math.Inf(1)
	}
	if tolerance <= 0 {
		if delta == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return delta / tolerance
}

type positionMetric struct {
	offset    int
	tolerance float64
}

func (m positionMetric) vec(v []float64) r3.Vec {
	return r3.Vec{X: v[m.offset], Y: v[m.offset+1], Z: v[m.offset+2]}
}

func (m positionMetric) distance(a, b []float64) float64 {
	return r3.Norm(r3.Sub(m.vec(a), m.vec(b)))
}

func (m positionMetric) deviation(a, b []float64) float64 {
	return normalized(m.distance(a, b), m.tolerance)
}

func (m positionMetric) stable(a, b []float64) bool {
	d := m.distance(a, b)
	if d == 0 {
		return true
	}
	return d < m.tolerance/stabilityDivisor
}

func (m positionMetric) average(values [][]float64, weights []float64, out []float64) {
	var sum r3.Vec
	for i, v := range values {
		sum = r3.Add(sum, r3.Scale(weights[i], m.vec(v)))
	}
	out[m.offset], out[m.offset+1], out[m.offset+2] = sum.X, sum.Y, sum.Z
}

type rotationMetric struct {
	offset    int
	tolerance float64 // degrees
}

func (m rotationMetric) quat(v []float64) quat.Number {
	return quat.Number{Imag: v[m.offset], Jmag: v[m.offset+1], Kmag: v[m.offset+2], Real: v[m.offset+3]}
}

func (m rotationMetric) deviation(a, b []float64) float64 {
	qa, qb := m.quat(a), m.quat(b)
	if qa == qb {
		return 0
	}
	return normalized(target.AngleDegrees(qa, qb), m.tolerance)
}

// stable compares 1-|dot| against the same measure taken at the threshold
// angle, so q and -q count as one orientation.
func (m rotationMetric) stable(a, b []float64) bool {
	qa, qb := m.quat(a), m.quat(b)
	if qa == qb {
		return true
	}
	threshold := m.tolerance / stabilityDivisor * math.Pi / 180
	d := math.Abs(target.Dot(target.Normalize(qa), target.Normalize(qb)))
	return 1-d < 1-math.Cos(threshold/2)
}

func (m rotationMetric) average(values [][]float64, weights []float64, out []float64) {
	var sum quat.Number
	first := m.quat(values[0])
	for i, v := range values {
		q := m.quat(v)
		if target.Dot(q, first) < 0 {
			q = quat.Scale(-1, q)
		}
		sum = quat.Add(sum, quat.Scale(weights[i], q))
	}
	sum = target.Normalize(sum)
	out[m.offset], out[m.offset+1], out[m.offset+2], out[m.offset+3] = sum.Imag, sum.Jmag, sum.Kmag, sum.Real
}

type transformMetric struct {
	position positionMetric
	rotation rotationMetric
}

func (m transformMetric) deviation(a, b []float64) float64 {
	return math.Max(m.position.deviation(a, b), m.rotation.deviation(a, b))
}

func (m transformMetric) stable(a, b []float64) bool {
	return m.position.stable(a, b) && m.rotation.stable(a, b)
}

func (m transformMetric) average(values [][]float64, weights []float64, out []float64) {
	m.position.average(values, weights, out)
	m.rotation.average(values, weights, out)
}

type floatMetric struct {
	span  float64
	ratio float64
}

func (m floatMetric) relative(a, b []float64) float64 {
	span := m.span
	if math.Abs(span) < rangeEpsilon {
		span = 1
	}
	return math.Abs(a[0]-b[0]) / math.Abs(span)
}

func (m floatMetric) deviation(a, b []float64) float64 {
	return normalized(m.relative(a, b), m.ratio)
}

func (m floatMetric) stable(a, b []float64) bool {
	if a[0] == b[0] {
		return true
	}
	return m.relative(a, b) < m.ratio/stabilityDivisor
}

func (m floatMetric) average(values [][]float64, weights []float64, out []float64) {
	var sum float64
	for i, v := range values {
		sum += weights[i] * v[0]
	}
	out[0] = sum
}
