// Package reduce removes keyframes from dense targets while keeping the
// animation within a per-kind tolerance.
//
// A reduction never edits its source in place. Keys are picked into a
// branch, a scratch copy that starts with only the first and last keyframes,
// and the branch replaces the source on Commit.
package reduce

import (
	"fmt"
	"math"

	"github.com/acidbubbles/vam-timeline-sub003/internal/config"
	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
	"github.com/acidbubbles/vam-timeline-sub003/internal/target"
)

// Processor exposes the per-kind operations a reduction is built from. Key
// arguments are indices into the source target.
type Processor interface {
	Source() *target.Target
	// Branch starts a new branch holding the first and last source keyframes.
	Branch() *target.Target
	// BranchTarget returns the current branch, or nil before Branch.
	BranchTarget() *target.Target
	CopyToBranch(sourceKey int, opts ...CopyOption) (int, error)
	AverageToBranch(time float64, from, to int) (int, error)
	FlattenToBranch(start, end int) error
	IsStable(key1, key2 int) bool
	// GetComparableNormalizedValue ranks how badly the branch misses a source
	// key. It is unbounded when simplification is off.
	GetComparableNormalizedValue(key int) float64
	// Deviation is the branch error at a source key, in tolerance units.
	Deviation(key int) float64
	Commit() error
}

// CopyOption changes how CopyToBranch writes a keyframe.
type CopyOption func(*copyOptions)

type copyOptions struct {
	curveType keyframe.CurveType
	time      float64
	timeSet   bool
}

// WithCurveType sets the curve type of the copied keyframe.
func WithCurveType(ct keyframe.CurveType) CopyOption {
	return func(o *copyOptions) {
		o.curveType = ct
	}
}

// AtTime writes the copied values at time instead of the source key's time.
func AtTime(time float64) CopyOption {
	return func(o *copyOptions) {
		o.time = time
		o.timeSet = true
	}
}

// TargetProcessor is the Processor for every target kind. The kind only
// changes the metric used to compare and average values.
type TargetProcessor struct {
	source   *target.Target
	branch   *target.Target
	metric   metric
	settings config.ReduceSettings
}

// NewProcessor wraps t for a reduction with settings. Targets whose channels
// drifted apart are refused; Validate repairs them.
func NewProcessor(t *target.Target, settings config.ReduceSettings) (*TargetProcessor, error) {
	if t == nil {
		return nil, errors.NewInvalidStateError("nil target")
	}
	if err := settings.Validate(); err != nil {
		return nil, errors.NewConfigError("invalid reduce settings", err)
	}
	if err := t.CheckSync(); err != nil {
		return nil, err
	}
	return &TargetProcessor{
		source:   t,
		metric:   metricFor(t, settings),
		settings: settings,
	}, nil
}

func (p *TargetProcessor) Source() *target.Target { return p.source }

func (p *TargetProcessor) BranchTarget() *target.Target { return p.branch }

func (p *TargetProcessor) Branch() *target.Target {
	p.branch = p.source.Branch()
	return p.branch
}

func (p *TargetProcessor) requireBranch() error {
	if p.branch == nil {
		return errors.NewInvalidStateError("no branch")
	}
	return nil
}

func (p *TargetProcessor) checkKey(key int) error {
	if key < 0 || key >= p.source.Len() {
		return errors.NewNotFoundError(fmt.Sprintf("source key %d of %d", key, p.source.Len()))
	}
	return nil
}

func (p *TargetProcessor) sourceTime(key int) float64 {
	return p.source.Lead().Key(key).Time
}

func (p *TargetProcessor) sourceValues(key int) []float64 {
	values := make([]float64, p.source.ChannelCount())
	for i := range values {
		values[i] = p.source.Channel(i).Key(key).Value
	}
	return values
}

func (p *TargetProcessor) write(time float64, values []float64, ct keyframe.CurveType) (int, error) {
	key, err := p.branch.SetKeyframeByTime(time, values, ct)
	if err != nil {
		return -1, err
	}
	if err := p.branch.RecomputeKey(key); err != nil {
		return -1, err
	}
	return key, nil
}

// CopyToBranch writes the exact values of sourceKey into the branch, as a
// SmoothLocal keyframe at the source time unless options say otherwise.
func (p *TargetProcessor) CopyToBranch(sourceKey int, opts ...CopyOption) (int, error) {
	if err := p.requireBranch(); err != nil {
		return -1, err
	}
	if err := p.checkKey(sourceKey); err != nil {
		return -1, err
	}
	o := copyOptions{curveType: keyframe.SmoothLocal}
	for _, opt := range opts {
		opt(&o)
	}
	time := p.sourceTime(sourceKey)
	if o.timeSet {
		time = o.time
	}
	return p.write(time, p.sourceValues(sourceKey), o.curveType)
}

// AverageToBranch writes at time the mean of the source keys in [from, to),
// each weighted by the duration up to the next key. A section without
// duration takes the value of from.
func (p *TargetProcessor) AverageToBranch(time float64, from, to int) (int, error) {
	if err := p.requireBranch(); err != nil {
		return -1, err
	}
	to = min(to, p.source.Len()-1)
	if err := p.checkKey(from); err != nil {
		return -1, err
	}
	if to < from {
		return -1, errors.NewInvalidStateError(fmt.Sprintf("empty section [%d, %d)", from, to))
	}

	var values [][]float64
	var weights []float64
	duration := p.sourceTime(to) - p.sourceTime(from)
	if to == from || duration < keyframe.TimeEpsilon {
		values = [][]float64{p.sourceValues(from)}
		weights = []float64{1}
	} else {
		for k := from; k < to; k++ {
			values = append(values, p.sourceValues(k))
			weights = append(weights, (p.sourceTime(k+1)-p.sourceTime(k))/duration)
		}
	}

	avg := make([]float64, p.source.ChannelCount())
	p.metric.average(values, weights, avg)
	return p.write(time, avg, keyframe.SmoothLocal)
}

// FlattenToBranch turns the source keys start..end into a hold: two branch
// keyframes at the section's edges carrying the mean value, flat on the
// inside. Branch keyframes inside the section are removed. An edge that
// already closes a neighbouring hold becomes Flat.
func (p *TargetProcessor) FlattenToBranch(start, end int) error {
	if err := p.requireBranch(); err != nil {
		return err
	}
	if err := p.checkKey(start); err != nil {
		return err
	}
	if err := p.checkKey(end); err != nil {
		return err
	}
	if end < start {
		return errors.NewInvalidStateError(fmt.Sprintf("empty section [%d, %d]", start, end))
	}

	count := end - start + 1
	values := make([][]float64, 0, count)
	weights := make([]float64, 0, count)
	for k := start; k <= end; k++ {
		values = append(values, p.sourceValues(k))
		weights = append(weights, 1/float64(count))
	}
	avg := make([]float64, p.source.ChannelCount())
	p.metric.average(values, weights, avg)

	tStart, tEnd := p.sourceTime(start), p.sourceTime(end)
	for _, t := range p.branch.KeyTimes() {
		if t > tStart+keyframe.TimeEpsilon && t < tEnd-keyframe.TimeEpsilon {
			p.branch.DeleteFrame(t)
		}
	}

	startType := keyframe.LinearFlat
	if p.branchCurveType(tStart) == keyframe.FlatLinear {
		startType = keyframe.Flat
	}
	if _, err := p.write(tStart, avg, startType); err != nil {
		return err
	}
	if end == start {
		return nil
	}
	endType := keyframe.FlatLinear
	if p.branchCurveType(tEnd) == keyframe.LinearFlat {
		endType = keyframe.Flat
	}
	_, err := p.write(tEnd, avg, endType)
	return err
}

// branchCurveType returns the type of the branch keyframe at time, or
// SmoothLocal when there is none.
func (p *TargetProcessor) branchCurveType(time float64) keyframe.CurveType {
	key := p.branch.KeyframeBinarySearch(time, false)
	if key == -1 {
		return keyframe.SmoothLocal
	}
	return p.branch.Lead().Key(key).CurveType
}

func (p *TargetProcessor) IsStable(key1, key2 int) bool {
	return p.metric.stable(p.sourceValues(key1), p.sourceValues(key2))
}

func (p *TargetProcessor) GetComparableNormalizedValue(key int) float64 {
	if !p.settings.Simplify {
		return math.Inf(1)
	}
	return p.Deviation(key)
}

func (p *TargetProcessor) Deviation(key int) float64 {
	if p.branch == nil {
		return math.Inf(1)
	}
	got, err := p.branch.Evaluate(p.sourceTime(key))
	if err != nil {
		return math.Inf(1)
	}
	d := p.metric.deviation(p.sourceValues(key), got)
	if math.IsNaN(d) {
		return math.Inf(1)
	}
	return d
}

// Commit copies the branch keyframes over the source and drops the branch.
func (p *TargetProcessor) Commit() error {
	if err := p.requireBranch(); err != nil {
		return err
	}
	if err := p.source.ReplaceKeys(p.branch); err != nil {
		return err
	}
	p.branch = nil
	if p.source.Len() < 2 {
		return nil
	}
	return p.source.ComputeCurves()
}

