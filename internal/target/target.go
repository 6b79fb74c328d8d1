// Package target groups curves that share one time axis into a single
// animatable property: a position, a rotation, a full transform or a scalar
// parameter. Every write fans out to all channels so that they keep the same
// keyframe count and times.
package target

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/acidbubbles/vam-timeline-sub003/internal/curve"
	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
	"github.com/acidbubbles/vam-timeline-sub003/internal/logging"
	"github.com/acidbubbles/vam-timeline-sub003/internal/spline"
)

// Kind is the channel layout of a target.
type Kind int

const (
	// KindPosition has x, y and z channels.
	KindPosition Kind = iota
	// KindRotation has the x, y, z and w channels of a quaternion.
	KindRotation
	// KindTransform has the position channels followed by the rotation channels.
	KindTransform
	// KindFloatParam has a single value channel with a known range.
	KindFloatParam
)

var kindNames = [...]string{
	KindPosition:   "position",
	KindRotation:   "rotation",
	KindTransform:  "transform",
	KindFloatParam: "float",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind converts a kind name back into a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, errors.NewUnsupportedOperationError(fmt.Sprintf("unknown target kind %q", s))
}

// Channel names per kind.
var (
	positionChannels = []string{"x", "y", "z"}
	rotationChannels = []string{"rot_x", "rot_y", "rot_z", "rot_w"}
	floatChannels    = []string{"value"}
)

// ChannelNames returns the names of the channels of a kind, in storage order.
func (k Kind) ChannelNames() []string {
	switch k {
	case KindPosition:
		return positionChannels
	case KindRotation:
		return rotationChannels
	case KindTransform:
		return append(append([]string(nil), positionChannels...), rotationChannels...)
	default:
		return floatChannels
	}
}

// group is a contiguous run of channels.
type group struct {
	offset, size int
}

func (k Kind) positionGroup() (group, bool) {
	switch k {
	case KindPosition, KindTransform:
		return group{0, 3}, true
	}
	return group{}, false
}

func (k Kind) rotationGroup() (group, bool) {
	switch k {
	case KindRotation:
		return group{0, 4}, true
	case KindTransform:
		return group{3, 4}, true
	}
	return group{}, false
}

// Weight remap constants; see ScaleWeight.
const (
	minScaledWeight = 0.1
	weightCurvature = -3.0
)

// Target is a set of curves edited and evaluated in lockstep.
//
// A Target is not safe for concurrent use.
type Target struct {
	id       uuid.UUID
	name     string
	ref      string
	kind     Kind
	channels []*curve.Curve
	solver   *spline.Solver

	weight       float64
	scaledWeight float64
	dirty        bool

	bulkDepth int
	pending   bool
	onChanged []func(*Target)

	resolver ParentResolver
	rangeMin float64
	rangeMax float64
	logger   *logging.Logger
}

// Option configures a Target.
type Option func(*Target)

// WithID sets the identity of the target instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(t *Target) {
		t.id = id
	}
}

// WithRef attaches the opaque host reference of the animated entity.
func WithRef(ref string) Option {
	return func(t *Target) {
		t.ref = ref
	}
}

// WithResolver sets the parent transform resolver used by world-space calls.
func WithResolver(r ParentResolver) Option {
	return func(t *Target) {
		t.resolver = r
	}
}

// WithRange sets the value range of a float parameter.
func WithRange(lo, hi float64) Option {
	return func(t *Target) {
		t.rangeMin, t.rangeMax = lo, hi
	}
}

// WithLogger sets the logger used for repair diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(t *Target) {
		t.logger = l
	}
}

// WithSolver shares a spline solver across targets.
func WithSolver(s *spline.Solver) Option {
	return func(t *Target) {
		t.solver = s
	}
}

// New creates an empty target of the given kind.
func New(kind Kind, name string, opts ...Option) *Target {
	t := &Target{
		id:       uuid.New(),
		name:     name,
		kind:     kind,
		rangeMax: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.solver == nil {
		t.solver = spline.New()
	}
	t.logger = t.logger.OrDiscard().WithTarget(name)
	t.channels = make([]*curve.Curve, len(kind.ChannelNames()))
	for i := range t.channels {
		t.channels[i] = curve.New(curve.WithSolver(t.solver))
	}
	t.SetWeight(1)
	return t
}

// NewPosition creates a position target.
func NewPosition(name string, opts ...Option) *Target {
	return New(KindPosition, name, opts...)
}

// NewRotation creates a rotation target.
func NewRotation(name string, opts ...Option) *Target {
	return New(KindRotation, name, opts...)
}

// NewTransform creates a target holding both position and rotation.
func NewTransform(name string, opts ...Option) *Target {
	return New(KindTransform, name, opts...)
}

// NewFloatParam creates a scalar target whose values live in [lo, hi].
func NewFloatParam(name string, lo, hi float64, opts ...Option) *Target {
	return New(KindFloatParam, name, append([]Option{WithRange(lo, hi)}, opts...)...)
}

func (t *Target) ID() uuid.UUID { return t.id }
func (t *Target) Name() string  { return t.name }
func (t *Target) Ref() string   { return t.ref }
func (t *Target) Kind() Kind    { return t.kind }

// Range returns the value range of a float parameter.
func (t *Target) Range() (lo, hi float64) {
	return t.rangeMin, t.rangeMax
}

// ChannelCount returns the number of curves in the target.
func (t *Target) ChannelCount() int {
	return len(t.channels)
}

// Channel returns the curve of channel i.
func (t *Target) Channel(i int) *curve.Curve {
	return t.channels[i]
}

// Lead returns the channel whose keyframes define the time axis.
func (t *Target) Lead() *curve.Curve {
	return t.channels[0]
}

// Len returns the number of keyframes on the lead channel.
func (t *Target) Len() int {
	return t.Lead().Len()
}

// KeyTimes returns the keyframe times of the lead channel.
func (t *Target) KeyTimes() []float64 {
	return curveTimes(t.Lead())
}

func curveTimes(c *curve.Curve) []float64 {
	times := make([]float64, c.Len())
	for i := range times {
		times[i] = c.Key(i).Time
	}
	return times
}

// Dirty reports whether keyframes changed since the last ComputeCurves.
func (t *Target) Dirty() bool {
	return t.dirty
}

// KeyframeBinarySearch looks a time up on the lead channel.
func (t *Target) KeyframeBinarySearch(time float64, returnClosest bool) int {
	return t.Lead().KeyframeBinarySearch(time, returnClosest)
}

// SetKeyframeByTime writes one value per channel at time, all with the same
// curve type, and returns the key index shared by every channel.
func (t *Target) SetKeyframeByTime(time float64, values []float64, curveType keyframe.CurveType) (int, error) {
	if len(values) != len(t.channels) {
		return -1, errors.NewChannelMismatchError(len(t.channels), len(values))
	}
	if err := keyframe.Check(time, curveType); err != nil {
		return -1, err
	}
	key := -1
	for i, c := range t.channels {
		k := c.SetKeyframe(time, values[i], curveType)
		if key == -1 {
			key = k
		} else if k != key {
			return -1, errors.NewInvalidStateError(
				fmt.Sprintf("channel %s wrote key %d, lead wrote key %d", t.kind.ChannelNames()[i], k, key))
		}
	}
	t.markChanged()
	return key, nil
}

// SetKeyframeByKey overwrites the values of an existing key, keeping its curve type.
func (t *Target) SetKeyframeByKey(key int, values []float64) error {
	if len(values) != len(t.channels) {
		return errors.NewChannelMismatchError(len(t.channels), len(values))
	}
	for i, c := range t.channels {
		if err := c.SetKeyframeByKey(key, values[i]); err != nil {
			return err
		}
	}
	t.markChanged()
	return nil
}

// SetCurveType changes the curve type of the key at time on every channel.
func (t *Target) SetCurveType(time float64, curveType keyframe.CurveType) error {
	key := t.KeyframeBinarySearch(time, false)
	if key == -1 {
		return errors.NewNotFoundError(fmt.Sprintf("keyframe at %.3fs", time))
	}
	for _, c := range t.channels {
		if err := c.SetCurveType(key, curveType); err != nil {
			return err
		}
	}
	t.markChanged()
	return nil
}

// DeleteFrame removes the key at time from every channel. It reports false
// when the lead channel has no key at that time.
func (t *Target) DeleteFrame(time float64) bool {
	key := t.KeyframeBinarySearch(time, false)
	if key == -1 {
		return false
	}
	for _, c := range t.channels {
		if c.Len() > key {
			_ = c.RemoveKey(key)
		}
	}
	t.markChanged()
	return true
}

// RecomputeKey refreshes the control points around key on every channel.
func (t *Target) RecomputeKey(key int) error {
	for _, c := range t.channels {
		if err := c.RecomputeKey(key); err != nil {
			return err
		}
	}
	return nil
}

// ComputeCurves recomputes the control points of every channel.
func (t *Target) ComputeCurves() error {
	for _, c := range t.channels {
		if err := c.ComputeCurves(); err != nil {
			return err
		}
	}
	t.dirty = false
	return nil
}

// Evaluate returns one value per channel at time.
func (t *Target) Evaluate(time float64) ([]float64, error) {
	values := make([]float64, len(t.channels))
	for i, c := range t.channels {
		v, err := c.Evaluate(time)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// EvaluateValue returns the value of a float parameter at time.
func (t *Target) EvaluateValue(time float64) (float64, error) {
	if t.kind != KindFloatParam {
		return 0, errors.NewUnsupportedOperationError(fmt.Sprintf("%s target has no scalar value", t.kind))
	}
	return t.channels[0].Evaluate(time)
}

// AddEdgeFramesIfMissing ensures every channel has keys at 0 and at length.
func (t *Target) AddEdgeFramesIfMissing(length float64) bool {
	added := false
	for _, c := range t.channels {
		if c.AddEdgeFramesIfMissing(length, keyframe.SmoothLocal) {
			added = true
		}
	}
	if added {
		t.markChanged()
	}
	return added
}

// Weight returns the raw weight in [0, 1].
func (t *Target) Weight() float64 {
	return t.weight
}

// SetWeight clamps w to [0, 1] and updates the scaled weight.
func (t *Target) SetWeight(w float64) {
	t.weight = math.Max(0, math.Min(1, w))
	t.scaledWeight = ScaleWeight(t.weight)
}

// ScaledWeight returns the weight remapped into [0.1, 1].
func (t *Target) ScaledWeight() float64 {
	return t.scaledWeight
}

// ScaleWeight remaps a [0, 1] weight onto [0.1, 1] along an exponential
// curve that is steepest near zero.
func ScaleWeight(w float64) float64 {
	shaped := (math.Exp(weightCurvature*w) - 1) / (math.Exp(weightCurvature) - 1)
	return minScaledWeight + (1-minScaledWeight)*shaped
}

// OnChanged registers a callback run after every change, or once at the end
// of a bulk update.
func (t *Target) OnChanged(fn func(*Target)) {
	t.onChanged = append(t.onChanged, fn)
}

// StartBulkUpdates defers change notifications until the matching EndBulkUpdates.
func (t *Target) StartBulkUpdates() {
	t.bulkDepth++
}

// EndBulkUpdates closes a bulk update. Leaving the outermost one sends a
// single notification if anything changed inside it.
func (t *Target) EndBulkUpdates() {
	if t.bulkDepth == 0 {
		return
	}
	t.bulkDepth--
	if t.bulkDepth == 0 && t.pending {
		t.pending = false
		t.notify()
	}
}

func (t *Target) markChanged() {
	t.dirty = true
	if t.bulkDepth > 0 {
		t.pending = true
		return
	}
	t.notify()
}

func (t *Target) notify() {
	for _, fn := range t.onChanged {
		fn(t)
	}
}

// IncreaseCapacity reserves room for n more keyframes on every channel.
func (t *Target) IncreaseCapacity(n int) {
	for _, c := range t.channels {
		c.IncreaseCapacity(n)
	}
}

// TrimCapacity releases unused keyframe storage on every channel.
func (t *Target) TrimCapacity() {
	for _, c := range t.channels {
		c.TrimCapacity()
	}
}

// Clone returns a deep copy with the same identity and settings but no
// change listeners.
func (t *Target) Clone() *Target {
	clone := *t
	clone.onChanged = nil
	clone.bulkDepth = 0
	clone.pending = false
	clone.channels = make([]*curve.Curve, len(t.channels))
	for i, c := range t.channels {
		clone.channels[i] = c.Clone()
	}
	return &clone
}

// Branch returns a copy holding only the first and last keyframes of every
// channel, retyped as SmoothLocal.
func (t *Target) Branch() *Target {
	branch := t.Clone()
	for i, src := range t.channels {
		c := curve.New(curve.WithSolver(t.solver), curve.WithLoop(src.Loop()), curve.WithCapacity(src.Len()))
		if n := src.Len(); n > 0 {
			first := src.Key(0)
			c.SetKeyframe(first.Time, first.Value, keyframe.SmoothLocal)
			if n > 1 {
				last := src.Key(n - 1)
				c.SetKeyframe(last.Time, last.Value, keyframe.SmoothLocal)
			}
		}
		branch.channels[i] = c
	}
	branch.dirty = true
	return branch
}

// ReplaceKeys copies the keyframes of other over those of t.
func (t *Target) ReplaceKeys(other *Target) error {
	if other.kind != t.kind || len(other.channels) != len(t.channels) {
		return errors.NewChannelMismatchError(len(t.channels), len(other.channels))
	}
	for i, c := range t.channels {
		c.CopyFrom(other.channels[i])
	}
	t.markChanged()
	return nil
}

// SetLoop changes the looping mode of every channel.
func (t *Target) SetLoop(loop bool) {
	for _, c := range t.channels {
		c.SetLoop(loop)
	}
	t.markChanged()
}

// Loop reports whether the target loops.
func (t *Target) Loop() bool {
	return t.Lead().Loop()
}
