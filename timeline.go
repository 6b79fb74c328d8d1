// Package timeline provides a keyframe animation engine.
//
// An Engine owns a set of targets: positions, rotations, transforms and
// scalar parameters whose channels share one time axis. Targets are edited
// and evaluated through their own methods; the engine validates them against
// the animation length, reduces dense captures to fewer keyframes within a
// tolerance, and saves or loads them as YAML documents.
//
// Basic usage:
//
//	engine, err := timeline.New(
//	    timeline.WithAnimationLength(4),
//	    timeline.WithPreset(timeline.PresetBalanced),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	hand, _ := engine.AddTransform("hand", "arm")
//	// ... record keyframes on hand ...
//
//	batch, err := engine.ReduceAll(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Reduced by %.1f%%\n", batch.Reduction)
package timeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acidbubbles/vam-timeline-sub003/internal/config"
	"github.com/acidbubbles/vam-timeline-sub003/internal/document"
	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/intern"
	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
	"github.com/acidbubbles/vam-timeline-sub003/internal/logging"
	"github.com/acidbubbles/vam-timeline-sub003/internal/metrics"
	"github.com/acidbubbles/vam-timeline-sub003/internal/reduce"
	"github.com/acidbubbles/vam-timeline-sub003/internal/reporter"
	"github.com/acidbubbles/vam-timeline-sub003/internal/target"
	"github.com/acidbubbles/vam-timeline-sub003/internal/util"
	"github.com/acidbubbles/vam-timeline-sub003/internal/validation"
	"github.com/acidbubbles/vam-timeline-sub003/internal/worker"
)

// Re-export preset types
type Preset = config.Preset

const (
	PresetFine       = config.PresetFine
	PresetBalanced   = config.PresetBalanced
	PresetAggressive = config.PresetAggressive
)

// ParsePreset converts a preset string to a Preset value.
// Valid values are "fine", "balanced", and "aggressive" (case-insensitive).
func ParsePreset(s string) (Preset, error) {
	return config.ParsePreset(s)
}

// ReduceSettings are the tolerances of a reduction.
type ReduceSettings = config.ReduceSettings

// DefaultReduceSettings returns the balanced tolerances.
func DefaultReduceSettings() ReduceSettings {
	return config.DefaultReduceSettings()
}

// Target types
type (
	Target         = target.Target
	Kind           = target.Kind
	Transform      = target.Transform
	Snapshot       = target.Snapshot
	ParentResolver = target.ParentResolver
	TargetOption   = target.Option
	CurveType      = keyframe.CurveType
)

const (
	KindPosition   = target.KindPosition
	KindRotation   = target.KindRotation
	KindTransform  = target.KindTransform
	KindFloatParam = target.KindFloatParam
)

const (
	SmoothLocal  = keyframe.SmoothLocal
	Linear       = keyframe.Linear
	Flat         = keyframe.Flat
	Bounce       = keyframe.Bounce
	LinearFlat   = keyframe.LinearFlat
	FlatLinear   = keyframe.FlatLinear
	CopyPrevious = keyframe.CopyPrevious
	LeaveAsIs    = keyframe.LeaveAsIs
)

// WithTargetRef attaches the host reference of the animated entity.
func WithTargetRef(ref string) TargetOption {
	return target.WithRef(ref)
}

// WithTargetResolver sets the parent transform resolver of a target.
func WithTargetResolver(r ParentResolver) TargetOption {
	return target.WithResolver(r)
}

// ReductionResult summarizes the reduction of one target.
type ReductionResult = reduce.Result

// BatchResult contains the result of reducing every target.
type BatchResult struct {
	Results         []ReductionResult
	Errors          []error
	SuccessfulCount int
	TotalTargets    int
	TotalBefore     int
	TotalAfter      int
	Reduction       float64
}

// Sample is the value of every channel of a target at one time.
type Sample struct {
	Time   float64
	Values []float64
}

type entry struct {
	target  *target.Target
	group   string
	groupID int
}

// Engine owns the targets of one animation.
//
// An Engine is not safe for concurrent use. ReduceAll reduces targets in
// parallel internally; nothing else may touch the engine or its targets
// while it runs.
type Engine struct {
	config   *config.Config
	logger   *logging.Logger
	reporter reporter.Reporter
	metrics  *metrics.Metrics
	groups   *intern.Registry

	targets []*entry
	byName  map[string]*entry
}

type options struct {
	config     *config.Config
	logger     *logging.Logger
	reporter   reporter.Reporter
	registerer prometheus.Registerer
}

// Option configures the engine.
type Option func(*options)

// New creates a new Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	o := &options{config: config.NewConfig(".")}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.config.Validate(); err != nil {
		return nil, errors.NewConfigError("invalid engine configuration", err)
	}

	return &Engine{
		config:   o.config,
		logger:   o.logger.OrDiscard(),
		reporter: reporter.OrNull(o.reporter),
		metrics:  metrics.New(o.registerer),
		groups:   intern.New(),
		byName:   make(map[string]*entry),
	}, nil
}

// WithAnimationLength sets the animation length in seconds.
func WithAnimationLength(seconds float64) Option {
	return func(o *options) {
		o.config.AnimationLength = seconds
	}
}

// WithLoop makes every target loop.
func WithLoop(loop bool) Option {
	return func(o *options) {
		o.config.Loop = loop
	}
}

// WithReduceSettings replaces the reduction tolerances.
func WithReduceSettings(s ReduceSettings) Option {
	return func(o *options) {
		o.config.Reduce = s
	}
}

// WithPreset applies a reduction preset. The frame rate is kept.
func WithPreset(p Preset) Option {
	return func(o *options) {
		o.config.ApplyPreset(p)
	}
}

// WithWorkers sets how many targets ReduceAll reduces at once. Zero uses one
// per logical CPU.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.config.Workers = n
	}
}

// WithLogger sets the structured logger for engine diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithReporter sets the reporter receiving validation and reduction events.
func WithReporter(r reporter.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithRegisterer registers the engine metrics on reg instead of a private
// registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// AnimationLength returns the animation length in seconds.
func (e *Engine) AnimationLength() float64 {
	return e.config.AnimationLength
}

// Loop reports whether the animation loops.
func (e *Engine) Loop() bool {
	return e.config.Loop
}

// ReduceSettings returns the tolerances used by Reduce and ReduceAll.
func (e *Engine) ReduceSettings() ReduceSettings {
	return e.config.Reduce
}

// SetReduceSettings validates and replaces the reduction tolerances.
func (e *Engine) SetReduceSettings(s ReduceSettings) error {
	if err := s.Validate(); err != nil {
		return errors.NewConfigError("invalid reduce settings", err)
	}
	e.config.Reduce = s
	return nil
}

// AddTarget creates an empty target and registers it under name. group is
// free text used to keep related targets together; it may be empty.
func (e *Engine) AddTarget(kind Kind, name, group string, opts ...TargetOption) (*Target, error) {
	if _, ok := e.byName[name]; ok {
		return nil, errors.NewInvalidStateError(fmt.Sprintf("target %q already exists", name))
	}
	opts = append([]TargetOption{target.WithLogger(e.logger)}, opts...)
	t := target.New(kind, name, opts...)
	e.register(t, group)
	return t, nil
}

// AddPosition creates a position target.
func (e *Engine) AddPosition(name, group string, opts ...TargetOption) (*Target, error) {
	return e.AddTarget(KindPosition, name, group, opts...)
}

// AddRotation creates a rotation target.
func (e *Engine) AddRotation(name, group string, opts ...TargetOption) (*Target, error) {
	return e.AddTarget(KindRotation, name, group, opts...)
}

// AddTransform creates a target holding both position and rotation.
func (e *Engine) AddTransform(name, group string, opts ...TargetOption) (*Target, error) {
	return e.AddTarget(KindTransform, name, group, opts...)
}

// AddFloatParam creates a scalar target with values in [lo, hi].
func (e *Engine) AddFloatParam(name, group string, lo, hi float64, opts ...TargetOption) (*Target, error) {
	return e.AddTarget(KindFloatParam, name, group, append([]TargetOption{target.WithRange(lo, hi)}, opts...)...)
}

func (e *Engine) register(t *target.Target, group string) {
	t.SetLoop(e.config.Loop)
	en := &entry{target: t, group: group, groupID: e.groups.ID(group)}
	e.targets = append(e.targets, en)
	e.byName[t.Name()] = en
	e.metrics.SetTargets(len(e.targets))
}

// Target returns the target registered under name.
func (e *Engine) Target(name string) (*Target, bool) {
	en, ok := e.byName[name]
	if !ok {
		return nil, false
	}
	return en.target, true
}

// Targets returns every target in registration order.
func (e *Engine) Targets() []*Target {
	targets := make([]*Target, len(e.targets))
	for i, en := range e.targets {
		targets[i] = en.target
	}
	return targets
}

// GroupID returns the engine-scoped id of the group of a target.
func (e *Engine) GroupID(name string) (int, bool) {
	en, ok := e.byName[name]
	if !ok {
		return -1, false
	}
	return en.groupID, true
}

// RemoveTarget unregisters a target. It reports false when name is unknown.
func (e *Engine) RemoveTarget(name string) bool {
	en, ok := e.byName[name]
	if !ok {
		return false
	}
	delete(e.byName, name)
	for i, other := range e.targets {
		if other == en {
			e.targets = append(e.targets[:i], e.targets[i+1:]...)
			break
		}
	}
	e.metrics.SetTargets(len(e.targets))
	return true
}

// Validate checks and repairs every target against the animation length.
func (e *Engine) Validate() []*validation.Result {
	results := make([]*validation.Result, 0, len(e.targets))
	for _, en := range e.targets {
		r := en.target.Validate(e.config.AnimationLength)
		results = append(results, r)

		var repaired []string
		repairs := make([]string, len(r.Repairs))
		for i, repair := range r.Repairs {
			repairs[i] = repair.String()
			repaired = append(repaired, repair.Check)
		}
		e.metrics.ObserveValidation(r.IsValid(), repaired)

		steps := r.GetValidationSteps()
		summary := reporter.ValidationSummary{
			Target:  r.Target,
			Passed:  r.IsValid(),
			Steps:   make([]reporter.ValidationStep, len(steps)),
			Repairs: repairs,
		}
		for i, step := range steps {
			summary.Steps[i] = reporter.ValidationStep{Name: step.Name, Passed: step.Passed, Details: step.Details}
		}
		e.reporter.ValidationComplete(summary)
	}
	return results
}

// Reduce reduces the target registered under name.
func (e *Engine) Reduce(ctx context.Context, name string) (ReductionResult, error) {
	en, ok := e.byName[name]
	if !ok {
		return ReductionResult{}, errors.NewNotFoundError(fmt.Sprintf("target %q", name))
	}
	return e.reduce(ctx, en.target, e.reporter)
}

func (e *Engine) reduce(ctx context.Context, t *target.Target, rep reporter.Reporter) (ReductionResult, error) {
	log := e.logger.WithTarget(t.Name())
	log.Debug("reducing target", "kind", t.Kind().String(), "keyframes", t.Len())

	res, err := reduce.Reduce(ctx, t, e.config.Reduce, rep)
	outcome := metrics.OutcomeKept
	switch {
	case errors.IsCancelled(err):
		outcome = metrics.OutcomeCancelled
	case err != nil:
		outcome = metrics.OutcomeFailed
	case res.Committed:
		outcome = metrics.OutcomeCommitted
	}
	e.metrics.ObserveReduction(t.Kind().String(), outcome, res.Before, res.After, res.Steps, res.Duration)

	if err != nil {
		log.Warn("reduction failed", "error", err)
		return res, err
	}
	log.Info("reduced target",
		"before", res.Before,
		"after", res.After,
		"committed", res.Committed,
		"duration", util.FormatElapsed(res.Duration))
	return res, nil
}

// ReduceAll reduces every target, several at once when the engine has more
// than one worker. A target that fails does not stop the others; its error
// is collected in the result. Cancelling ctx leaves unfinished targets
// untouched and returns a cancellation error.
func (e *Engine) ReduceAll(ctx context.Context) (*BatchResult, error) {
	start := time.Now()
	entries := append([]*entry(nil), e.targets...)
	names := make([]string, len(entries))
	for i, en := range entries {
		names[i] = en.target.Name()
	}

	workers := util.WorkerCount(e.config.Workers)
	rep := e.reporter
	if workers > 1 && len(entries) > 1 {
		rep = reporter.Synchronized(rep)
	}
	rep.BatchStarted(reporter.BatchStartInfo{TotalTargets: len(entries), TargetList: names})

	results := worker.Run(ctx, len(entries), workers, func(ctx context.Context, i int) (ReductionResult, error) {
		rep.TargetProgress(reporter.TargetProgressContext{
			CurrentTarget: i + 1,
			TotalTargets:  len(entries),
			Name:          names[i],
		})
		return e.reduce(ctx, entries[i].target, rep)
	}, nil)

	batch := &BatchResult{TotalTargets: len(entries)}
	summary := reporter.BatchSummary{TotalTargets: len(entries)}
	var cancelled error
	for _, r := range results {
		if r.Error != nil {
			batch.Errors = append(batch.Errors, r.Error)
			if cancelled == nil && (errors.IsCancelled(r.Error) || ctx.Err() != nil) {
				cancelled = errors.NewCancelledError(ctx.Err())
			}
			continue
		}
		batch.Results = append(batch.Results, r.Value)
		batch.SuccessfulCount++
		batch.TotalBefore += r.Value.Before
		batch.TotalAfter += r.Value.After
		summary.TargetResults = append(summary.TargetResults, reporter.TargetResult{
			Name:      r.Value.Target,
			Before:    r.Value.Before,
			After:     r.Value.After,
			Reduction: util.CalculateReduction(r.Value.Before, r.Value.After),
		})
	}
	batch.Reduction = util.CalculateReduction(batch.TotalBefore, batch.TotalAfter)

	summary.SuccessfulCount = batch.SuccessfulCount
	summary.TotalBefore = batch.TotalBefore
	summary.TotalAfter = batch.TotalAfter
	summary.TotalDuration = time.Since(start)
	rep.BatchComplete(summary)

	if cancelled != nil {
		return batch, cancelled
	}
	return batch, nil
}

// Sample evaluates a target at every frame of the animation at fps.
func (e *Engine) Sample(name string, fps float64) ([]Sample, error) {
	en, ok := e.byName[name]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("target %q", name))
	}
	if math.IsNaN(fps) || fps <= 0 {
		return nil, errors.NewConfigError("sampling", fmt.Errorf("%w: got %g", config.ErrInvalidFPS, fps))
	}
	frames := int(math.Round(e.config.AnimationLength*fps)) + 1
	samples := make([]Sample, 0, frames)
	for i := 0; i < frames; i++ {
		tm := math.Min(float64(i)/fps, e.config.AnimationLength)
		values, err := en.target.Evaluate(tm)
		if err != nil {
			return nil, err
		}
		samples = append(samples, Sample{Time: tm, Values: values})
	}
	return samples, nil
}

// Document captures the animation as a document.
func (e *Engine) Document() *document.Document {
	doc := &document.Document{
		Version: document.Version,
		Length:  e.config.AnimationLength,
		Loop:    e.config.Loop,
		Targets: make([]*document.Target, len(e.targets)),
	}
	for i, en := range e.targets {
		doc.Targets[i] = document.FromTarget(en.target, en.group)
	}
	return doc
}

// Load replaces the targets of the engine with those of doc. The engine is
// left unchanged when any target fails to load.
func (e *Engine) Load(doc *document.Document) error {
	if doc == nil {
		return errors.NewInvalidStateError("nil document")
	}
	length := e.config.AnimationLength
	if doc.Length > 0 {
		length = doc.Length
	}

	seen := make(map[string]bool, len(doc.Targets))
	built := make([]*target.Target, len(doc.Targets))
	for i, td := range doc.Targets {
		if seen[td.Name] {
			return errors.NewInvalidStateError(fmt.Sprintf("target %q appears twice", td.Name))
		}
		seen[td.Name] = true
		t, err := td.Build(target.WithLogger(e.logger))
		if err != nil {
			return err
		}
		built[i] = t
	}

	e.config.AnimationLength = length
	e.config.Loop = doc.Loop
	e.targets = nil
	e.byName = make(map[string]*entry, len(built))
	e.groups.Reset()
	for i, t := range built {
		e.register(t, doc.Targets[i].Group)
	}
	e.logger.Info("loaded animation", "targets", len(built), "length", length, "loop", doc.Loop)
	return nil
}

// LoadFile reads the document at path and loads it.
func (e *Engine) LoadFile(path string) error {
	doc, err := document.Read(path)
	if err != nil {
		return err
	}
	return e.Load(doc)
}

// SaveFile writes the animation to path.
func (e *Engine) SaveFile(path string) error {
	return document.Write(path, e.Document())
}

// KeyframeCount returns the number of keyframes across every target.
func (e *Engine) KeyframeCount() int {
	n := 0
	for _, en := range e.targets {
		n += en.target.Len()
	}
	return n
}
