package reduce

import (
	"context"
	"time"

	"github.com/acidbubbles/vam-timeline-sub003/internal/config"
	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/reporter"
	"github.com/acidbubbles/vam-timeline-sub003/internal/target"
)

// Result summarizes one reduction.
type Result struct {
	Target        string
	Kind          string
	Before        int
	After         int
	Committed     bool
	Steps         int
	Copied        int
	Averaged      int
	Flattened     int
	Verifications int
	Duration      time.Duration
}

// Removed returns how many keyframes the reduction removed.
func (r Result) Removed() int {
	if !r.Committed {
		return 0
	}
	return r.Before - r.After
}

// Outcome converts the result for reporters.
func (r Result) Outcome() reporter.ReductionOutcome {
	return reporter.ReductionOutcome{
		Target:        r.Target,
		Kind:          r.Kind,
		Before:        r.Before,
		After:         r.After,
		Committed:     r.Committed,
		Steps:         r.Steps,
		Copied:        r.Copied,
		Averaged:      r.Averaged,
		Flattened:     r.Flattened,
		Verifications: r.Verifications,
		Duration:      r.Duration,
	}
}

// progressStepPercent is how far a reduction advances between progress events.
const progressStepPercent = 1

// Run pumps a Reducer to completion and commits it. Cancelling ctx stops the
// reduction between steps and leaves the source untouched.
func Run(ctx context.Context, proc Processor, settings config.ReduceSettings, rep reporter.Reporter) (Result, error) {
	rep = reporter.OrNull(rep)
	src := proc.Source()
	rep.ReductionStarted(reporter.ReductionStartInfo{
		Target:    src.Name(),
		Kind:      src.Kind().String(),
		Keyframes: src.Len(),
	})

	r := NewReducer(proc, settings)
	last := -1
	for {
		if err := ctx.Err(); err != nil {
			return r.Result(), errors.NewCancelledError(err)
		}
		if !r.Step() {
			break
		}
		progress := r.Progress()
		if bucket := int(progress.Percent) / progressStepPercent; bucket > last {
			last = bucket
			rep.ReductionProgress(progress)
		}
	}

	res, err := r.Commit()
	if err != nil {
		return res, err
	}
	rep.ReductionComplete(res.Outcome())
	return res, nil
}

// Reduce builds a processor for t and runs a reduction on it.
func Reduce(ctx context.Context, t *target.Target, settings config.ReduceSettings, rep reporter.Reporter) (Result, error) {
	proc, err := NewProcessor(t, settings)
	if err != nil {
		return Result{}, err
	}
	return Run(ctx, proc, settings, rep)
}
