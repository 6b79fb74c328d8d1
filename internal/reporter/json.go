package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/acidbubbles/vam-timeline-sub003/internal/util"
)

// JSONReporter outputs NDJSON events, one object per line.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
	now                func() time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		lastProgressBucket: -1,
		now:                time.Now,
	}
}

func (r *JSONReporter) timestamp() int64 {
	return r.now().Unix()
}

func (r *JSONReporter) write(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) Host(summary HostSummary) {
	r.write(map[string]interface{}{
		"type":      "host",
		"hostname":  summary.Hostname,
		"num_cpu":   summary.NumCPU,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Initialization(summary InitializationSummary) {
	r.write(map[string]interface{}{
		"type":             "initialization",
		"input_file":       summary.InputFile,
		"output_file":      summary.OutputFile,
		"animation_length": summary.AnimationLength,
		"loop":             summary.Loop,
		"targets":          summary.Targets,
		"keyframes":        summary.Keyframes,
		"timestamp":        r.timestamp(),
	})
}

func (r *JSONReporter) StageProgress(update StageProgress) {
	r.write(map[string]interface{}{
		"type":      "stage_progress",
		"stage":     update.Stage,
		"percent":   update.Percent,
		"message":   update.Message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) ReduceConfig(summary ReduceConfigSummary) {
	presetSettings := make([]map[string]string, len(summary.PresetSettings))
	for i, kv := range summary.PresetSettings {
		presetSettings[i] = map[string]string{"key": kv[0], "value": kv[1]}
	}

	r.write(map[string]interface{}{
		"type":            "reduce_config",
		"preset":          summary.Preset,
		"fps":             summary.FPS,
		"avg_to_snap":     summary.AvgToSnap,
		"remove_flats":    summary.RemoveFlats,
		"simplify":        summary.Simplify,
		"min_distance":    summary.MinDistance,
		"min_rotation":    summary.MinRotation,
		"min_range_ratio": summary.MinRangeRatio,
		"preset_settings": presetSettings,
		"timestamp":       r.timestamp(),
	})
}

func (r *JSONReporter) ReductionStarted(info ReductionStartInfo) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":      "reduction_started",
		"target":    info.Target,
		"kind":      info.Kind,
		"keyframes": info.Keyframes,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) ReductionProgress(progress ProgressSnapshot) {
	const progressBucketSize = 10
	const minInterval = 5 * time.Second

	bucket := int(progress.Percent) / progressBucketSize
	now := r.now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	shouldEmit := bucket > r.lastProgressBucket || intervalElapsed || progress.Percent >= 99.0

	if !shouldEmit {
		r.mu.Unlock()
		return
	}

	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":      "reduction_progress",
		"stage":     "reducing",
		"target":    progress.Target,
		"resolved":  progress.Resolved,
		"total":     progress.Total,
		"percent":   progress.Percent,
		"steps":     progress.Steps,
		"branch":    progress.Branch,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) ValidationComplete(summary ValidationSummary) {
	steps := make([]map[string]interface{}, len(summary.Steps))
	for i, step := range summary.Steps {
		steps[i] = map[string]interface{}{
			"step":    step.Name,
			"passed":  step.Passed,
			"details": step.Details,
		}
	}
	repairs := summary.Repairs
	if repairs == nil {
		repairs = []string{}
	}

	r.write(map[string]interface{}{
		"type":              "validation_complete",
		"target":            summary.Target,
		"validation_passed": summary.Passed,
		"validation_steps":  steps,
		"repairs":           repairs,
		"timestamp":         r.timestamp(),
	})
}

func (r *JSONReporter) ReductionComplete(outcome ReductionOutcome) {
	reduction := util.CalculateReduction(outcome.Before, outcome.After)

	r.write(map[string]interface{}{
		"type":                "reduction_complete",
		"target":              outcome.Target,
		"kind":                outcome.Kind,
		"keyframes_before":    outcome.Before,
		"keyframes_after":     outcome.After,
		"committed":           outcome.Committed,
		"steps":               outcome.Steps,
		"copied":              outcome.Copied,
		"averaged":            outcome.Averaged,
		"flattened":           outcome.Flattened,
		"verification_rounds": outcome.Verifications,
		"duration_ms":         outcome.Duration.Milliseconds(),
		"reduction_percent":   reduction,
		"timestamp":           r.timestamp(),
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) OperationComplete(message string) {
	r.write(map[string]interface{}{
		"type":      "operation_complete",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) BatchStarted(info BatchStartInfo) {
	r.write(map[string]interface{}{
		"type":          "batch_started",
		"total_targets": info.TotalTargets,
		"target_list":   info.TargetList,
		"output_file":   info.OutputFile,
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) TargetProgress(context TargetProgressContext) {
	r.write(map[string]interface{}{
		"type":           "target_progress",
		"current_target": context.CurrentTarget,
		"total_targets":  context.TotalTargets,
		"name":           context.Name,
		"timestamp":      r.timestamp(),
	})
}

func (r *JSONReporter) BatchComplete(summary BatchSummary) {
	reduction := util.CalculateReduction(summary.TotalBefore, summary.TotalAfter)

	r.write(map[string]interface{}{
		"type":                    "batch_complete",
		"successful_count":        summary.SuccessfulCount,
		"total_targets":           summary.TotalTargets,
		"total_keyframes_before":  summary.TotalBefore,
		"total_keyframes_after":   summary.TotalAfter,
		"total_duration_ms":       summary.TotalDuration.Milliseconds(),
		"total_reduction_percent": reduction,
		"validation_passed":       summary.ValidationPassedCount,
		"validation_failed":       summary.ValidationFailedCount,
		"timestamp":               r.timestamp(),
	})
}

func (r *JSONReporter) Verbose(message string) {
	r.write(map[string]interface{}{
		"type":      "verbose",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}
