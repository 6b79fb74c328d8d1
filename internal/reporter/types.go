// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HostSummary contains host information.
type HostSummary struct {
	Hostname string
	NumCPU   int
}

// InitializationSummary describes the loaded animation before any work.
type InitializationSummary struct {
	InputFile       string
	OutputFile      string
	AnimationLength float64
	Loop            bool
	Targets         int
	Keyframes       int
}

// ReduceConfigSummary contains the reduction settings in effect.
type ReduceConfigSummary struct {
	Preset         string
	FPS            float64
	AvgToSnap      bool
	RemoveFlats    bool
	Simplify       bool
	MinDistance    float64
	MinRotation    float64
	MinRangeRatio  float64
	PresetSettings [][2]string
}

// ReductionStartInfo describes a target about to be reduced.
type ReductionStartInfo struct {
	Target    string
	Kind      string
	Keyframes int
}

// ProgressSnapshot contains reduction progress information.
type ProgressSnapshot struct {
	Target   string
	Resolved int
	Total    int
	Percent  float32
	Steps    int
	Branch   int
}

// ValidationSummary contains validation results for one target.
type ValidationSummary struct {
	Target  string
	Passed  bool
	Steps   []ValidationStep
	Repairs []string
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// ReductionOutcome contains final reduction results for one target.
type ReductionOutcome struct {
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

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// BatchStartInfo contains batch start metadata.
type BatchStartInfo struct {
	TotalTargets int
	TargetList   []string
	OutputFile   string
}

// TargetProgressContext contains the current target index within a batch.
type TargetProgressContext struct {
	CurrentTarget int
	TotalTargets  int
	Name          string
}

// BatchSummary contains batch completion information.
type BatchSummary struct {
	SuccessfulCount       int
	TotalTargets          int
	TotalBefore           int
	TotalAfter            int
	TotalDuration         time.Duration
	TargetResults         []TargetResult
	ValidationPassedCount int
	ValidationFailedCount int
}

// TargetResult contains the per-target reduction result.
type TargetResult struct {
	Name      string
	Before    int
	After     int
	Reduction float64
}

// StageProgress represents a generic stage update.
type StageProgress struct {
	Stage   string
	Percent float32
	Message string
}
