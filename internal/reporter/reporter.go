package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	Host(summary HostSummary)
	Initialization(summary InitializationSummary)
	StageProgress(update StageProgress)
	ReduceConfig(summary ReduceConfigSummary)
	ReductionStarted(info ReductionStartInfo)
	ReductionProgress(progress ProgressSnapshot)
	ValidationComplete(summary ValidationSummary)
	ReductionComplete(outcome ReductionOutcome)
	Warning(message string)
	Error(err ReporterError)
	OperationComplete(message string)
	BatchStarted(info BatchStartInfo)
	TargetProgress(context TargetProgressContext)
	BatchComplete(summary BatchSummary)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Host(HostSummary)                     {}
func (NullReporter) Initialization(InitializationSummary) {}
func (NullReporter) StageProgress(StageProgress)          {}
func (NullReporter) ReduceConfig(ReduceConfigSummary)     {}
func (NullReporter) ReductionStarted(ReductionStartInfo)  {}
func (NullReporter) ReductionProgress(ProgressSnapshot)   {}
func (NullReporter) ValidationComplete(ValidationSummary) {}
func (NullReporter) ReductionComplete(ReductionOutcome)   {}
func (NullReporter) Warning(string)                       {}
func (NullReporter) Error(ReporterError)                  {}
func (NullReporter) OperationComplete(string)             {}
func (NullReporter) BatchStarted(BatchStartInfo)          {}
func (NullReporter) TargetProgress(TargetProgressContext) {}
func (NullReporter) BatchComplete(BatchSummary)           {}
func (NullReporter) Verbose(string)                       {}

// OrNull returns r, or a NullReporter when r is nil.
func OrNull(r Reporter) Reporter {
	if r == nil {
		return NullReporter{}
	}
	return r
}
