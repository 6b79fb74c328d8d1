package reporter

import "sync"

// syncReporter serializes calls to a reporter shared by parallel reductions.
// Per-target start and progress events are dropped: the terminal shows one
// progress bar, and interleaved targets would keep resetting it.
type syncReporter struct {
	mu    sync.Mutex
	inner Reporter
}

// Synchronized wraps r for use from several goroutines at once.
func Synchronized(r Reporter) Reporter {
	return &syncReporter{inner: OrNull(r)}
}

func (s *syncReporter) Host(summary HostSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Host(summary)
}

func (s *syncReporter) Initialization(summary InitializationSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Initialization(summary)
}

func (s *syncReporter) StageProgress(update StageProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.StageProgress(update)
}

func (s *syncReporter) ReduceConfig(summary ReduceConfigSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.ReduceConfig(summary)
}

func (s *syncReporter) ReductionStarted(ReductionStartInfo) {}

func (s *syncReporter) ReductionProgress(ProgressSnapshot) {}

func (s *syncReporter) ValidationComplete(summary ValidationSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.ValidationComplete(summary)
}

func (s *syncReporter) ReductionComplete(outcome ReductionOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.ReductionComplete(outcome)
}

func (s *syncReporter) Warning(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Warning(message)
}

func (s *syncReporter) Error(err ReporterError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Error(err)
}

func (s *syncReporter) OperationComplete(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.OperationComplete(message)
}

func (s *syncReporter) BatchStarted(info BatchStartInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.BatchStarted(info)
}

func (s *syncReporter) TargetProgress(context TargetProgressContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.TargetProgress(context)
}

func (s *syncReporter) BatchComplete(summary BatchSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.BatchComplete(summary)
}

func (s *syncReporter) Verbose(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Verbose(message)
}
