package reporter

// CompositeReporter fans out events to multiple reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter. Nil reporters are skipped.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	c := &CompositeReporter{}
	for _, r := range reporters {
		if r != nil {
			c.reporters = append(c.reporters, r)
		}
	}
	return c
}

func (c *CompositeReporter) Host(summary HostSummary) {
	for _, r := range c.reporters {
		r.Host(summary)
	}
}

func (c *CompositeReporter) Initialization(summary InitializationSummary) {
	for _, r := range c.reporters {
		r.Initialization(summary)
	}
}

func (c *CompositeReporter) StageProgress(update StageProgress) {
	for _, r := range c.reporters {
		r.StageProgress(update)
	}
}

func (c *CompositeReporter) ReduceConfig(summary ReduceConfigSummary) {
	for _, r := range c.reporters {
		r.ReduceConfig(summary)
	}
}

func (c *CompositeReporter) ReductionStarted(info ReductionStartInfo) {
	for _, r := range c.reporters {
		r.ReductionStarted(info)
	}
}

func (c *CompositeReporter) ReductionProgress(progress ProgressSnapshot) {
	for _, r := range c.reporters {
		r.ReductionProgress(progress)
	}
}

func (c *CompositeReporter) ValidationComplete(summary ValidationSummary) {
	for _, r := range c.reporters {
		r.ValidationComplete(summary)
	}
}

func (c *CompositeReporter) ReductionComplete(outcome ReductionOutcome) {
	for _, r := range c.reporters {
		r.ReductionComplete(outcome)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(err ReporterError) {
	for _, r := range c.reporters {
		r.Error(err)
	}
}

func (c *CompositeReporter) OperationComplete(message string) {
	for _, r := range c.reporters {
		r.OperationComplete(message)
	}
}

func (c *CompositeReporter) BatchStarted(info BatchStartInfo) {
	for _, r := range c.reporters {
		r.BatchStarted(info)
	}
}

func (c *CompositeReporter) TargetProgress(context TargetProgressContext) {
	for _, r := range c.reporters {
		r.TargetProgress(context)
	}
}

func (c *CompositeReporter) BatchComplete(summary BatchSummary) {
	for _, r := range c.reporters {
		r.BatchComplete(summary)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
