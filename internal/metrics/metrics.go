// Package metrics holds the Prometheus collectors of an engine.
//
// Collectors are registered on the registerer handed to New instead of the
// default registry, so several engines can live in one process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "timeline"

// Reduction outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeKept      = "kept"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Metrics is the set of collectors updated by an engine.
type Metrics struct {
	Targets           prometheus.Gauge
	Reductions        *prometheus.CounterVec
	KeyframesIn       *prometheus.CounterVec
	KeyframesOut      *prometheus.CounterVec
	ReductionSteps    prometheus.Histogram
	ReductionDuration *prometheus.HistogramVec
	Validations       *prometheus.CounterVec
	Repairs           *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg creates a
// private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		Targets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "targets",
			Help:      "Number of targets registered on the engine",
		}),
		Reductions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reductions_total",
			Help:      "Reductions run, by target kind and outcome",
		}, []string{"kind", "outcome"}),
		KeyframesIn: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reduction_keyframes_in_total",
			Help:      "Keyframes held by targets before reduction",
		}, []string{"kind"}),
		KeyframesOut: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reduction_keyframes_out_total",
			Help:      "Keyframes held by targets after reduction",
		}, []string{"kind"}),
		ReductionSteps: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reduction_steps",
			Help:      "Buckets processed per reduction",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		ReductionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reduction_duration_seconds",
			Help:      "Duration of reductions",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind"}),
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Target validations, by whether the target was already valid",
		}, []string{"valid"}),
		Repairs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_repairs_total",
			Help:      "Repairs applied by validation, by check",
		}, []string{"check"}),
	}
}

// ObserveReduction records a finished reduction. outcome is one of the
// Outcome constants; keyframe counts are only added for completed runs.
func (m *Metrics) ObserveReduction(kind, outcome string, before, after, steps int, d time.Duration) {
	if m == nil {
		return
	}
	m.Reductions.WithLabelValues(kind, outcome).Inc()
	m.ReductionDuration.WithLabelValues(kind).Observe(d.Seconds())
	if outcome != OutcomeCommitted && outcome != OutcomeKept {
		return
	}
	m.KeyframesIn.WithLabelValues(kind).Add(float64(before))
	m.KeyframesOut.WithLabelValues(kind).Add(float64(after))
	m.ReductionSteps.Observe(float64(steps))
}

// ObserveValidation records a validation and the checks it had to repair.
func (m *Metrics) ObserveValidation(valid bool, repairedChecks []string) {
	if m == nil {
		return
	}
	label := "false"
	if valid {
		label = "true"
	}
	m.Validations.WithLabelValues(label).Inc()
	for _, check := range repairedChecks {
		m.Repairs.WithLabelValues(check).Inc()
	}
}

// SetTargets sets the registered target gauge.
func (m *Metrics) SetTargets(n int) {
	if m == nil {
		return
	}
	m.Targets.Set(float64(n))
}
