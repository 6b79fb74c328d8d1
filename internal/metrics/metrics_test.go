package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveReduction(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveReduction("position", OutcomeCommitted, 100, 12, 40, 3*time.Millisecond)
	m.ObserveReduction("position", OutcomeKept, 3, 3, 1, time.Millisecond)
	m.ObserveReduction("float", OutcomeCancelled, 50, 0, 7, time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"committed", testutil.ToFloat64(m.Reductions.WithLabelValues("position", OutcomeCommitted)), 1},
		{"kept", testutil.ToFloat64(m.Reductions.WithLabelValues("position", OutcomeKept)), 1},
		{"cancelled", testutil.ToFloat64(m.Reductions.WithLabelValues("float", OutcomeCancelled)), 1},
		{"keyframes in", testutil.ToFloat64(m.KeyframesIn.WithLabelValues("position")), 103},
		{"keyframes out", testutil.ToFloat64(m.KeyframesOut.WithLabelValues("position")), 15},
		{"cancelled keyframes", testutil.ToFloat64(m.KeyframesIn.WithLabelValues("float")), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(m.ReductionSteps); n != 1 {
		t.Errorf("steps histogram exported %d series, want 1", n)
	}
}

func TestObserveValidation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveValidation(true, nil)
	m.ObserveValidation(false, []string{"Start keyframe", "Channel sync"})
	m.ObserveValidation(false, []string{"Start keyframe"})

	expected := `
# HELP timeline_validation_repairs_total Repairs applied by validation, by check
# TYPE timeline_validation_repairs_total counter
timeline_validation_repairs_total{check="Channel sync"} 1
timeline_validation_repairs_total{check="Start keyframe"} 2
`
	if err := testutil.CollectAndCompare(m.Repairs, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
	if got := testutil.ToFloat64(m.Validations.WithLabelValues("false")); got != 2 {
		t.Errorf("invalid validations = %v, want 2", got)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(prometheus.NewRegistry()), New(prometheus.NewRegistry())
	a.SetTargets(4)
	b.SetTargets(1)
	if got := testutil.ToFloat64(a.Targets); got != 4 {
		t.Errorf("a targets = %v, want 4", got)
	}
	if got := testutil.ToFloat64(b.Targets); got != 1 {
		t.Errorf("b targets = %v, want 1", got)
	}

	// Two engines on a nil registerer must not collide either.
	New(nil)
	New(nil)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveReduction("position", OutcomeCommitted, 1, 1, 1, time.Second)
	m.ObserveValidation(true, nil)
	m.SetTargets(3)
}
