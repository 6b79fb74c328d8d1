package reporter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func decodeEvents(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var events []map[string]interface{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var ev map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestJSONReporterEvents(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	r.ReductionStarted(ReductionStartInfo{Target: "hip", Kind: "transform", Keyframes: 120})
	r.ValidationComplete(ValidationSummary{
		Target: "hip",
		Passed: true,
		Steps:  []ValidationStep{{Name: "Keyframe count", Passed: true, Details: "120 keyframes"}},
	})
	r.ReductionComplete(ReductionOutcome{Target: "hip", Before: 120, After: 30, Committed: true, Duration: 1500 * time.Millisecond})

	events := decodeEvents(t, &buf)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	tests := []struct {
		index int
		key   string
		want  interface{}
	}{
		{0, "type", "reduction_started"},
		{0, "keyframes", float64(120)},
		{1, "type", "validation_complete"},
		{1, "validation_passed", true},
		{2, "type", "reduction_complete"},
		{2, "reduction_percent", float64(75)},
		{2, "duration_ms", float64(1500)},
		{2, "committed", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := events[tt.index][tt.key]; got != tt.want {
				t.Errorf("event %d %s = %v, want %v", tt.index, tt.key, got, tt.want)
			}
		})
	}

	repairs, ok := events[1]["repairs"].([]interface{})
	if !ok || len(repairs) != 0 {
		t.Errorf("repairs = %v, want empty list", events[1]["repairs"])
	}
}

func TestJSONReporterThrottlesProgress(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }

	r.ReductionStarted(ReductionStartInfo{Target: "x"})
	for _, pct := range []float32{1, 2, 3, 15, 16, 99.5} {
		r.ReductionProgress(ProgressSnapshot{Target: "x", Percent: pct})
	}

	var progress int
	for _, ev := range decodeEvents(t, &buf) {
		if ev["type"] == "reduction_progress" {
			progress++
		}
	}
	// 1% opens bucket 0, 15% opens bucket 1, 99.5% always emits.
	if progress != 3 {
		t.Errorf("got %d progress events, want 3", progress)
	}
}

type recorder struct {
	NullReporter
	events []string
}

func (r *recorder) Warning(message string)           { r.events = append(r.events, "warn:"+message) }
func (r *recorder) OperationComplete(message string) { r.events = append(r.events, "done:"+message) }

func TestCompositeReporterFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	c := NewCompositeReporter(a, nil, b)

	c.Warning("drift")
	c.OperationComplete("reduced")
	c.Verbose("ignored")

	for i, r := range []*recorder{a, b} {
		if len(r.events) != 2 || r.events[0] != "warn:drift" || r.events[1] != "done:reduced" {
			t.Errorf("reporter %d got %v", i, r.events)
		}
	}
}

func TestOrNull(t *testing.T) {
	if _, ok := OrNull(nil).(NullReporter); !ok {
		t.Error("OrNull(nil) should return a NullReporter")
	}
	rec := &recorder{}
	if OrNull(rec) != Reporter(rec) {
		t.Error("OrNull should return a non-nil reporter unchanged")
	}
}

func TestSynchronizedReporter(t *testing.T) {
	rec := &recorder{}
	s := Synchronized(rec)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ReductionStarted(ReductionStartInfo{Target: "t"})
			s.ReductionProgress(ProgressSnapshot{Percent: 50})
			s.Warning("w")
		}()
	}
	wg.Wait()

	if len(rec.events) != 8 {
		t.Errorf("got %d events, want 8 warnings", len(rec.events))
	}
	for _, e := range rec.events {
		if e != "warn:w" {
			t.Errorf("unexpected event %q", e)
		}
	}
}
