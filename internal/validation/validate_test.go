package validation

import (
	"strings"
	"testing"
)

func TestValidateKeyCount(t *testing.T) {
	tests := []struct {
		count int
		want  bool
	}{
		{0, false},
		{1, false},
		{2, true},
		{100, true},
	}
	for _, tt := range tests {
		if got, _ := ValidateKeyCount(tt.count); got != tt.want {
			t.Errorf("ValidateKeyCount(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestValidateStartAndEnd(t *testing.T) {
	tests := []struct {
		name      string
		times     []float64
		length    float64
		wantStart bool
		wantEnd   bool
	}{
		{"complete", []float64{0, 1, 2}, 2, true, true},
		{"late start", []float64{0.5, 2}, 2, false, true},
		{"short", []float64{0, 1}, 2, true, false},
		{"keys past end", []float64{0, 2, 3}, 2, true, true},
		{"empty", nil, 2, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, msg := ValidateStart(tt.times); got != tt.wantStart {
				t.Errorf("ValidateStart = %v (%s), want %v", got, msg, tt.wantStart)
			}
			if got, msg := ValidateEnd(tt.times, tt.length); got != tt.wantEnd {
				t.Errorf("ValidateEnd = %v (%s), want %v", got, msg, tt.wantEnd)
			}
		})
	}
}

func TestValidateAligned(t *testing.T) {
	if ok, _ := ValidateAligned([]float64{0, 1}, []float64{0, 1.00001}); !ok {
		t.Error("times within epsilon should be aligned")
	}
	ok, msg := ValidateAligned([]float64{0, 1, 2}, []float64{0, 2})
	if ok {
		t.Fatal("different key counts should not be aligned")
	}
	if !strings.Contains(msg, "mismatch") {
		t.Errorf("unexpected message %q", msg)
	}
	if ok, _ := ValidateAligned([]float64{0, 1}, []float64{0, 1.5}); ok {
		t.Error("different times should not be aligned")
	}
}

func TestResultFailuresAndRepairs(t *testing.T) {
	r := &Result{
		HasEnoughKeys:  true,
		StartsAtZero:   true,
		EndsAtLength:   false,
		ChannelsInSync: true,
		EndMessage:     "No keyframe at animation length (2.000s)",
	}
	if r.IsValid() {
		t.Error("IsValid() should be false with a failed check")
	}

	failures := r.GetFailures()
	if len(failures) != 1 || !strings.HasPrefix(failures[0], CheckEnd) {
		t.Errorf("GetFailures() = %v", failures)
	}

	if r.Repaired() {
		t.Error("no repairs recorded yet")
	}
	r.AddRepair(CheckEnd, "", "added keyframe at 2.000s")
	r.AddRepair(CheckSync, "rot_w", "resampled 3 keyframes")
	if !r.Repaired() {
		t.Error("Repaired() should be true")
	}
	if got := r.Repairs[1].String(); got != "Channel sync (rot_w): resampled 3 keyframes" {
		t.Errorf("Repair.String() = %q", got)
	}
}
