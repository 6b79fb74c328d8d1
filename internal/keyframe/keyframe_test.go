package keyframe

import (
	"testing"

	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
)

func TestCurveTypeLabels(t *testing.T) {
	tests := []struct {
		curveType CurveType
		label     string
		ordinal   int
	}{
		{SmoothLocal, "SmoothLocal", 0},
		{Linear, "Linear", 1},
		{Flat, "Flat", 2},
		{Bounce, "Bounce", 3},
		{LinearFlat, "LinearFlat", 4},
		{FlatLinear, "FlatLinear", 5},
		{CopyPrevious, "CopyPrevious", 6},
		{LeaveAsIs, "LeaveAsIs", 7},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := tt.curveType.String(); got != tt.label {
				t.Errorf("String() = %q, want %q", got, tt.label)
			}
			if got := tt.curveType.Ordinal(); got != tt.ordinal {
				t.Errorf("Ordinal() = %d, want %d", got, tt.ordinal)
			}
		})
	}
}

func TestCurveTypeRoundTrip(t *testing.T) {
	for _, c := range CurveTypes() {
		t.Run(c.String(), func(t *testing.T) {
			byLabel, err := ParseCurveType(c.String())
			if err != nil {
				t.Fatalf("ParseCurveType(%q) error: %v", c.String(), err)
			}
			if byLabel != c {
				t.Errorf("label round trip = %v, want %v", byLabel, c)
			}

			byOrdinal, err := FromOrdinal(c.Ordinal())
			if err != nil {
				t.Fatalf("FromOrdinal(%d) error: %v", c.Ordinal(), err)
			}
			if byOrdinal != c {
				t.Errorf("ordinal round trip = %v, want %v", byOrdinal, c)
			}

			text, err := c.MarshalText()
			if err != nil {
				t.Fatalf("MarshalText error: %v", err)
			}
			var back CurveType
			if err := back.UnmarshalText(text); err != nil {
				t.Fatalf("UnmarshalText error: %v", err)
			}
			if back != c {
				t.Errorf("text round trip = %v, want %v", back, c)
			}
		})
	}
}

func TestParseCurveType(t *testing.T) {
	tests := []struct {
		input   string
		want    CurveType
		wantErr bool
	}{
		{input: "linear", want: Linear},
		{input: " FlatLinear ", want: FlatLinear},
		{input: "6", want: CopyPrevious},
		{input: "42", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "Constant", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCurveType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCurveType(%q) = %v, want error", tt.input, got)
				}
				if !errors.IsUnsupportedOperation(err) {
					t.Errorf("expected unsupported operation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCurveType(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseCurveType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMarshalUnknownCurveType(t *testing.T) {
	if _, err := CurveType(12).MarshalText(); !errors.IsUnsupportedOperation(err) {
		t.Errorf("MarshalText() error = %v, want unsupported operation", err)
	}
	if got := CurveType(12).String(); got != "CurveType(12)" {
		t.Errorf("String() = %q", got)
	}
}

func TestSnapshotRestore(t *testing.T) {
	k := Keyframe{Time: 1.5, Value: 2, CurveType: Bounce, ControlIn: 1.5, ControlOut: 2.5}
	got := k.Snapshot().Restore(1.5)
	if got != k {
		t.Errorf("Restore(Snapshot()) = %+v, want %+v", got, k)
	}
}

func TestSameTime(t *testing.T) {
	if !SameTime(1, 1+TimeEpsilon/2) {
		t.Error("times within epsilon should match")
	}
	if SameTime(1, 1+TimeEpsilon*2) {
		t.Error("times beyond epsilon should not match")
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		time      float64
		curveType CurveType
		kind      errors.ErrorKind
		wantErr   bool
	}{
		{"start", 0, SmoothLocal, 0, false},
		{"last type", 2.5, LeaveAsIs, 0, false},
		{"negative time", -0.5, Linear, errors.KindInvalidState, true},
		{"unknown type", 1, CurveType(42), errors.KindUnsupportedOperation, true},
		{"negative ordinal", 1, CurveType(-1), errors.KindUnsupportedOperation, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.time, tt.curveType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.IsKind(err, tt.kind) {
				t.Errorf("Check() error = %v, want kind %v", err, tt.kind)
			}
		})
	}
}
