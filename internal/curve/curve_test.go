package curve

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

func times(c *Curve) []float64 {
	out := make([]float64, c.Len())
	for i := range out {
		out[i] = c.Key(i).Time
	}
	return out
}

func assertSorted(t *testing.T, c *Curve) {
	t.Helper()
	for i := 1; i < c.Len(); i++ {
		if c.Key(i).Time <= c.Key(i-1).Time {
			t.Fatalf("keyframes out of order at %d: %v", i, times(c))
		}
	}
}

func TestEvaluateSmoothPeak(t *testing.T) {
	c := New()
	c.SetKeyframe(0, 0, keyframe.SmoothLocal)
	c.SetKeyframe(1, 10, keyframe.SmoothLocal)
	c.SetKeyframe(2, 0, keyframe.SmoothLocal)

	got, err := c.Evaluate(0.5)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if got <= 0 || got >= 10 {
		t.Errorf("Evaluate(0.5) = %v, want value strictly inside (0, 10)", got)
	}
	if math.Abs(got-6.875) > 1e-9 {
		t.Errorf("Evaluate(0.5) = %v, want 6.875", got)
	}
	if c.Dirty() {
		t.Error("curve should be clean after evaluation")
	}
}

func TestEvaluateClampsOutsideRange(t *testing.T) {
	c := New()
	c.SetKeyframe(1, 3, keyframe.Linear)
	c.SetKeyframe(2, 7, keyframe.Linear)

	tests := []struct {
		time float64
		want float64
	}{
		{-1, 3},
		{0, 3},
		{1.5, 5},
		{2, 7},
		{10, 7},
	}
	for _, tt := range tests {
		got, err := c.Evaluate(tt.time)
		if err != nil {
			t.Fatalf("Evaluate(%v) error: %v", tt.time, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.time, got, tt.want)
		}
	}
}

func TestEvaluateRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, curveType := range keyframe.CurveTypes() {
		if curveType == keyframe.CopyPrevious {
			continue
		}
		t.Run(curveType.String(), func(t *testing.T) {
			c := New()
			want := map[float64]float64{}
			for i := 0; i < 20; i++ {
				time := float64(i) * 0.25
				value := rng.Float64()*20 - 10
				c.SetKeyframe(time, value, curveType)
				want[time] = value
			}
			for time, value := range want {
				got, err := c.Evaluate(time)
				if err != nil {
					t.Fatalf("Evaluate(%v) error: %v", time, err)
				}
				if math.Abs(got-value) > 1e-9 {
					t.Errorf("Evaluate(%v) = %v, want %v", time, got, value)
				}
			}
		})
	}
}

func TestTooFewKeyframes(t *testing.T) {
	c := New()
	c.SetKeyframe(0, 1, keyframe.SmoothLocal)

	if _, err := c.Evaluate(0); !errors.IsInvalidState(err) {
		t.Errorf("Evaluate error = %v, want invalid state", err)
	}
	if err := c.ComputeCurves(); !errors.IsInvalidState(err) {
		t.Errorf("ComputeCurves error = %v, want invalid state", err)
	}
	if err := c.RecomputeKey(0); !errors.IsInvalidState(err) {
		t.Errorf("RecomputeKey error = %v, want invalid state", err)
	}
}

func TestSetKeyframeUpdatesInPlace(t *testing.T) {
	c := New()
	c.SetKeyframe(0, 1, keyframe.SmoothLocal)
	c.SetKeyframe(1, 2, keyframe.SmoothLocal)

	if got := c.SetKeyframe(1+keyframe.TimeEpsilon/10, 5, keyframe.Flat); got != 1 {
		t.Fatalf("SetKeyframe returned %d, want 1", got)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	k := c.Key(1)
	if k.Value != 5 || k.CurveType != keyframe.Flat || k.Time != 1 {
		t.Errorf("updated keyframe = %+v", k)
	}
}

func TestSortInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := New()
	for i := 0; i < 500; i++ {
		switch op := rng.Intn(5); {
		case op < 2 || c.Len() < 2:
			c.SetKeyframe(math.Round(rng.Float64()*1000)/100, rng.Float64(), keyframe.SmoothLocal)
		case op == 2:
			_ = c.RemoveKey(rng.Intn(c.Len()))
		case op == 3:
			_, _ = c.MoveKey(rng.Intn(c.Len()), math.Round(rng.Float64()*1000)/100)
		default:
			c.AddKey(keyframe.New(math.Round(rng.Float64()*1000)/100, 1, keyframe.Linear))
		}
		assertSorted(t, c)
	}
}

func TestKeyframeBinarySearch(t *testing.T) {
	c := New()
	for _, time := range []float64{0, 1, 2, 4} {
		c.SetKeyframe(time, time, keyframe.Linear)
	}

	tests := []struct {
		name          string
		time          float64
		returnClosest bool
		want          int
	}{
		{"exact", 2, false, 2},
		{"within epsilon", 1 + keyframe.TimeEpsilon/2, false, 1},
		{"miss", 3, false, -1},
		{"closest below", 2.9, true, 2},
		{"closest above", 3.1, true, 3},
		{"before start", -5, true, 0},
		{"after end", 50, true, 3},
		{"after end strict", 50, false, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.KeyframeBinarySearch(tt.time, tt.returnClosest); got != tt.want {
				t.Errorf("KeyframeBinarySearch(%v, %v) = %d, want %d", tt.time, tt.returnClosest, got, tt.want)
			}
		})
	}

	if got := New().KeyframeBinarySearch(0, true); got != -1 {
		t.Errorf("empty curve search = %d, want -1", got)
	}
}

func TestAddKeyRejectsDuplicate(t *testing.T) {
	c := New()
	if got := c.AddKey(keyframe.New(1, 1, keyframe.Linear)); got != 0 {
		t.Fatalf("AddKey = %d, want 0", got)
	}
	if got := c.AddKey(keyframe.New(1, 2, keyframe.Linear)); got != -1 {
		t.Errorf("duplicate AddKey = %d, want -1", got)
	}
}

func TestWritesRejectInvalidKeyframes(t *testing.T) {
	c := New()
	c.SetKeyframe(0, 0, keyframe.SmoothLocal)
	c.SetKeyframe(1, 1, keyframe.SmoothLocal)

	tests := []struct {
		name  string
		write func() int
	}{
		{"SetKeyframe unknown type", func() int { return c.SetKeyframe(0.5, 5, keyframe.CurveType(42)) }},
		{"SetKeyframe negative time", func() int { return c.SetKeyframe(-1, 5, keyframe.Linear) }},
		{"SetKeyframe update with unknown type", func() int { return c.SetKeyframe(1, 5, keyframe.CurveType(42)) }},
		{"SetKey unknown type", func() int { return c.SetKey(keyframe.New(0.5, 5, keyframe.CurveType(42))) }},
		{"AddKey negative time", func() int { return c.AddKey(keyframe.New(-0.5, 5, keyframe.Flat)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.write(); got != -1 {
				t.Errorf("write returned %d, want -1", got)
			}
			diff(t, []float64{0, 1}, times(c))
			if c.Key(1).Value != 1 || c.Key(1).CurveType != keyframe.SmoothLocal {
				t.Errorf("existing keyframe changed: %+v", c.Key(1))
			}
		})
	}
}

func TestMoveKey(t *testing.T) {
	c := New()
	for _, time := range []float64{0, 1, 2} {
		c.SetKeyframe(time, time*10, keyframe.Linear)
	}

	got, err := c.MoveKey(0, 1.5)
	if err != nil {
		t.Fatalf("MoveKey error: %v", err)
	}
	if got != 1 {
		t.Errorf("MoveKey returned %d, want 1", got)
	}
	diff(t, []float64{1, 1.5, 2}, times(c))
	if c.Key(1).Value != 0 {
		t.Errorf("moved keyframe value = %v, want 0", c.Key(1).Value)
	}

	if _, err := c.MoveKey(0, 2); !errors.IsInvalidState(err) {
		t.Errorf("collision error = %v, want invalid state", err)
	}
	if _, err := c.MoveKey(9, 3); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("missing key error = %v, want not found", err)
	}
}

func TestRecomputeKeyMatchesComputeCurves(t *testing.T) {
	types := []keyframe.CurveType{
		keyframe.Linear, keyframe.Bounce, keyframe.Flat, keyframe.CopyPrevious,
		keyframe.LinearFlat, keyframe.FlatLinear, keyframe.Linear,
	}
	build := func() *Curve {
		c := New()
		for i, ct := range types {
			c.SetKeyframe(float64(i), float64(i*i%5), ct)
		}
		return c
	}

	full := build()
	if err := full.ComputeCurves(); err != nil {
		t.Fatal(err)
	}

	for key := range types {
		t.Run(types[key].String(), func(t *testing.T) {
			local := full.Clone()
			// Scramble the handles around key so the recompute has work to do.
			for i := max(0, key-1); i <= min(local.LastKey(), key+1); i++ {
				local.keys[i].ControlIn = 99
				local.keys[i].ControlOut = -99
			}
			if err := local.RecomputeKey(key); err != nil {
				t.Fatal(err)
			}
			diff(t, full.Keys(), local.Keys(), cmpopts.EquateApprox(0, 1e-12))
		})
	}
}

func TestRecomputeKeyPropagatesHeldRun(t *testing.T) {
	types := []keyframe.CurveType{
		keyframe.Linear, keyframe.Linear, keyframe.CopyPrevious, keyframe.CopyPrevious,
		keyframe.CopyPrevious, keyframe.Linear, keyframe.Bounce,
	}
	c := New()
	for i, ct := range types {
		c.SetKeyframe(float64(i), float64(i*i%5), ct)
	}
	if err := c.ComputeCurves(); err != nil {
		t.Fatal(err)
	}

	for key := range types {
		t.Run(fmt.Sprintf("key %d", key), func(t *testing.T) {
			local := c.Clone()
			if err := local.SetKeyframeByKey(key, local.Key(key).Value+3); err != nil {
				t.Fatal(err)
			}
			want := local.Clone()
			if err := want.ComputeCurves(); err != nil {
				t.Fatal(err)
			}
			if err := local.RecomputeKey(key); err != nil {
				t.Fatal(err)
			}
			diff(t, want.Keys(), local.Keys(), cmpopts.EquateApprox(0, 1e-12))
		})
	}
}

func TestRecomputeKeySmoothFallsBackToFullSolve(t *testing.T) {
	c := New()
	c.SetKeyframe(0, 0, keyframe.SmoothLocal)
	c.SetKeyframe(1, 10, keyframe.SmoothLocal)
	c.SetKeyframe(2, 0, keyframe.SmoothLocal)
	if err := c.RecomputeKey(1); err != nil {
		t.Fatal(err)
	}
	if c.Dirty() {
		t.Error("curve should be clean after a full recompute")
	}
	if got := c.Key(1).ControlIn; math.Abs(got-10) > 1e-9 {
		t.Errorf("ControlIn = %v, want 10", got)
	}
}

func TestAddEdgeFramesIfMissing(t *testing.T) {
	c := New()
	c.SetKeyframe(0.5, 1, keyframe.Linear)
	c.SetKeyframe(1, 2, keyframe.CopyPrevious)

	if !c.AddEdgeFramesIfMissing(2, keyframe.Linear) {
		t.Fatal("expected edge frames to be added")
	}
	diff(t, []float64{0, 0.5, 1, 2}, times(c))
	if got := c.Key(2).CurveType; got != keyframe.Linear {
		t.Errorf("second-to-last curve type = %v, want Linear", got)
	}
	if got := c.Key(3).Value; got != 1 {
		t.Errorf("end value = %v, want held value 1", got)
	}

	if c.AddEdgeFramesIfMissing(2, keyframe.Linear) {
		t.Error("second call should not add anything")
	}
}

func TestAddEdgeFramesOnEmptyCurve(t *testing.T) {
	c := New()
	c.AddEdgeFramesIfMissing(3, keyframe.SmoothLocal)
	diff(t, []float64{0, 3}, times(c))
}

func TestReverse(t *testing.T) {
	c := New()
	c.SetKeyframe(0, 0, keyframe.Linear)
	c.SetKeyframe(1, 5, keyframe.LinearFlat)
	c.SetKeyframe(3, 2, keyframe.Linear)

	c.Reverse()

	diff(t, []float64{0, 2, 3}, times(c))
	if got := c.Key(1); got.Value != 5 || got.CurveType != keyframe.FlatLinear {
		t.Errorf("middle keyframe = %+v", got)
	}
	if c.Key(0).Value != 2 || c.Key(2).Value != 0 {
		t.Errorf("boundary values not mirrored: %v, %v", c.Key(0).Value, c.Key(2).Value)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := New(WithLoop(true))
	c.SetKeyframe(0, 1, keyframe.Linear)
	c.SetKeyframe(1, 2, keyframe.Linear)

	clone := c.Clone()
	clone.SetKeyframe(0, 100, keyframe.Flat)

	if c.Key(0).Value != 1 {
		t.Error("clone shares keyframe storage with its source")
	}
	if !clone.Loop() {
		t.Error("clone lost looping mode")
	}

	other := New()
	other.CopyFrom(clone)
	diff(t, clone.Keys(), other.Keys())
}

func TestCapacityHints(t *testing.T) {
	c := New(WithCapacity(64))
	if c.Capacity() < 64 {
		t.Fatalf("Capacity() = %d, want at least 64", c.Capacity())
	}
	c.SetKeyframe(0, 0, keyframe.Linear)
	c.SetKeyframe(1, 0, keyframe.Linear)

	c.TrimCapacity()
	if c.Capacity() != 2 {
		t.Errorf("Capacity() after trim = %d, want 2", c.Capacity())
	}
}
