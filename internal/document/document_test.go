package document

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
	"github.com/acidbubbles/vam-timeline-sub003/internal/target"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

func sampleDocument(t *testing.T) *Document {
	t.Helper()
	hand := target.NewTransform("hand", target.WithRef("person/rHand"))
	types := []keyframe.CurveType{keyframe.SmoothLocal, keyframe.Linear, keyframe.Bounce, keyframe.Flat}
	for i, ct := range types {
		tm := float64(i) * 0.5
		tr := target.Transform{
			Position: r3.Vec{X: float64(i), Y: 0.25 * float64(i*i), Z: -0.1},
			Rotation: quat.Number(r3.NewRotation(tm, r3.Vec{Z: 1})),
		}
		if _, err := hand.SetTransformKeyframe(tm, tr, ct); err != nil {
			t.Fatal(err)
		}
	}
	if err := hand.ComputeCurves(); err != nil {
		t.Fatal(err)
	}

	smile := target.NewFloatParam("smile", -1, 2)
	smile.SetWeight(0.4)
	for i, v := range []float64{0, 1.5, -0.5} {
		if _, err := smile.SetKeyframeByTime(float64(i)*0.75, []float64{v}, keyframe.SmoothLocal); err != nil {
			t.Fatal(err)
		}
	}
	if err := smile.ComputeCurves(); err != nil {
		t.Fatal(err)
	}

	return &Document{
		Version: Version,
		Length:  1.5,
		Loop:    true,
		Targets: []*Target{FromTarget(hand, "arm"), FromTarget(smile, "")},
	}
}

func TestRoundTrip(t *testing.T) {
	doc := sampleDocument(t)

	path := filepath.Join(t.TempDir(), "anim.yaml")
	if err := Write(path, doc); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, doc, got)

	for i, td := range got.Targets {
		built, err := td.Build()
		if err != nil {
			t.Fatal(err)
		}
		diff(t, doc.Targets[i], FromTarget(built, td.Group))
	}
}

func TestFromTarget(t *testing.T) {
	doc := sampleDocument(t)
	hand, smile := doc.Targets[0], doc.Targets[1]

	if hand.Kind != "transform" || hand.Group != "arm" || hand.Ref != "person/rHand" {
		t.Errorf("hand = %+v", hand)
	}
	if hand.Weight != nil || hand.Range != nil {
		t.Error("default weight and range should be omitted")
	}
	if len(hand.Keyframes) != 4 || len(hand.Keyframes[0].Channels) != 7 {
		t.Fatalf("hand has %d keyframes", len(hand.Keyframes))
	}
	diff(t, keyframe.Bounce, hand.Keyframes[2].Channels[0].CurveType)

	diff(t, []float64{-1, 2}, smile.Range)
	if smile.Weight == nil || *smile.Weight != 0.4 {
		t.Errorf("smile weight = %v", smile.Weight)
	}
}

func TestDecode(t *testing.T) {
	const src = `
length: 2
targets:
  - name: jaw
    kind: float
    range: [0, 1]
    keyframes:
      - time: 0
        channels:
          - {value: 0.2, in: 0.2, out: 0.2, type: Flat}
      - time: 2
        channels:
          - {value: 0.8, in: 0.8, out: 0.8, type: 1}
`
	doc, err := Decode(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Version != Version {
		t.Errorf("Version = %d, want %d", doc.Version, Version)
	}

	jaw, err := doc.Targets[0].Build()
	if err != nil {
		t.Fatal(err)
	}
	diff(t, []float64{0, 2}, jaw.KeyTimes())
	got := []keyframe.CurveType{jaw.Lead().Key(0).CurveType, jaw.Lead().Key(1).CurveType}
	diff(t, []keyframe.CurveType{keyframe.Flat, keyframe.Linear}, got)
	v, err := jaw.EvaluateValue(1)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, 0.5, v, cmpopts.EquateApprox(0, 0.2))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind errors.ErrorKind
	}{
		{"malformed", "targets: [", errors.KindParse},
		{"newer version", "version: 99\n", errors.KindUnsupportedOperation},
		{"unknown curve type", "targets:\n  - name: a\n    kind: float\n    keyframes:\n      - time: 0\n        channels: [{type: Wobble}]\n", errors.KindParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src))
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("Decode() error = %v, want %v", err, tt.kind)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  Target
		kind errors.ErrorKind
	}{
		{"unknown kind", Target{Name: "a", Kind: "scale"}, errors.KindParse},
		{"bad id", Target{Name: "a", Kind: "float", ID: "nope"}, errors.KindParse},
		{"bad range", Target{Name: "a", Kind: "float", Range: []float64{1}}, errors.KindParse},
		{
			"channel count",
			Target{Name: "a", Kind: "position", Keyframes: []Keyframe{{Time: 0, Snapshot: target.Snapshot{
				Channels: []keyframe.ChannelSnapshot{{Value: 1}},
			}}}},
			errors.KindChannelMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.Build()
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("Build() error = %v, want %v", err, tt.kind)
			}
		})
	}
}

func TestEncodeUsesLabels(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleDocument(t)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"type: Bounce", "kind: transform", "range: [-1, 2]", "group: arm"} {
		if !strings.Contains(out, want) {
			t.Errorf("encoded document lacks %q", want)
		}
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.IsKind(err, errors.KindIO) {
		t.Errorf("Read() error = %v, want IO", err)
	}
}
