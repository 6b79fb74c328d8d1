// Package document reads and writes animation documents: YAML files holding
// the keyframes of every target of an animation as plain snapshots.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/target"
)

// Version is the document format written by this package.
const Version = 1

// Document is a complete animation.
type Document struct {
	Version int       `yaml:"version"`
	Length  float64   `yaml:"length"`
	Loop    bool      `yaml:"loop"`
	Targets []*Target `yaml:"targets"`
}

// Target is one animated property.
type Target struct {
	ID        string     `yaml:"id,omitempty"`
	Name      string     `yaml:"name"`
	Kind      string     `yaml:"kind"`
	Ref       string     `yaml:"ref,omitempty"`
	Group     string     `yaml:"group,omitempty"`
	Weight    *float64   `yaml:"weight,omitempty"`
	Range     []float64  `yaml:"range,flow,omitempty"`
	Keyframes []Keyframe `yaml:"keyframes"`
}

// Keyframe is the snapshot of every channel of a target at one time.
type Keyframe struct {
	Time            float64 `yaml:"time"`
	target.Snapshot `yaml:",inline"`
}

// FromTarget captures the keyframes of t.
func FromTarget(t *target.Target, group string) *Target {
	doc := &Target{
		ID:        t.ID().String(),
		Name:      t.Name(),
		Kind:      t.Kind().String(),
		Ref:       t.Ref(),
		Group:     group,
		Keyframes: make([]Keyframe, 0, t.Len()),
	}
	if w := t.Weight(); w != 1 {
		doc.Weight = &w
	}
	if t.Kind() == target.KindFloatParam {
		lo, hi := t.Range()
		doc.Range = []float64{lo, hi}
	}
	for _, time := range t.KeyTimes() {
		s, ok := t.GetSnapshot(time)
		if !ok {
			continue
		}
		doc.Keyframes = append(doc.Keyframes, Keyframe{Time: time, Snapshot: *s})
	}
	return doc
}

// Build creates the target described by d. Extra options are applied after
// the ones derived from the document.
func (d *Target) Build(opts ...target.Option) (*target.Target, error) {
	kind, err := target.ParseKind(d.Kind)
	if err != nil {
		return nil, errors.NewParseError(fmt.Sprintf("target %q", d.Name), err)
	}

	var base []target.Option
	if d.ID != "" {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, errors.NewParseError(fmt.Sprintf("target %q id", d.Name), err)
		}
		base = append(base, target.WithID(id))
	}
	if d.Ref != "" {
		base = append(base, target.WithRef(d.Ref))
	}
	if kind == target.KindFloatParam && len(d.Range) > 0 {
		if len(d.Range) != 2 {
			return nil, errors.NewParseError(fmt.Sprintf("target %q range needs 2 values, got %d", d.Name, len(d.Range)), nil)
		}
		base = append(base, target.WithRange(d.Range[0], d.Range[1]))
	}

	t := target.New(kind, d.Name, append(base, opts...)...)
	if d.Weight != nil {
		t.SetWeight(*d.Weight)
	}
	t.IncreaseCapacity(len(d.Keyframes))
	t.StartBulkUpdates()
	defer t.EndBulkUpdates()
	for i := range d.Keyframes {
		k := &d.Keyframes[i]
		if err := t.SetSnapshot(k.Time, &k.Snapshot); err != nil {
			return nil, fmt.Errorf("target %q keyframe at %gs: %w", d.Name, k.Time, err)
		}
	}
	return t, nil
}

// Encode writes doc as YAML.
func Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.NewIOError("failed to encode document", err)
	}
	return enc.Close()
}

// Decode reads a YAML document. A missing version means the current one;
// newer versions are rejected.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.NewParseError("failed to decode document", err)
	}
	if doc.Version == 0 {
		doc.Version = Version
	}
	if doc.Version > Version {
		return nil, errors.NewUnsupportedOperationError(fmt.Sprintf("document version %d is newer than %d", doc.Version, Version))
	}
	return &doc, nil
}

// Write saves doc to path.
func Write(path string, doc *Document) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.NewIOError("failed to write "+path, err)
	}
	return nil
}

// Read loads the document at path.
func Read(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("failed to open "+path, err)
	}
	defer f.Close()
	return Decode(f)
}
