package target

import (
	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
)

// Snapshot is a plain copy of one keyframe across every channel of a target.
// It holds no reference back to the target.
type Snapshot struct {
	Channels []keyframe.ChannelSnapshot `yaml:"channels"`
}

// GetSnapshot copies the keyframe at time. It reports false when no keyframe
// exists at that time.
func (t *Target) GetSnapshot(time float64) (*Snapshot, bool) {
	key := t.KeyframeBinarySearch(time, false)
	if key == -1 {
		return nil, false
	}
	s := &Snapshot{Channels: make([]keyframe.ChannelSnapshot, len(t.channels))}
	for i, c := range t.channels {
		if key >= c.Len() {
			return nil, false
		}
		s.Channels[i] = c.Key(key).Snapshot()
	}
	return s, true
}

// SetSnapshot writes a snapshot at time, control points and curve types
// included, creating the keyframe when needed.
func (t *Target) SetSnapshot(time float64, s *Snapshot) error {
	if s == nil {
		return errors.NewInvalidStateError("nil snapshot")
	}
	if len(s.Channels) != len(t.channels) {
		return errors.NewChannelMismatchError(len(t.channels), len(s.Channels))
	}
	for _, ch := range s.Channels {
		if err := keyframe.Check(time, ch.CurveType); err != nil {
			return err
		}
	}
	for i, c := range t.channels {
		c.SetKey(s.Channels[i].Restore(time))
	}
	t.markChanged()
	return nil
}
