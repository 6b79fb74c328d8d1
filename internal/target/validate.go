package target

import (
	"fmt"

	"github.com/acidbubbles/vam-timeline-sub003/internal/curve"
	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
	"github.com/acidbubbles/vam-timeline-sub003/internal/validation"
)

// Validate checks the structure of the target against an animation length
// and repairs what it can: channels that drifted off the shared time axis are
// resampled onto the most complete channel, and missing boundary keyframes
// are added from evaluation. Repairs are logged and listed in the result;
// they are never returned as errors.
func (t *Target) Validate(length float64) *validation.Result {
	times := t.KeyTimes()
	r := &validation.Result{
		Target:   t.name,
		KeyCount: len(times),
	}
	r.HasEnoughKeys, r.KeysMessage = validation.ValidateKeyCount(len(times))
	r.StartsAtZero, r.StartMessage = validation.ValidateStart(times)
	r.EndsAtLength, r.EndMessage = validation.ValidateEnd(times, length)
	r.ChannelsInSync, r.SyncMessage = t.validateSync()

	t.StartBulkUpdates()
	defer t.EndBulkUpdates()

	if !r.ChannelsInSync {
		t.repairSync(r)
	}
	if !r.StartsAtZero || !r.EndsAtLength {
		t.repairEdges(r, length)
	}

	for _, repair := range r.Repairs {
		t.logger.Warn("repaired target", "check", repair.Check, "channel", repair.Channel, "details", repair.Details)
	}
	if t.Len() < 2 {
		t.logger.Warn("target cannot be played", "keyframes", t.Len(), "length", length)
	}
	return r
}

// CheckSync returns a ChannelMismatch error when a channel drifted off the
// lead channel's time axis. Validate repairs such drift.
func (t *Target) CheckSync() error {
	if ok, msg := t.validateSync(); !ok {
		return errors.NewChannelsOutOfSyncError(msg)
	}
	return nil
}

func (t *Target) validateSync() (bool, string) {
	names := t.kind.ChannelNames()
	lead := t.KeyTimes()
	for i := 1; i < len(t.channels); i++ {
		if ok, msg := validation.ValidateAligned(lead, curveTimes(t.channels[i])); !ok {
			return false, names[i] + ": " + msg
		}
	}
	return true, fmt.Sprintf("%d channels aligned", len(t.channels))
}

// repairSync resamples every channel that does not match the channel with
// the most keyframes onto that channel's times.
func (t *Target) repairSync(r *validation.Result) {
	ref := t.channels[0]
	for _, c := range t.channels[1:] {
		if c.Len() > ref.Len() {
			ref = c
		}
	}
	refTimes := curveTimes(ref)
	names := t.kind.ChannelNames()
	for i, c := range t.channels {
		if c == ref {
			continue
		}
		if ok, _ := validation.ValidateAligned(refTimes, curveTimes(c)); ok {
			continue
		}
		before := c.Len()
		resample(c, ref)
		r.AddRepair(validation.CheckSync, names[i],
			fmt.Sprintf("resampled %d keyframes onto %d", before, c.Len()))
	}
	t.markChanged()
}

// resample rebuilds c on the time axis of ref. Keys c already has at those
// times are kept as they are; the others are sampled from c and take the
// curve type of ref.
func resample(c, ref *curve.Curve) {
	rebuilt := curve.New(curve.WithCapacity(ref.Len()))
	for i := 0; i < ref.Len(); i++ {
		rk := ref.Key(i)
		if key := c.KeyframeBinarySearch(rk.Time, false); key != -1 {
			k := c.Key(key)
			k.Time = rk.Time
			rebuilt.AddKey(k)
			continue
		}
		rebuilt.AddKey(keyframe.New(rk.Time, sampleChannel(c, rk.Time), rk.CurveType))
	}
	c.CopyFrom(rebuilt)
}

func (t *Target) repairEdges(r *validation.Result, length float64) {
	hadStart := t.KeyframeBinarySearch(0, false) != -1
	hadEnd := length > 0 && t.KeyframeBinarySearch(length, false) != -1
	if !t.AddEdgeFramesIfMissing(length) {
		return
	}
	if !hadStart {
		r.AddRepair(validation.CheckStart, "", "added keyframe at 0s")
	}
	if !hadEnd && length > 0 {
		r.AddRepair(validation.CheckEnd, "", fmt.Sprintf("added keyframe at %.3fs", length))
	}
}

// sampleChannel evaluates c at time, tolerating curves too short to evaluate.
func sampleChannel(c *curve.Curve, time float64) float64 {
	switch c.Len() {
	case 0:
		return 0
	case 1:
		return c.Key(0).Value
	}
	v, err := c.Evaluate(time)
	if err != nil {
		return c.Key(c.LastKey()).Value
	}
	return v
}
