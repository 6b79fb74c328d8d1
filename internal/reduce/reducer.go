package reduce

import (
	"math"
	"sort"
	"time"

	"github.com/acidbubbles/vam-timeline-sub003/internal/config"
	"github.com/acidbubbles/vam-timeline-sub003/internal/errors"
	"github.com/acidbubbles/vam-timeline-sub003/internal/keyframe"
	"github.com/acidbubbles/vam-timeline-sub003/internal/reporter"
)

// Bucket is an inclusive range of source keys not yet resolved into the
// branch. The keys just outside the range are its anchors.
type Bucket struct {
	From                int
	To                  int
	KeyWithLargestDelta int

	// strict buckets come from verification and may only copy keys.
	strict bool
}

// Len returns the number of keys in the bucket.
func (b Bucket) Len() int {
	return b.To - b.From + 1
}

// Reducer runs a reduction one bucket at a time so callers can interleave
// other work between steps or stop early. Nothing reaches the source until
// Commit.
type Reducer struct {
	proc     Processor
	settings config.ReduceSettings

	times    []float64
	stack    []Bucket
	interior int
	resolved int
	rounds   int

	done      bool
	committed bool
	err       error
	started   time.Time
	result    Result
}

// NewReducer prepares a reduction of proc's source. A branch is started when
// proc has none.
func NewReducer(proc Processor, settings config.ReduceSettings) *Reducer {
	src := proc.Source()
	if proc.BranchTarget() == nil {
		proc.Branch()
	}
	r := &Reducer{
		proc:     proc,
		settings: settings,
		times:    src.KeyTimes(),
		started:  time.Now(),
		result: Result{
			Target: src.Name(),
			Kind:   src.Kind().String(),
			Before: src.Len(),
		},
	}
	if n := len(r.times); n > 2 {
		r.interior = n - 2
		r.push(Bucket{From: 1, To: n - 2, KeyWithLargestDelta: -1})
	}
	return r
}

func (r *Reducer) push(b Bucket) {
	if b.From > b.To {
		return
	}
	b.KeyWithLargestDelta = -1
	r.stack = append(r.stack, b)
}

func (r *Reducer) pop() Bucket {
	b := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return b
}

// Pending returns the number of buckets waiting on the stack.
func (r *Reducer) Pending() int {
	return len(r.stack)
}

// Done reports whether the reduction is ready to commit.
func (r *Reducer) Done() bool {
	return r.done
}

// Result returns the counters gathered so far.
func (r *Reducer) Result() Result {
	res := r.result
	res.Duration = time.Since(r.started)
	return res
}

// Progress returns a snapshot for reporters.
func (r *Reducer) Progress() reporter.ProgressSnapshot {
	percent := float32(100)
	if r.interior > 0 {
		percent = float32(min(r.resolved, r.interior)) / float32(r.interior) * 100
	}
	branch := 0
	if b := r.proc.BranchTarget(); b != nil {
		branch = b.Len()
	}
	return reporter.ProgressSnapshot{
		Target:   r.result.Target,
		Resolved: min(r.resolved, r.interior),
		Total:    r.interior,
		Percent:  percent,
		Steps:    r.result.Steps,
		Branch:   branch,
	}
}

// Step processes one bucket, or runs the verification pass once the stack is
// empty. It returns false when there is nothing left to do.
func (r *Reducer) Step() bool {
	if r.done || r.err != nil {
		return false
	}
	if len(r.stack) == 0 {
		return r.verify()
	}
	b := r.pop()
	r.result.Steps++
	if err := r.process(b); err != nil {
		r.err = err
		return false
	}
	return true
}

// worst returns the key of b the branch misses the most, and by how much.
func (r *Reducer) worst(b Bucket) (int, float64) {
	key, delta := b.From, math.Inf(-1)
	for k := b.From; k <= b.To; k++ {
		d := r.proc.GetComparableNormalizedValue(k)
		if math.IsNaN(d) {
			d = math.Inf(1)
		}
		if d > delta {
			key, delta = k, d
		}
	}
	return key, delta
}

func (r *Reducer) process(b Bucket) error {
	k, delta := r.worst(b)
	b.KeyWithLargestDelta = k

	// The branch already fits every key of b: drop them, or turn a stable
	// range into a hold.
	if delta <= 1 {
		if !b.strict && r.settings.RemoveFlats && r.stableAround(b.From-1, b.From-1, b.To+1) {
			if err := r.flatten(b.From-1, b.To+1); err != nil {
				return err
			}
		}
		r.resolved += b.Len()
		return nil
	}

	if !b.strict {
		if r.settings.RemoveFlats {
			if ok, err := r.tryFlatten(b); ok || err != nil {
				return err
			}
		}
		if r.settings.AvgToSnap && r.settings.FPS > 0 {
			if ok, err := r.tryAverage(b); ok || err != nil {
				return err
			}
		}
	}

	if _, err := r.proc.CopyToBranch(k); err != nil {
		return err
	}
	r.result.Copied++
	r.resolved++
	r.push(Bucket{From: b.From, To: k - 1, strict: b.strict})
	r.push(Bucket{From: k + 1, To: b.To, strict: b.strict})
	return nil
}

// stableAround reports whether every key in from..to is stable against ref.
func (r *Reducer) stableAround(ref, from, to int) bool {
	for k := from; k <= to; k++ {
		if !r.proc.IsStable(ref, k) {
			return false
		}
	}
	return true
}

func (r *Reducer) flatten(start, end int) error {
	if err := r.proc.FlattenToBranch(start, end); err != nil {
		return err
	}
	r.result.Flattened++
	return nil
}

// minFlatKeys is the shortest run of stable keys worth turning into a hold.
const minFlatKeys = 3

// tryFlatten grows a run of keys stable against the worst key of b, bounded
// by the anchors of b, and flattens it when it is long enough.
func (r *Reducer) tryFlatten(b Bucket) (bool, error) {
	k := b.KeyWithLargestDelta
	start, end := k, k
	for start-1 >= b.From-1 && r.proc.IsStable(k, start-1) {
		start--
	}
	for end+1 <= b.To+1 && r.proc.IsStable(k, end+1) {
		end++
	}
	if end-start+1 < minFlatKeys {
		return false, nil
	}
	if err := r.flatten(start, end); err != nil {
		return true, err
	}
	r.resolved += min(end, b.To) - max(start, b.From) + 1
	r.push(Bucket{From: b.From, To: start - 1})
	r.push(Bucket{From: end + 1, To: b.To})
	return true, nil
}

// tryAverage snaps the worst key of b to the nearest frame and replaces the
// keys falling inside that frame with their average.
func (r *Reducer) tryAverage(b Bucket) (bool, error) {
	fps := r.settings.FPS
	frame := math.Round(r.times[b.KeyWithLargestDelta]*fps) / fps
	half := 0.5 / fps

	from := b.From + sort.SearchFloat64s(r.times[b.From:b.To+1], frame-half)
	to := from
	for to+1 <= b.To && r.times[to+1] < frame+half {
		to++
	}
	if from > b.To || to-from+1 < 2 {
		return false, nil
	}
	if frame <= r.times[b.From-1]+keyframe.TimeEpsilon || frame >= r.times[b.To+1]-keyframe.TimeEpsilon {
		return false, nil
	}
	if r.proc.BranchTarget().KeyframeBinarySearch(frame, false) != -1 {
		return false, nil
	}

	if _, err := r.proc.AverageToBranch(frame, from, to+1); err != nil {
		return true, err
	}
	r.result.Averaged++
	r.resolved += to - from + 1
	r.push(Bucket{From: b.From, To: from - 1})
	r.push(Bucket{From: to + 1, To: b.To})
	return true, nil
}

// verify checks every source key against the branch once the stack is empty.
// Each gap between branch keyframes holding a key out of tolerance is queued
// again as a strict bucket. Every round copies at least one key, so the pass
// ends after at most one round per source key.
func (r *Reducer) verify() bool {
	n := len(r.times)
	if n <= 2 || r.rounds >= n {
		r.done = true
		return false
	}

	branch := r.proc.BranchTarget().KeyTimes()
	var pending []Bucket
	for k := 1; k < n-1; k++ {
		if r.proc.Deviation(k) <= 1 {
			continue
		}
		b := r.gap(k, branch)
		if len(pending) > 0 && pending[len(pending)-1].From == b.From {
			continue
		}
		pending = append(pending, b)
	}
	if len(pending) == 0 {
		r.done = true
		return false
	}

	r.rounds++
	r.result.Verifications++
	for i := len(pending) - 1; i >= 0; i-- {
		r.push(pending[i])
	}
	return true
}

// gap returns the strict bucket of source keys lying strictly between the
// branch keyframes that surround source key k.
func (r *Reducer) gap(k int, branch []float64) Bucket {
	t := r.times[k]
	left := math.Inf(-1)
	if i := sort.SearchFloat64s(branch, t-keyframe.TimeEpsilon); i > 0 {
		left = branch[i-1]
	}
	right := math.Inf(1)
	if i := sort.SearchFloat64s(branch, t+keyframe.TimeEpsilon); i < len(branch) {
		right = branch[i]
	}

	from := k
	for from-1 >= 1 && r.times[from-1] > left+keyframe.TimeEpsilon {
		from--
	}
	to := k
	for to+1 <= len(r.times)-2 && r.times[to+1] < right-keyframe.TimeEpsilon {
		to++
	}
	return Bucket{From: from, To: to, KeyWithLargestDelta: -1, strict: true}
}

// Commit replaces the source keyframes with the branch when the branch is
// smaller. It fails while buckets are pending.
func (r *Reducer) Commit() (Result, error) {
	if r.err != nil {
		return r.Result(), r.err
	}
	if r.committed {
		return r.Result(), errors.NewInvalidStateError("reduction already committed")
	}
	if !r.done || len(r.stack) > 0 {
		return r.Result(), errors.NewInvalidStateError("reduction still has pending buckets")
	}

	r.committed = true
	src := r.proc.Source()
	if r.proc.BranchTarget().Len() >= src.Len() {
		r.result.After = src.Len()
		return r.Result(), nil
	}
	if err := r.proc.Commit(); err != nil {
		return r.Result(), err
	}
	r.result.After = src.Len()
	r.result.Committed = true
	return r.Result(), nil
}
