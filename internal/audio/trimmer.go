package audio

import (
	"context"
	"errors"
	"io"

	"github.com/pausecut/pausecut-api/internal/timing"
)

// TrimConfig holds the silence-removal thresholds.
type TrimConfig struct {
	// MinSilence is the minimum pause length that gets shortened.
	// Pauses below this are emitted untouched.
	MinSilence timing.Ratio
	// LeadPadding is how much silence is kept at the start of a removed
	// pause.
	LeadPadding timing.Ratio
	// TrailPadding is how much audio immediately before the resumption is
	// kept. Quiet-but-not-silent speech often precedes the first frame that
	// crosses the threshold; keeping it avoids clipping word onsets.
	TrailPadding timing.Ratio
}

// Trimmer consumes a frame stream and produces a re-timed stream with long
// silences shortened to bounded padding. It is a pull iterator: each Next
// call advances the underlying source only as far as needed to produce one
// output frame.
//
// A Trimmer serves exactly one pass over one stream; it holds the silence
// run buffer and the cumulative time offset exclusively and is not safe for
// concurrent use.
type Trimmer struct {
	src Source
	cls Classifier
	cfg TrimConfig

	// offset is the total duration removed from the timeline so far.
	// Every emitted frame satisfies out.PTS == source PTS - offset at the
	// moment of emission.
	offset timing.Ratio

	inRun bool
	run   silenceRun

	queue []Frame
	done  bool
}

// silenceRun accumulates frames of an in-progress candidate pause.
// Frames are partitioned into the lead (the first LeadPadding worth, frozen
// once full) and the tail (everything after). Once the run is long enough
// that trimming is guaranteed, the tail is reduced to a rolling
// TrailPadding window, bounding memory for arbitrarily long pauses.
type silenceRun struct {
	start timing.Ratio
	total timing.Ratio

	lead    []Frame
	leadDur timing.Ratio

	tail    []Frame
	tailDur timing.Ratio
}

// NewTrimmer creates a trimmer over src using the given classifier and
// thresholds.
func NewTrimmer(src Source, cls Classifier, cfg TrimConfig) *Trimmer {
	return &Trimmer{src: src, cls: cls, cfg: cfg}
}

// Next returns the next re-timed output frame, or io.EOF when the stream is
// exhausted. Source errors are returned as-is.
func (t *Trimmer) Next(ctx context.Context) (Frame, error) {
	for len(t.queue) == 0 {
		if t.done {
			return Frame{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		f, err := t.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			t.done = true
			if t.inRun {
				// End of input inside a pause: close it under the same rule
				// as an interior closure, just with nothing following.
				t.closeRun()
			}
			continue
		}
		if err != nil {
			return Frame{}, err
		}
		t.feed(f)
	}
	out := t.queue[0]
	t.queue = t.queue[1:]
	return out, nil
}

// feed advances the state machine by one classified frame.
func (t *Trimmer) feed(f Frame) {
	if t.cls.IsSilent(f) {
		if !t.inRun {
			t.inRun = true
			t.run = silenceRun{start: f.PTS}
		}
		t.buffer(f)
		return
	}
	if t.inRun {
		t.closeRun()
	}
	t.emit(f)
}

// buffer adds a silent frame to the open run and evicts what can never be
// emitted.
func (t *Trimmer) buffer(f Frame) {
	r := &t.run
	r.total = r.total.Add(f.Duration)

	if r.leadDur.Less(t.cfg.LeadPadding) {
		r.lead = append(r.lead, f)
		r.leadDur = r.leadDur.Add(f.Duration)
	} else {
		r.tail = append(r.tail, f)
		r.tailDur = r.tailDur.Add(f.Duration)
	}

	// Once the run has reached MinSilence the trim decision is already
	// fixed: only the lead and the trailing window can ever be emitted.
	// Dropping the middle keeps memory bounded no matter how long the
	// pause runs. Eviction never starts earlier, so the keep-all path
	// below always still has every frame.
	if t.cfg.MinSilence.Cmp(r.total) <= 0 {
		for len(r.tail) > 1 {
			rest := r.tailDur.Sub(r.tail[0].Duration)
			if rest.Less(t.cfg.TrailPadding) {
				break
			}
			r.tailDur = rest
			r.tail = r.tail[1:]
		}
	}
}

// closeRun ends the open silence run and queues whatever of it survives.
func (t *Trimmer) closeRun() {
	r := &t.run
	t.inRun = false

	if r.total.Less(t.cfg.MinSilence) {
		// Short pause: keep it all, shifted by the current offset.
		for _, f := range r.lead {
			t.emit(f)
		}
		for _, f := range r.tail {
			t.emit(f)
		}
		t.run = silenceRun{}
		return
	}

	// Long pause: keep the lead padding...
	for _, f := range r.lead {
		t.emit(f)
	}

	// ...and the trailing window immediately preceding the resumption.
	trail := r.trailWindow(t.cfg.TrailPadding)

	// Close the gap: the first frame after the removed span must land
	// exactly where the lead ended. Everything downstream re-times off the
	// updated offset, so emitted timestamps stay contiguous.
	leadEndOut := r.start.Sub(t.offset).Add(r.leadDur)
	gapEnd := r.start.Add(r.total)
	if len(trail) > 0 {
		gapEnd = trail[0].PTS
	}
	t.offset = gapEnd.Sub(leadEndOut)

	for _, f := range trail {
		t.emit(f)
	}
	t.run = silenceRun{}
}

// trailWindow returns the minimal suffix of the tail covering pad, or the
// whole tail when it is shorter than pad.
func (r *silenceRun) trailWindow(pad timing.Ratio) []Frame {
	if pad.IsZero() || len(r.tail) == 0 {
		return nil
	}
	var dur timing.Ratio
	i := len(r.tail)
	for i > 0 && dur.Less(pad) {
		i--
		dur = dur.Add(r.tail[i].Duration)
	}
	return r.tail[i:]
}

// emit queues a frame re-timed against the current offset. The payload is
// shared; the frame value itself is new.
func (t *Trimmer) emit(f Frame) {
	f.PTS = f.PTS.Sub(t.offset)
	t.queue = append(t.queue, f)
}

// Offset returns the total duration removed so far. Exposed for logging.
func (t *Trimmer) Offset() timing.Ratio {
	return t.offset
}
