package audio

import (
	"context"
	"errors"
	"io"

	"github.com/pausecut/pausecut-api/internal/timing"
)

// SplitCandidate is the cut point chosen for size-based segmentation.
type SplitCandidate struct {
	// Time is where to cut.
	Time timing.Ratio
	// SilenceDerived is false when no qualifying pause was found within the
	// backtrack window and Time is just the raw target.
	SilenceDerived bool
}

// PlanConfig holds the split-point search parameters.
type PlanConfig struct {
	// Target is the ideal cut time derived from the byte budget.
	Target timing.Ratio
	// Backtrack is how far before Target a pause may start and still
	// qualify.
	Backtrack timing.Ratio
	// MinSilence is the minimum closed-pause length that qualifies as a
	// cut point, matching the trimmer's threshold.
	MinSilence timing.Ratio
}

// FindSplit scans frames from the start of the stream up to the target time
// and returns the best silence-aligned cut point. This is one forward pass:
// the scan stops at the first frame at or past the target and never decodes
// the rest of the file.
//
// The last pause before the target wins, biasing the cut as close to the
// byte budget as possible while still landing on a real pause. A pause
// still open when the scan ends qualifies on recency alone, since its
// silence extends through the target itself.
func FindSplit(ctx context.Context, src Source, cls Classifier, cfg PlanConfig) (SplitCandidate, error) {
	earliest := cfg.Target.Sub(cfg.Backtrack)
	best := SplitCandidate{Time: cfg.Target}

	var runStart, runDur timing.Ratio
	inRun := false

	for {
		if err := ctx.Err(); err != nil {
			return SplitCandidate{}, err
		}
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return SplitCandidate{}, &ReaderError{Err: err}
		}
		if cfg.Target.Cmp(f.PTS) <= 0 {
			break
		}

		if cls.IsSilent(f) {
			if !inRun {
				inRun = true
				runStart = f.PTS
				runDur = timing.Zero
			}
			runDur = runDur.Add(f.Duration)
			continue
		}

		if inRun {
			inRun = false
			if runDur.Cmp(cfg.MinSilence) >= 0 && earliest.Cmp(runStart) <= 0 {
				best = SplitCandidate{Time: runStart, SilenceDerived: true}
			}
		}
	}

	if inRun && earliest.Cmp(runStart) <= 0 {
		best = SplitCandidate{Time: runStart, SilenceDerived: true}
	}

	return best, nil
}
