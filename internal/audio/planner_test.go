package audio

import (
	"context"
	"errors"
	"testing"

	"github.com/pausecut/pausecut-api/internal/timing"
)

func defaultPlanConfig(targetSec int64) PlanConfig {
	return PlanConfig{
		Target:     timing.New(targetSec, 1),
		Backtrack:  timing.New(30, 1),
		MinSilence: timing.New(1, 1),
	}
}

func TestFindSplit_NoSilenceFallsBackToTarget(t *testing.T) {
	frames := appendFrames(nil, 600, frameSamples100ms, false) // 60s of tone
	cand, err := FindSplit(context.Background(), &sliceSource{frames: frames}, NewClassifier(-35), defaultPlanConfig(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand.SilenceDerived {
		t.Error("expected raw target fallback")
	}
	if cand.Time.Cmp(timing.New(20, 1)) != 0 {
		t.Errorf("expected cut at target 20s, got %s", cand.Time)
	}
}

func TestFindSplit_ClosedPauseBeforeTarget(t *testing.T) {
	// Tone 0-5s, silence 5-13s, tone 13-60s; target 20s.
	frames := appendFrames(nil, 50, frameSamples100ms, false)
	frames = appendFrames(frames, 80, frameSamples100ms, true)
	frames = appendFrames(frames, 470, frameSamples100ms, false)

	cand, err := FindSplit(context.Background(), &sliceSource{frames: frames}, NewClassifier(-35), defaultPlanConfig(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cand.SilenceDerived {
		t.Error("expected silence-derived cut")
	}
	if cand.Time.Cmp(timing.New(5, 1)) != 0 {
		t.Errorf("expected cut at pause start 5s, got %s", cand.Time)
	}
}

func TestFindSplit_LastQualifyingPauseWins(t *testing.T) {
	// Two pauses before the target; the later one is the better cut.
	frames := appendFrames(nil, 50, frameSamples100ms, false)  // 0-5s
	frames = appendFrames(frames, 20, frameSamples100ms, true) // 5-7s
	frames = appendFrames(frames, 30, frameSamples100ms, false)
	frames = appendFrames(frames, 20, frameSamples100ms, true) // 10-12s
	frames = appendFrames(frames, 480, frameSamples100ms, false)

	cand, err := FindSplit(context.Background(), &sliceSource{frames: frames}, NewClassifier(-35), defaultPlanConfig(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cand.SilenceDerived {
		t.Error("expected silence-derived cut")
	}
	if cand.Time.Cmp(timing.New(10, 1)) != 0 {
		t.Errorf("expected cut at later pause 10s, got %s", cand.Time)
	}
}

func TestFindSplit_PauseOpenAtTarget(t *testing.T) {
	// A pause still running when the scan reaches the target qualifies on
	// recency alone.
	frames := appendFrames(nil, 180, frameSamples100ms, false) // 0-18s
	frames = appendFrames(frames, 50, frameSamples100ms, true) // 18-23s
	frames = appendFrames(frames, 370, frameSamples100ms, false)

	cand, err := FindSplit(context.Background(), &sliceSource{frames: frames}, NewClassifier(-35), defaultPlanConfig(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cand.SilenceDerived {
		t.Error("expected silence-derived cut")
	}
	if cand.Time.Cmp(timing.New(18, 1)) != 0 {
		t.Errorf("expected cut at open pause start 18s, got %s", cand.Time)
	}
}

func TestFindSplit_PauseOutsideBacktrackIgnored(t *testing.T) {
	// The only pause starts before target-backtrack and must not be used.
	frames := appendFrames(nil, 20, frameSamples100ms, false)  // 0-2s
	frames = appendFrames(frames, 20, frameSamples100ms, true) // 2-4s
	frames = appendFrames(frames, 560, frameSamples100ms, false)

	cfg := defaultPlanConfig(40)
	cand, err := FindSplit(context.Background(), &sliceSource{frames: frames}, NewClassifier(-35), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand.SilenceDerived {
		t.Error("expected pause outside backtrack window to be ignored")
	}
	if cand.Time.Cmp(cfg.Target) != 0 {
		t.Errorf("expected raw target, got %s", cand.Time)
	}
}

func TestFindSplit_ShortPauseIgnored(t *testing.T) {
	// A closed pause shorter than MinSilence never qualifies.
	frames := appendFrames(nil, 50, frameSamples100ms, false)
	frames = appendFrames(frames, 5, frameSamples100ms, true) // 0.5s pause
	frames = appendFrames(frames, 545, frameSamples100ms, false)

	cand, err := FindSplit(context.Background(), &sliceSource{frames: frames}, NewClassifier(-35), defaultPlanConfig(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand.SilenceDerived {
		t.Error("expected short pause to be ignored")
	}
}

func TestFindSplit_ScanStopsAtTarget(t *testing.T) {
	// The source fails after the target; the planner must never get there.
	frames := appendFrames(nil, 210, frameSamples100ms, false) // 0-21s
	src := &sliceSource{frames: frames, err: errors.New("must not be read")}

	_, err := FindSplit(context.Background(), src, NewClassifier(-35), defaultPlanConfig(20))
	if err != nil {
		t.Fatalf("expected scan to stop before the source error, got %v", err)
	}
}

func TestFindSplit_ReaderErrorWrapped(t *testing.T) {
	frames := appendFrames(nil, 10, frameSamples100ms, false) // 1s, well short of target
	src := &sliceSource{frames: frames, err: errors.New("decode failed")}

	_, err := FindSplit(context.Background(), src, NewClassifier(-35), defaultPlanConfig(20))
	var re *ReaderError
	if !errors.As(err, &re) {
		t.Fatalf("expected *ReaderError, got %v", err)
	}
}
