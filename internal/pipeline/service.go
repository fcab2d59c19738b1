// Package pipeline implements the caller contract around the audio core:
// trim first with fallback to the original, then split only when the
// artifact exceeds the byte budget, with fallback to the single unsplit
// artifact. The preference is always a worse-but-present result over no
// result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pausecut/pausecut-api/internal/audio"
	"github.com/pausecut/pausecut-api/internal/media"
	"github.com/pausecut/pausecut-api/internal/timing"
)

// ErrProcessingFailed is the generic post-condition fault: the pipeline
// reported success but the artifact is missing or empty.
var ErrProcessingFailed = errors.New("pipeline: processing failed")

// Backend is the media backend port: decode, encode, export, probe.
// Satisfied by *media.FFmpeg.
type Backend interface {
	Probe(ctx context.Context, path string) (media.Probe, error)
	OpenFrames(ctx context.Context, path string) (media.FrameStream, error)
	StartArtifact(ctx context.Context, dst string) (media.ArtifactSink, error)
	ExportRange(ctx context.Context, src, dst string, start, dur timing.Ratio) (int64, error)
}

// Config holds the processing thresholds. All values have working defaults
// via DefaultConfig.
type Config struct {
	// SilenceThresholdDB is the dBFS level below which a frame is silent.
	SilenceThresholdDB float64
	// MinSilence is the minimum pause length that gets trimmed.
	MinSilence timing.Ratio
	// LeadPadding and TrailPadding bound what survives of a trimmed pause.
	LeadPadding  timing.Ratio
	TrailPadding timing.Ratio
	// MaxBacktrack is how far before the byte-budget target a pause may
	// start and still be used as the split point.
	MaxBacktrack timing.Ratio
	// MinSegment is the minimum duration of either side of a split.
	MinSegment timing.Ratio
	// MaxPayloadBytes triggers splitting when an artifact exceeds it.
	MaxPayloadBytes int64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SilenceThresholdDB: -35.0,
		MinSilence:         timing.New(1, 1),
		LeadPadding:        timing.New(1, 2),
		TrailPadding:       timing.New(1, 2),
		MaxBacktrack:       timing.New(30, 1),
		MinSegment:         timing.New(1, 2),
		MaxPayloadBytes:    25 << 20,
	}
}

// Artifact is one produced output file.
type Artifact struct {
	// Path is the artifact location on disk.
	Path string
	// Bytes is the artifact size.
	Bytes int64
	// Start and Duration locate the artifact within its source. For an
	// unsplit result Start is zero and Duration the whole file.
	Start    timing.Ratio
	Duration timing.Ratio
}

// Result describes one processing run.
type Result struct {
	// Artifacts holds one entry, or two when a split happened.
	Artifacts []Artifact
	// Trimmed reports whether the trimmed artifact was used (false means
	// the pipeline fell back to the original).
	Trimmed bool
	// Split reports whether the result was cut into two segments.
	Split bool
	// SilenceDerived reports whether the split landed on a real pause.
	SilenceDerived bool
	// Skipped is set when the input was too short to process; the artifact
	// passes through unchanged.
	Skipped bool
	// SourceDuration is the probed duration of the input.
	SourceDuration timing.Ratio
}

// Service runs the trim and split stages over one input file at a time.
type Service struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger
}

// NewService creates a pipeline service.
func NewService(backend Backend, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, cfg: cfg, logger: logger}
}

// Process runs the full pipeline on inputPath, writing intermediate and
// final artifacts into workDir. The input file itself is never modified.
//
// Stage failures degrade instead of aborting: a failed or empty trim falls
// back to the original audio, a failed split falls back to the single
// artifact. Only decode-probe failures (no audio track, unreadable file)
// are fatal.
func (s *Service) Process(ctx context.Context, inputPath, workDir string) (*Result, error) {
	probe, err := s.backend.Probe(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("probe input: %w", err)
	}
	if !probe.HasAudio {
		return nil, fmt.Errorf("%w: %s", media.ErrNoAudioTrack, inputPath)
	}

	result := &Result{SourceDuration: probe.Duration}

	// An input no longer than the minimum pause cannot contain anything to
	// trim, and it cannot exceed any sane byte budget either.
	if probe.Duration.Cmp(s.cfg.MinSilence) <= 0 {
		s.logger.Info("skip, too short to process",
			slog.Float64("duration_sec", probe.Duration.Seconds()),
		)
		size, err := fileSize(inputPath)
		if err != nil {
			return nil, err
		}
		result.Skipped = true
		result.Artifacts = []Artifact{{Path: inputPath, Bytes: size, Duration: probe.Duration}}
		return result, nil
	}

	active, activeBytes, trimmed := s.trimStage(ctx, inputPath, workDir)
	result.Trimmed = trimmed

	activeDur := probe.Duration
	if trimmed {
		trimProbe, err := s.backend.Probe(ctx, active)
		if err != nil {
			// The trimmed file exists but will not probe; distrust it.
			s.logger.Warn("trimmed artifact unprobeable, falling back to original",
				slog.String("error", err.Error()),
			)
			size, serr := fileSize(inputPath)
			if serr != nil {
				return nil, serr
			}
			active, activeBytes, trimmed = inputPath, size, false
			result.Trimmed = false
		} else {
			activeDur = trimProbe.Duration
		}
	}

	if activeBytes <= s.cfg.MaxPayloadBytes {
		result.Artifacts = []Artifact{{Path: active, Bytes: activeBytes, Duration: activeDur}}
		return result, nil
	}

	segments, candidate, err := s.splitStage(ctx, active, workDir, activeDur, activeBytes)
	if err != nil {
		s.logger.Warn("split failed, submitting single artifact",
			slog.String("error", err.Error()),
		)
		result.Artifacts = []Artifact{{Path: active, Bytes: activeBytes, Duration: activeDur}}
		return result, nil
	}
	if segments == nil {
		// Too short to split safely.
		result.Artifacts = []Artifact{{Path: active, Bytes: activeBytes, Duration: activeDur}}
		return result, nil
	}

	result.Split = true
	result.SilenceDerived = candidate.SilenceDerived
	result.Artifacts = segments
	return result, nil
}

// trimStage produces the silence-trimmed artifact, or falls back to the
// input on any failure. Returns the active path, its size, and whether the
// trimmed version is in use.
func (s *Service) trimStage(ctx context.Context, inputPath, workDir string) (string, int64, bool) {
	trimmedPath := filepath.Join(workDir, "trimmed.m4a")

	size, err := s.trim(ctx, inputPath, trimmedPath)
	if err == nil && size > 0 {
		s.logger.Info("silence trim complete",
			slog.Int64("bytes", size),
		)
		return trimmedPath, size, true
	}
	if err == nil {
		err = fmt.Errorf("%w: empty trimmed artifact", ErrProcessingFailed)
	}
	s.logger.Warn("trim failed, falling back to original audio",
		slog.String("error", err.Error()),
	)

	origSize, serr := fileSize(inputPath)
	if serr != nil {
		// Input vanished mid-run; nothing sensible left to return, but the
		// caller's probe already succeeded so report zero and let the
		// split-stage guard pass it through.
		origSize = 0
	}
	return inputPath, origSize, false
}

// trim runs decode → classify → trim → paced encode for one file.
// The output artifact is committed on success and removed on every failure
// path.
func (s *Service) trim(ctx context.Context, src, dst string) (int64, error) {
	frames, err := s.backend.OpenFrames(ctx, src)
	if err != nil {
		return 0, &audio.ReaderError{Err: err}
	}
	defer func() { _ = frames.Close() }()

	sink, err := s.backend.StartArtifact(ctx, dst)
	if err != nil {
		return 0, &audio.WriterError{Err: err}
	}

	trimmer := audio.NewTrimmer(
		frames,
		audio.NewClassifier(s.cfg.SilenceThresholdDB),
		audio.TrimConfig{
			MinSilence:   s.cfg.MinSilence,
			LeadPadding:  s.cfg.LeadPadding,
			TrailPadding: s.cfg.TrailPadding,
		},
	)

	if err := audio.Pump(ctx, trimmer, sink); err != nil {
		sink.Abort()
		return 0, err
	}

	size, err := sink.Commit(ctx)
	if err != nil {
		sink.Abort()
		return 0, &audio.WriterError{Err: err}
	}

	s.logger.Debug("trimmer finished",
		slog.Float64("removed_sec", trimmer.Offset().Seconds()),
	)
	return size, nil
}

// splitStage cuts the artifact into two payload-bounded segments at a
// silence boundary. Returns (nil, _, nil) when the artifact is too short to
// split without producing a degenerate segment.
func (s *Service) splitStage(ctx context.Context, src, workDir string, total timing.Ratio, size int64) ([]Artifact, audio.SplitCandidate, error) {
	twiceMin := s.cfg.MinSegment.Add(s.cfg.MinSegment)
	if total.Cmp(twiceMin) <= 0 {
		s.logger.Info("artifact over budget but too short to split",
			slog.Float64("duration_sec", total.Seconds()),
			slog.Int64("bytes", size),
		)
		return nil, audio.SplitCandidate{}, nil
	}

	// Ideal cut from measured bitrate, clamped so neither side can be
	// degenerate.
	bytesPerSec := float64(size) / total.Seconds()
	target := timing.Clamp(
		timing.FromSeconds(float64(s.cfg.MaxPayloadBytes)/bytesPerSec),
		s.cfg.MinSegment,
		total.Sub(s.cfg.MinSegment),
	)

	frames, err := s.backend.OpenFrames(ctx, src)
	if err != nil {
		return nil, audio.SplitCandidate{}, fmt.Errorf("open frames for split scan: %w", err)
	}
	candidate, err := audio.FindSplit(ctx, frames, audio.NewClassifier(s.cfg.SilenceThresholdDB), audio.PlanConfig{
		Target:     target,
		Backtrack:  s.cfg.MaxBacktrack,
		MinSilence: s.cfg.MinSilence,
	})
	_ = frames.Close()
	if err != nil {
		return nil, audio.SplitCandidate{}, fmt.Errorf("plan split: %w", err)
	}

	// The planner's answer is clamped again: a pathological candidate must
	// never produce a near-empty segment.
	cut := timing.Clamp(candidate.Time, s.cfg.MinSegment, total.Sub(s.cfg.MinSegment))

	s.logger.Info("splitting artifact",
		slog.Float64("cut_sec", cut.Seconds()),
		slog.Float64("target_sec", target.Seconds()),
		slog.Bool("silence_derived", candidate.SilenceDerived),
	)

	firstPath := filepath.Join(workDir, "segment_000.m4a")
	secondPath := filepath.Join(workDir, "segment_001.m4a")

	firstBytes, err := s.backend.ExportRange(ctx, src, firstPath, timing.Zero, cut)
	if err != nil {
		return nil, audio.SplitCandidate{}, err
	}
	secondBytes, err := s.backend.ExportRange(ctx, src, secondPath, cut, total.Sub(cut))
	if err != nil {
		_ = os.Remove(firstPath)
		return nil, audio.SplitCandidate{}, err
	}

	segments := []Artifact{
		{Path: firstPath, Bytes: firstBytes, Start: timing.Zero, Duration: cut},
		{Path: secondPath, Bytes: secondBytes, Start: cut, Duration: total.Sub(cut)},
	}
	return segments, candidate, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
