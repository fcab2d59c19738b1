// Package media wraps ffmpeg and ffprobe as the decode, encode, and export
// backends for the audio pipeline. All process handling lives here; the
// audio core never shells out.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pausecut/pausecut-api/internal/timing"
)

// Static errors for media operations.
var (
	// ErrNoAudioTrack is returned when the input file has no audio stream.
	ErrNoAudioTrack = errors.New("media: no audio track")
	// ErrEmptyArtifact is returned when an encode or export produced a
	// zero-byte output file.
	ErrEmptyArtifact = errors.New("media: empty output artifact")
)

// FFmpegError represents an error from running ffmpeg, including the stderr
// output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// FFmpeg is the concrete backend bundling decode, encode, export, and probe
// operations around the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	sampleRate  int
}

// NewFFmpeg creates a backend. Empty paths default to "ffmpeg" and
// "ffprobe" found via PATH. sampleRate is the PCM rate frames are decoded
// at; zero defaults to 16 kHz.
func NewFFmpeg(ffmpegPath, ffprobePath string, sampleRate int) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, sampleRate: sampleRate}
}

// SampleRate returns the PCM sample rate the backend decodes at.
func (b *FFmpeg) SampleRate() int {
	return b.sampleRate
}

// Probe describes an input file.
type Probe struct {
	// HasAudio reports whether the file contains at least one audio stream.
	HasAudio bool
	// Duration is the container duration.
	Duration timing.Ratio
}

// Probe inspects the file with ffprobe. A file without an audio stream
// returns a Probe with HasAudio=false and no error; callers decide whether
// that is fatal.
func (b *FFmpeg) Probe(ctx context.Context, path string) (Probe, error) {
	hasAudio, err := b.probeAudioStream(ctx, path)
	if err != nil {
		return Probe{}, err
	}
	if !hasAudio {
		return Probe{HasAudio: false}, nil
	}
	dur, err := b.probeDuration(ctx, path)
	if err != nil {
		return Probe{}, err
	}
	return Probe{HasAudio: true, Duration: dur}, nil
}

// probeAudioStream checks for the presence of an audio stream.
func (b *FFmpeg) probeAudioStream(ctx context.Context, path string) (bool, error) {
	out, err := b.runFFprobe(ctx,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "audio"), nil
}

// probeDuration returns the container duration.
func (b *FFmpeg) probeDuration(ctx context.Context, path string) (timing.Ratio, error) {
	out, err := b.runFFprobe(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return timing.Zero, err
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return timing.Zero, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(out), err)
	}
	return timing.FromSeconds(seconds), nil
}

// runFFprobe executes ffprobe and returns its stdout.
func (b *FFmpeg) runFFprobe(ctx context.Context, args ...string) (string, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, b.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return "", &FFmpegError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// runFFmpeg executes ffmpeg to completion and returns an error containing
// stderr output if the command fails.
func (b *FFmpeg) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, b.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return nil
}

func formatSeconds(r timing.Ratio) string {
	return fmt.Sprintf("%.6f", r.Seconds())
}
