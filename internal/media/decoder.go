package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/pausecut/pausecut-api/internal/audio"
	"github.com/pausecut/pausecut-api/internal/timing"
)

const (
	// DefaultSampleRate is the PCM rate files are decoded at. Speech
	// processing does not need more, and the classifier only looks at
	// energy.
	DefaultSampleRate = 16000
	// frameSamples is the number of samples per decoded frame. 1024 at
	// 16 kHz is 64 ms, small enough for half-second padding windows to
	// resolve cleanly.
	frameSamples = 1024

	bytesPerSample = 2 // S16LE
)

// FrameStream is an open decode session: a frame source that must be closed
// to release the backend process.
type FrameStream interface {
	audio.Source
	Close() error
}

// OpenFrames starts decoding the file into an ordered stream of S16LE mono
// PCM frames. The decode process runs ahead only as far as the OS pipe
// buffer allows; frames are produced on demand.
//
// The returned stream owns the decoder process and must be closed on every
// path. A file without an audio track fails with ErrNoAudioTrack.
func (b *FFmpeg) OpenFrames(ctx context.Context, path string) (FrameStream, error) {
	probe, err := b.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if !probe.HasAudio {
		return nil, fmt.Errorf("%w: %s", ErrNoAudioTrack, path)
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(b.sampleRate),
		"pipe:1",
	}
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, b.ffmpegPath, args...)

	fr := &frameReader{
		cmd:        cmd,
		args:       args,
		sampleRate: b.sampleRate,
		buf:        make([]byte, frameSamples*bytesPerSample),
	}
	cmd.Stderr = &fr.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout pipe: %w", err)
	}
	fr.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, &FFmpegError{Args: args, Err: err}
	}
	return fr, nil
}

// frameReader turns the decoder's PCM byte stream into timestamped frames.
// Timestamps are derived from the running sample count, so they are exact
// rationals at any sample rate.
type frameReader struct {
	cmd        *exec.Cmd
	args       []string
	stdout     io.ReadCloser
	stderr     bytes.Buffer
	sampleRate int

	buf      []byte
	consumed int64 // samples handed out so far
	closed   bool
}

// Next returns the next decoded frame, or io.EOF after the stream ends and
// the decoder has exited cleanly. The frame payload is a fresh copy; the
// read buffer is reused.
func (r *frameReader) Next(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	n, err := io.ReadFull(r.stdout, r.buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return audio.Frame{}, r.fail(err)
		}
		return audio.Frame{}, r.finish()
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return audio.Frame{}, r.fail(err)
	}

	samples := n / bytesPerSample
	pcm := make([]byte, samples*bytesPerSample)
	copy(pcm, r.buf[:samples*bytesPerSample])

	f := audio.Frame{
		PTS:      timing.FromSamples(r.consumed, r.sampleRate),
		Duration: timing.FromSamples(int64(samples), r.sampleRate),
		Samples:  samples,
		PCM:      pcm,
	}
	r.consumed += int64(samples)
	return f, nil
}

// finish reaps the decoder process at clean end of stream.
func (r *frameReader) finish() error {
	if !r.closed {
		r.closed = true
		if err := r.cmd.Wait(); err != nil {
			return &FFmpegError{Args: r.args, Stderr: r.stderr.String(), Err: err}
		}
	}
	return io.EOF
}

// fail wraps a mid-stream read failure with decoder stderr for context.
func (r *frameReader) fail(err error) error {
	_ = r.Close()
	return &FFmpegError{Args: r.args, Stderr: r.stderr.String(), Err: err}
}

// Close releases the decoder process. Safe to call after Next returned
// io.EOF and safe to call more than once.
func (r *frameReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	_ = r.stdout.Close()
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	_ = r.cmd.Wait()
	return nil
}
