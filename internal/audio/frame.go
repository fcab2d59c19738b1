// Package audio implements the silence-removal core: frame classification,
// the re-timing trimmer, the split-point planner, and the paced pump that
// feeds an encoder under backpressure. All time arithmetic is exact; the
// package never touches ffmpeg itself and is fully testable with synthetic
// frames.
package audio

import (
	"context"
	"fmt"

	"github.com/pausecut/pausecut-api/internal/timing"
)

// Frame is a single chunk of decoded S16LE mono PCM with its presentation
// time. Frames are immutable once produced; the trimmer re-emits new Frame
// values with adjusted timestamps rather than mutating them.
type Frame struct {
	// PTS is the presentation time of the first sample.
	PTS timing.Ratio
	// Duration is the frame length (Samples / sample rate).
	Duration timing.Ratio
	// Samples is the number of PCM samples in the payload.
	Samples int
	// PCM is the raw S16LE payload. Never modified after creation.
	PCM []byte
}

// End returns the presentation time just past the last sample.
func (f Frame) End() timing.Ratio {
	return f.PTS.Add(f.Duration)
}

// Source yields frames in strict presentation order.
// Next returns io.EOF after the last frame.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// ReaderError wraps a terminal failure on the decode side of the pipeline.
type ReaderError struct {
	Err error
}

func (e *ReaderError) Error() string { return fmt.Sprintf("audio: reader failed: %v", e.Err) }
func (e *ReaderError) Unwrap() error { return e.Err }

// WriterError wraps a terminal failure on the encode side of the pipeline.
type WriterError struct {
	Err error
}

func (e *WriterError) Error() string { return fmt.Sprintf("audio: writer failed: %v", e.Err) }
func (e *WriterError) Unwrap() error { return e.Err }
