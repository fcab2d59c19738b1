package audio

import (
	"context"
	"errors"
	"io"
)

// Sink is the demand-driven output boundary. Ready blocks until the sink
// can take another frame, providing the backpressure contract: the pump
// produces at most one frame per readiness signal.
type Sink interface {
	// Ready blocks until the sink can accept another frame, the context is
	// cancelled, or the sink has failed terminally.
	Ready(ctx context.Context) error
	// Write hands one frame to the sink. Write after a successful Ready
	// does not block on capacity.
	Write(ctx context.Context, f Frame) error
}

// Pump drives frames from src into sink until the source is exhausted.
// The loop is plain and readiness-gated: wait until the sink wants more,
// produce exactly one frame, hand it over. Frames flow in strict source
// order.
//
// Source failures are returned wrapped in *ReaderError, sink failures in
// *WriterError, so the caller can tell which side of the pipeline died.
// Cancellation surfaces as the context error from whichever side saw it
// first.
func Pump(ctx context.Context, src Source, sink Sink) error {
	for {
		if err := sink.Ready(ctx); err != nil {
			return wrapWriter(ctx, err)
		}
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return wrapReader(ctx, err)
		}
		if err := sink.Write(ctx, f); err != nil {
			return wrapWriter(ctx, err)
		}
	}
}

func wrapReader(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	var re *ReaderError
	if errors.As(err, &re) {
		return err
	}
	return &ReaderError{Err: err}
}

func wrapWriter(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	var we *WriterError
	if errors.As(err, &we) {
		return err
	}
	return &WriterError{Err: err}
}
