package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/pausecut/pausecut-api/internal/audio"
)

// encodeQueueDepth bounds how many frames may sit between the pump and the
// encoder process. Keeps decode and encode overlapped without unbounded
// buffering.
const encodeQueueDepth = 16

// defaultBitrate is the AAC bitrate for produced artifacts. Mono speech.
const defaultBitrate = "64k"

// ErrSinkFinished is returned when writing to a sink that was already
// committed or aborted.
var ErrSinkFinished = errors.New("media: artifact sink already finished")

// ArtifactSink is an open encode session. It accepts a paced frame stream
// and must reach exactly one terminal state: Commit on success, Abort on
// any failure or cancellation. Abort removes the partial output file.
type ArtifactSink interface {
	audio.Sink
	// Commit finishes the artifact and returns its byte size.
	Commit(ctx context.Context) (int64, error)
	// Abort kills the encoder and deletes the partial artifact. Safe to
	// call after a failed Commit and safe to call more than once.
	Abort()
}

// StartArtifact starts an encoder writing an AAC/M4A artifact at dst.
// Frames written to the sink are fed to the encoder's stdin as raw PCM; the
// sink's Ready blocks while the bounded frame queue is full, which is the
// backpressure signal the pump waits on.
func (b *FFmpeg) StartArtifact(ctx context.Context, dst string) (ArtifactSink, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(b.sampleRate),
		"-i", "pipe:0",
		"-c:a", "aac",
		"-b:a", defaultBitrate,
		"-y",
		dst,
	}
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, b.ffmpegPath, args...)

	w := &artifactWriter{
		cmd:     cmd,
		args:    args,
		dst:     dst,
		queue:   make(chan []byte, encodeQueueDepth),
		slots:   make(chan struct{}, encodeQueueDepth),
		drained: make(chan struct{}),
		failed:  make(chan struct{}),
	}
	for i := 0; i < encodeQueueDepth; i++ {
		w.slots <- struct{}{}
	}
	cmd.Stderr = &w.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin pipe: %w", err)
	}
	w.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, &FFmpegError{Args: args, Err: err}
	}
	go w.drain()
	return w, nil
}

// artifactWriter feeds queued PCM into the encoder process from a dedicated
// goroutine so that Write never blocks on the pipe itself; capacity is
// expressed only through the bounded queue that Ready waits on.
type artifactWriter struct {
	cmd    *exec.Cmd
	args   []string
	dst    string
	stdin  io.WriteCloser
	stderr bytes.Buffer

	queue   chan []byte
	slots   chan struct{} // free-slot tokens; one per queue position
	drained chan struct{} // closed when the drain goroutine exits

	holding bool // a slot token acquired by Ready, not yet spent by Write

	mu       sync.Mutex
	failed   chan struct{} // closed on first pipe failure
	pipeErr  error
	finished bool
}

// drain moves queued payloads into the encoder's stdin. On a write failure
// it records the error and keeps consuming so producers never deadlock.
func (w *artifactWriter) drain() {
	defer close(w.drained)
	for buf := range w.queue {
		if w.failedErr() == nil {
			if _, err := w.stdin.Write(buf); err != nil {
				w.setFailed(err)
			}
		}
		select {
		case w.slots <- struct{}{}:
		default:
		}
	}
	_ = w.stdin.Close()
}

func (w *artifactWriter) setFailed(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pipeErr == nil {
		w.pipeErr = err
		close(w.failed)
	}
}

func (w *artifactWriter) failedErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pipeErr
}

// Ready blocks until a queue slot is free, the sink has failed, or the
// context is cancelled. Calling Ready again before Write does not consume
// another slot.
func (w *artifactWriter) Ready(ctx context.Context) error {
	w.mu.Lock()
	finished := w.finished
	w.mu.Unlock()
	if finished {
		return ErrSinkFinished
	}
	if w.holding {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.failed:
		return w.wrapPipeErr()
	case <-w.slots:
		w.holding = true
		return nil
	}
}

// Write enqueues one frame's payload for encoding, spending the slot
// acquired by Ready. Without a prior Ready it acquires one itself, blocking
// if the queue is full.
func (w *artifactWriter) Write(ctx context.Context, f audio.Frame) error {
	if !w.holding {
		if err := w.Ready(ctx); err != nil {
			return err
		}
	}
	w.holding = false
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.failed:
		return w.wrapPipeErr()
	case w.queue <- f.PCM:
		return nil
	}
}

// Commit closes the stream, waits for the encoder to exit, and verifies the
// artifact. A zero-byte output is a failure: the file is removed and
// ErrEmptyArtifact returned.
func (w *artifactWriter) Commit(ctx context.Context) (int64, error) {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return 0, ErrSinkFinished
	}
	w.finished = true
	w.mu.Unlock()

	close(w.queue)
	select {
	case <-w.drained:
	case <-ctx.Done():
		w.kill()
		return 0, ctx.Err()
	}

	waitErr := w.cmd.Wait()
	if err := w.failedErr(); err != nil {
		w.remove()
		return 0, w.wrapPipeErr()
	}
	if waitErr != nil {
		w.remove()
		return 0, &FFmpegError{Args: w.args, Stderr: w.stderr.String(), Err: waitErr}
	}

	info, err := os.Stat(w.dst)
	if err != nil {
		return 0, fmt.Errorf("stat artifact: %w", err)
	}
	if info.Size() == 0 {
		w.remove()
		return 0, fmt.Errorf("%w: %s", ErrEmptyArtifact, w.dst)
	}
	return info.Size(), nil
}

// Abort tears the session down and removes the partial artifact.
func (w *artifactWriter) Abort() {
	w.mu.Lock()
	alreadyFinished := w.finished
	w.finished = true
	w.mu.Unlock()

	if !alreadyFinished {
		close(w.queue)
	}
	w.kill()
	<-w.drained
	w.remove()
}

func (w *artifactWriter) kill() {
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	_ = w.cmd.Wait()
}

func (w *artifactWriter) remove() {
	_ = os.Remove(w.dst)
}

func (w *artifactWriter) wrapPipeErr() error {
	return &FFmpegError{Args: w.args, Stderr: w.stderr.String(), Err: w.failedErr()}
}
