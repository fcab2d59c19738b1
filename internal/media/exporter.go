package media

import (
	"context"
	"fmt"
	"os"

	"github.com/pausecut/pausecut-api/internal/timing"
)

// ExportError wraps a failed range export.
type ExportError struct {
	Src string
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("media: export of %s failed: %v", e.Src, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ExportRange copies the time range [start, start+dur) of src into dst
// without re-encoding, and returns the artifact's byte size. Exports are
// independent: exporting two adjacent ranges reconstructs the original
// signal with no additional lossy step.
//
// A zero-byte result is a failure; the file is removed and ExportError
// wrapping ErrEmptyArtifact returned.
func (b *FFmpeg) ExportRange(ctx context.Context, src, dst string, start, dur timing.Ratio) (int64, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(dur),
		"-i", src,
		"-c", "copy",
		dst,
	}
	if err := b.runFFmpeg(ctx, args); err != nil {
		_ = os.Remove(dst)
		return 0, &ExportError{Src: src, Err: err}
	}

	info, err := os.Stat(dst)
	if err != nil {
		return 0, &ExportError{Src: src, Err: err}
	}
	if info.Size() == 0 {
		_ = os.Remove(dst)
		return 0, &ExportError{Src: src, Err: fmt.Errorf("%w: %s", ErrEmptyArtifact, dst)}
	}
	return info.Size(), nil
}
