package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrS3NotConfigured is returned for S3 operations on a storage backend
// without an S3 bucket.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// LocalStorage keeps intermediate artifacts on local disk under a single
// temp directory. S3 delivery is only available through the S3Storage
// wrapper.
type LocalStorage struct {
	tempDir string
}

// NewLocalStorage creates the temp directory if needed and returns a store
// rooted there. An empty tempDir falls back to a "pausecut" directory under
// the system temp dir.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "pausecut")
	}
	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	return &LocalStorage{tempDir: tempDir}, nil
}

// TempDir returns the root directory for temporary files.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
		return nil
	}
}

// SaveTemp writes data to a fresh file named after the hint and returns its
// path.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(s.tempDir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// WorkDir creates a fresh working directory for one processing run. The
// caller owns it until CleanupDir.
func (s *LocalStorage) WorkDir(ctx context.Context, hint string) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp(s.tempDir, hint+"_*")
	if err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	return dir, nil
}

// LoadTemp opens a previously saved file. The caller closes the reader.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}
	return f, nil
}

// CleanupTemp removes the given files. Missing files are not an error, and
// cleanup continues past failures, reporting the first one.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := checkCtx(ctx); err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
		}
	}
	return firstErr
}

// CleanupDir removes a working directory and everything in it.
func (s *LocalStorage) CleanupDir(ctx context.Context, dir string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove work directory %s: %w", dir, err)
	}
	return nil
}

// UploadToS3 always fails on a plain LocalStorage.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
