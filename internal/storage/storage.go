// Package storage provides temporary and persistent file storage for audio
// artifacts. It defines the Storage interface (port) and implementations
// for local disk and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary and persistent file storage.
// Implementations hold intermediate artifacts (decoded inputs, trimmed
// audio, split segments) during processing and optionally upload finished
// artifacts to S3 for delivery.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// WorkDir creates a fresh working directory for one processing run and
	// returns its path. The caller owns it until CleanupDir.
	WorkDir(ctx context.Context, hint string) (string, error)

	// LoadTemp reads a temporary file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// CleanupDir removes a working directory and everything in it.
	CleanupDir(ctx context.Context, dir string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
