package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorage_SaveAndLoadTemp(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	ctx := context.Background()

	path, err := store.SaveTemp(ctx, "audio", bytes.NewReader([]byte("pcm data")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.Contains(filepath.Base(path), "audio") {
		t.Errorf("expected name hint in filename, got %s", path)
	}

	r, err := store.LoadTemp(ctx, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "pcm data" {
		t.Errorf("expected round-trip, got %q", string(data))
	}
}

func TestLocalStorage_WorkDirAndCleanup(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	ctx := context.Background()

	dir, err := store.WorkDir(ctx, "job-123")
	if err != nil {
		t.Fatalf("workdir: %v", err)
	}
	if !strings.Contains(filepath.Base(dir), "job-123") {
		t.Errorf("expected hint in directory name, got %s", dir)
	}

	// Populate and then remove the whole tree
	if err := os.WriteFile(filepath.Join(dir, "segment_000.m4a"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := store.CleanupDir(ctx, dir); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("expected directory removed")
	}
}

func TestLocalStorage_CleanupTemp(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	ctx := context.Background()

	p1, _ := store.SaveTemp(ctx, "a", bytes.NewReader([]byte("1")))
	p2, _ := store.SaveTemp(ctx, "b", bytes.NewReader([]byte("2")))

	// A missing path is not an error
	if err := store.CleanupTemp(ctx, []string{p1, p2, "/nonexistent/file"}); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(p1); !os.IsNotExist(err) {
		t.Error("expected p1 removed")
	}
	if _, err := os.Stat(p2); !os.IsNotExist(err) {
		t.Error("expected p2 removed")
	}
}

func TestLocalStorage_DefaultTempDir(t *testing.T) {
	store, err := NewLocalStorage("")
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	if store.TempDir() == "" {
		t.Error("expected a default temp directory")
	}
}

func TestLocalStorage_UploadToS3NotConfigured(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}

	_, err = store.UploadToS3(context.Background(), "key", bytes.NewReader(nil))
	if !errors.Is(err, ErrS3NotConfigured) {
		t.Errorf("expected ErrS3NotConfigured, got %v", err)
	}
}

func TestLocalStorage_ContextCancelled(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.SaveTemp(ctx, "a", bytes.NewReader(nil)); err == nil {
		t.Error("expected error for cancelled context")
	}
	if _, err := store.WorkDir(ctx, "a"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
