package job

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepository_SaveAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	job := NewWithID("job-1")
	if err := repo.Save(ctx, job); err != nil {
		t.Fatalf("save: %v", err)
	}

	found, err := repo.FindByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != "job-1" {
		t.Errorf("expected job-1, got %s", found.ID)
	}
}

func TestMemoryRepository_FindNotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.FindByID(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryRepository_IsolatesStoredJob(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	job := NewWithID("job-1")
	_ = repo.Save(ctx, job)

	// Mutating the original after save must not affect the stored copy
	job.Error = "mutated"
	found, _ := repo.FindByID(ctx, "job-1")
	if found.Error == "mutated" {
		t.Error("repository stored a shared reference, not a clone")
	}

	// Mutating a found copy must not affect the stored copy
	found.Error = "also mutated"
	again, _ := repo.FindByID(ctx, "job-1")
	if again.Error != "" {
		t.Error("repository returned a shared reference, not a clone")
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_ = repo.Save(ctx, NewWithID("a"))
	_ = repo.Save(ctx, NewWithID("b"))

	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(jobs))
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_ = repo.Save(ctx, NewWithID("a"))

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, "a"); !errors.Is(err, ErrJobNotFound) {
		t.Error("expected job gone after delete")
	}

	if err := repo.Delete(ctx, "a"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound deleting twice, got %v", err)
	}
}
