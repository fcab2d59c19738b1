package job

import (
	"context"
	"sync"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps jobs in a mutex-guarded map. Every job that crosses
// the repository boundary is cloned, so callers can never mutate stored state
// through a returned pointer.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Job
}

// NewMemoryRepository creates an empty in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*Job)}
}

// Save stores a clone of the job, replacing any previous version.
func (r *MemoryRepository) Save(_ context.Context, j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[j.ID] = j.Clone()
	return nil
}

// FindByID returns a clone of the stored job or ErrJobNotFound.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.byID[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j.Clone(), nil
}

// List returns clones of all stored jobs in no particular order.
func (r *MemoryRepository) List(_ context.Context) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*Job, 0, len(r.byID))
	for _, j := range r.byID {
		jobs = append(jobs, j.Clone())
	}
	return jobs, nil
}

// Delete removes the job or returns ErrJobNotFound.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrJobNotFound
	}
	delete(r.byID, id)
	return nil
}
