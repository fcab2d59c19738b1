package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be located.
var ErrJobNotFound = errors.New("job not found")

// ErrJobRunning is returned when an operation is rejected because the job
// is still being processed.
var ErrJobRunning = errors.New("job is running")

// Repository defines the persistence port for jobs.
type Repository interface {
	// Save persists a job.
	Save(ctx context.Context, job *Job) error

	// FindByID retrieves a job by its ID.
	// Returns ErrJobNotFound if no job exists with the given ID.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns all jobs.
	List(ctx context.Context) ([]*Job, error)

	// Delete removes a job.
	// Returns ErrJobNotFound if no job exists with the given ID.
	Delete(ctx context.Context, id string) error
}
