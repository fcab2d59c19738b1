// Package job provides the Job aggregate for audio post-processing runs.
// It includes the Job entity with state machine transitions, repository
// interfaces for persistence, and the ProcessAudioService use case.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/pausecut/pausecut-api/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting to be processed.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the job is being processed.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the job encountered an error during execution.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was cancelled before completion.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is
// attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Segment records one output artifact of a processing run.
type Segment struct {
	// Index is the position of this segment in the output sequence.
	Index int
	// Path is the artifact location on disk.
	Path string
	// Bytes is the artifact size.
	Bytes int64
	// StartSec and DurationSec locate the segment within its source.
	StartSec    float64
	DurationSec float64
	// URL is the S3 location if the segment was uploaded.
	URL string
	// Transcript is the transcription result if a client was configured.
	Transcript string
}

// Job represents one audio post-processing run: trim, optional split,
// optional upload and transcription.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// Segments contains the produced artifacts, in order.
	Segments []Segment
	// Error contains any error message if the job failed.
	Error string
	// InputPath is the path to the saved source audio.
	InputPath string
	// DurationSec is the probed duration of the source audio.
	DurationSec float64
	// Trimmed reports whether the silence-trimmed artifact was used.
	Trimmed bool
	// Split reports whether the output was cut into two segments.
	Split bool
	// SilenceDerived reports whether a split landed on a real pause.
	SilenceDerived bool
	// Skipped reports that the input was too short to process.
	Skipped bool
	// PushToS3 indicates whether to upload the results to S3.
	PushToS3 bool
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New() *Job {
	now := time.Now()
	return &Job{
		ID:        id.Generate(),
		Status:    StatusInQueue,
		Segments:  make([]Segment, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE
// status. Useful for testing or when the ID is externally generated.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusInQueue,
		Segments:  make([]Segment, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	// Set timestamps based on state
	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED state.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, StatusFailed) {
		return ErrInvalidTransition
	}

	j.Status = StatusFailed
	j.Error = errMsg
	j.UpdatedAt = time.Now()
	j.CompletedAt = j.UpdatedAt
	return nil
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// IsTerminal reports whether the job is in a final state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of the job, safe to hand across goroutines.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	clone := &Job{
		ID:             j.ID,
		Status:         j.Status,
		Segments:       make([]Segment, len(j.Segments)),
		Error:          j.Error,
		InputPath:      j.InputPath,
		DurationSec:    j.DurationSec,
		Trimmed:        j.Trimmed,
		Split:          j.Split,
		SilenceDerived: j.SilenceDerived,
		Skipped:        j.Skipped,
		PushToS3:       j.PushToS3,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
	}
	copy(clone.Segments, j.Segments)
	return clone
}
