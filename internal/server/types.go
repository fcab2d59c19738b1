// Package server provides the HTTP server for the PauseCut API.
// It includes handlers, middleware, routes, and DTOs separated from domain
// types.
package server

// CreateJobRequest is the HTTP request body for creating a new job.
type CreateJobRequest struct {
	// AudioBase64 is the base64-encoded source audio.
	AudioBase64 string `json:"audio_base64" validate:"required,base64"`
	// PushToS3 indicates whether to upload the produced artifacts to S3.
	PushToS3 bool `json:"push_to_s3"`
	// Transcribe indicates whether to submit artifacts for transcription.
	Transcribe bool `json:"transcribe"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// SegmentResponse describes one produced artifact.
type SegmentResponse struct {
	// Index is the position of this segment in the output sequence.
	Index int `json:"index"`
	// Bytes is the artifact size.
	Bytes int64 `json:"bytes"`
	// StartSec and DurationSec locate the segment within its source.
	StartSec    float64 `json:"start_sec"`
	DurationSec float64 `json:"duration_sec"`
	// URL is the S3 location if the segment was uploaded.
	URL string `json:"url,omitempty"`
	// Transcript is the transcription result if requested.
	Transcript string `json:"transcript,omitempty"`
	// AudioBase64 is the base64-encoded artifact content, included for
	// completed jobs that were not pushed to S3.
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current job status.
	Status string `json:"status"`
	// Error contains any error message if the job failed.
	Error string `json:"error,omitempty"`
	// DurationSec is the probed duration of the source audio.
	DurationSec float64 `json:"duration_sec,omitempty"`
	// Trimmed reports whether silence removal was applied.
	Trimmed bool `json:"trimmed"`
	// Split reports whether the output was cut into two segments.
	Split bool `json:"split"`
	// SilenceDerived reports whether a split landed on a real pause.
	SilenceDerived bool `json:"silence_derived,omitempty"`
	// Skipped reports that the input was too short to process.
	Skipped bool `json:"skipped,omitempty"`
	// Segments holds the produced artifacts for completed jobs.
	Segments []SegmentResponse `json:"segments,omitempty"`
}

// JobSummary is one entry in the job list response.
type JobSummary struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current job status.
	Status string `json:"status"`
	// CreatedAt is when the job was created, RFC 3339.
	CreatedAt string `json:"created_at"`
	// Segments is the number of produced artifacts.
	Segments int `json:"segments"`
}

// ListJobsResponse is the HTTP response for listing jobs.
type ListJobsResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
