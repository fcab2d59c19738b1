package job

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pausecut/pausecut-api/internal/pipeline"
	"github.com/pausecut/pausecut-api/internal/storage"
	"github.com/pausecut/pausecut-api/internal/transcribe"
)

// ProcessAudioInput contains the input parameters for audio processing.
type ProcessAudioInput struct {
	// AudioBase64 is the base64-encoded source audio.
	AudioBase64 string
	// PushToS3 indicates whether to upload the produced artifacts to S3.
	PushToS3 bool
	// Transcribe indicates whether to submit artifacts for transcription.
	Transcribe bool
}

// Pipeline is the processing port the service drives. Satisfied by
// *pipeline.Service.
type Pipeline interface {
	Process(ctx context.Context, inputPath, workDir string) (*pipeline.Result, error)
}

// ProcessAudioService orchestrates one audio post-processing job: save the
// input, run trim and split, optionally upload and transcribe, and track
// everything on the Job aggregate.
type ProcessAudioService struct {
	repo        Repository
	pipe        Pipeline
	store       storage.Storage
	transcriber transcribe.Client
	logger      *slog.Logger
}

// ServiceOption configures a ProcessAudioService.
type ServiceOption func(*ProcessAudioService)

// WithTranscriber sets the transcription client. Without one, transcription
// requests are ignored.
func WithTranscriber(c transcribe.Client) ServiceOption {
	return func(s *ProcessAudioService) {
		s.transcriber = c
	}
}

// NewProcessAudioService creates a new ProcessAudioService.
func NewProcessAudioService(repo Repository, pipe Pipeline, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *ProcessAudioService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ProcessAudioService{
		repo:   repo,
		pipe:   pipe,
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob creates a new job and persists it in IN_QUEUE status.
func (s *ProcessAudioService) CreateJob(ctx context.Context, input ProcessAudioInput) (*Job, error) {
	job := New()
	job.PushToS3 = input.PushToS3

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.Bool("push_to_s3", input.PushToS3),
		slog.Bool("transcribe", input.Transcribe),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return job, nil
}

// GetJob retrieves a job by ID.
func (s *ProcessAudioService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all known jobs.
func (s *ProcessAudioService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// DeleteJob removes a job and its on-disk artifacts. A job that is still
// running cannot be deleted.
func (s *ProcessAudioService) DeleteJob(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == StatusRunning {
		return fmt.Errorf("delete job %s: %w", id, ErrJobRunning)
	}

	if job.InputPath != "" {
		if derr := s.store.CleanupDir(ctx, filepath.Dir(job.InputPath)); derr != nil {
			s.logger.Warn("failed to clean up job directory",
				slog.String("job_id", id),
				slog.String("error", derr.Error()),
			)
		}
	}

	return s.repo.Delete(ctx, id)
}

// ProcessExistingJob runs the pipeline for an already-created job.
// Temporary files for the run are cleaned up on every path except the
// produced artifacts, which the job references until it is deleted.
func (s *ProcessAudioService) ProcessExistingJob(ctx context.Context, jobID string, input ProcessAudioInput) (*Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := job.Start(); err != nil {
		return nil, fmt.Errorf("start job %s: %w", jobID, err)
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}

	result, err := s.process(ctx, job, input)
	if err != nil {
		if ctx.Err() != nil {
			_ = job.Cancel()
		} else {
			_ = job.Fail(err.Error())
		}
		if serr := s.repo.Save(ctx, job); serr != nil {
			s.logger.Error("failed to save failed job",
				slog.String("job_id", jobID),
				slog.String("error", serr.Error()),
			)
		}
		return job, err
	}

	s.recordResult(job, result)
	if err := job.Complete(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("job completed",
		slog.String("job_id", job.ID),
		slog.Int("segments", len(job.Segments)),
		slog.Bool("trimmed", job.Trimmed),
		slog.Bool("split", job.Split),
	)
	return job, nil
}

// process decodes the input, runs the pipeline, and applies the optional
// upload and transcription steps.
func (s *ProcessAudioService) process(ctx context.Context, job *Job, input ProcessAudioInput) (*pipeline.Result, error) {
	audioBytes, err := base64.StdEncoding.DecodeString(input.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}

	workDir, err := s.store.WorkDir(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	inputPath := filepath.Join(workDir, "input.audio")
	if err := os.WriteFile(inputPath, audioBytes, 0600); err != nil {
		_ = s.store.CleanupDir(ctx, workDir)
		return nil, fmt.Errorf("write input audio: %w", err)
	}
	job.InputPath = inputPath

	result, err := s.pipe.Process(ctx, inputPath, workDir)
	if err != nil {
		_ = s.store.CleanupDir(ctx, workDir)
		return nil, err
	}

	for i := range result.Artifacts {
		art := &result.Artifacts[i]

		if input.PushToS3 {
			if url, uerr := s.upload(ctx, job.ID, art.Path); uerr != nil {
				s.logger.Warn("artifact upload failed",
					slog.String("job_id", job.ID),
					slog.Int("segment", i),
					slog.String("error", uerr.Error()),
				)
			} else {
				artifactURLs(job, i, url)
			}
		}

		if input.Transcribe && s.transcriber != nil {
			text, terr := s.transcriber.Transcribe(ctx, art.Path)
			if terr != nil {
				s.logger.Warn("transcription failed",
					slog.String("job_id", job.ID),
					slog.Int("segment", i),
					slog.String("error", terr.Error()),
				)
			} else {
				segmentTranscripts(job, i, text)
			}
		}
	}

	return result, nil
}

// upload pushes one artifact to S3 under a key derived from the job.
func (s *ProcessAudioService) upload(ctx context.Context, jobID string, path string) (string, error) {
	f, err := s.store.LoadTemp(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	key := fmt.Sprintf("%s/%s", jobID, filepath.Base(path))
	return s.store.UploadToS3(ctx, key, f)
}

// recordResult copies the pipeline result onto the job aggregate.
func (s *ProcessAudioService) recordResult(job *Job, result *pipeline.Result) {
	job.DurationSec = result.SourceDuration.Seconds()
	job.Trimmed = result.Trimmed
	job.Split = result.Split
	job.SilenceDerived = result.SilenceDerived
	job.Skipped = result.Skipped

	for i, art := range result.Artifacts {
		seg := Segment{
			Index:       i,
			Path:        art.Path,
			Bytes:       art.Bytes,
			StartSec:    art.Start.Seconds(),
			DurationSec: art.Duration.Seconds(),
		}
		if i < len(job.Segments) {
			seg.URL = job.Segments[i].URL
			seg.Transcript = job.Segments[i].Transcript
			job.Segments[i] = seg
		} else {
			job.Segments = append(job.Segments, seg)
		}
	}
}

// artifactURLs stores an upload URL on the job's segment record, creating
// the record if the pipeline result has not been copied over yet.
func artifactURLs(job *Job, index int, url string) {
	ensureSegment(job, index)
	job.Segments[index].URL = url
}

// segmentTranscripts stores a transcript on the job's segment record.
func segmentTranscripts(job *Job, index int, text string) {
	ensureSegment(job, index)
	job.Segments[index].Transcript = text
}

func ensureSegment(job *Job, index int) {
	for len(job.Segments) <= index {
		job.Segments = append(job.Segments, Segment{Index: len(job.Segments)})
	}
}
