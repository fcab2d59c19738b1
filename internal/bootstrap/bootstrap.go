// Package bootstrap provides dependency initialization for the PauseCut API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/pausecut/pausecut-api/internal/config"
	"github.com/pausecut/pausecut-api/internal/job"
	"github.com/pausecut/pausecut-api/internal/media"
	"github.com/pausecut/pausecut-api/internal/pipeline"
	"github.com/pausecut/pausecut-api/internal/storage"
	"github.com/pausecut/pausecut-api/internal/transcribe"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	AudioService *job.ProcessAudioService
}

// NewDependencies creates and initializes all dependencies for the
// application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the ffmpeg backend and the processing pipeline
	backend := media.NewFFmpeg("", "", cfg.SampleRate)
	pipe := pipeline.NewService(backend, cfg.PipelineConfig(), logger)

	// Initialize job repository
	repo := job.NewMemoryRepository()

	var opts []job.ServiceOption
	if cfg.TranscribeEnabled() {
		client, cerr := transcribe.NewHTTPClient(cfg.TranscribeURL, transcribe.WithAPIKey(cfg.TranscribeAPIKey))
		if cerr != nil {
			return nil, fmt.Errorf("create transcription client: %w", cerr)
		}
		opts = append(opts, job.WithTranscriber(client))
		logger.Info("transcription client configured",
			slog.String("url", cfg.TranscribeURL),
		)
	}

	svc := job.NewProcessAudioService(repo, pipe, store, logger, opts...)

	return &Dependencies{
		AudioService: svc,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
