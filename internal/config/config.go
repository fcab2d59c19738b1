// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/pausecut/pausecut-api/internal/pipeline"
	"github.com/pausecut/pausecut-api/internal/timing"
)

// Static errors for configuration validation.
var (
	// ErrInvalidThreshold is returned when the silence threshold is not a
	// negative dBFS value.
	ErrInvalidThreshold = errors.New("config: SILENCE_THRESHOLD_DB must be negative")
	// ErrInvalidPadding is returned when padding exceeds the minimum
	// silence duration it pads.
	ErrInvalidPadding = errors.New("config: padding must not exceed MIN_SILENCE_SEC")
	// ErrInvalidSegment is returned when MIN_SEGMENT_SEC is not positive.
	ErrInvalidSegment = errors.New("config: MIN_SEGMENT_SEC must be positive")
	// ErrInvalidPayload is returned when MAX_PAYLOAD_BYTES is not positive.
	ErrInvalidPayload = errors.New("config: MAX_PAYLOAD_BYTES must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/pausecut" json:"temp_dir"`

	// Pipeline settings
	SilenceThresholdDB float64 `env:"SILENCE_THRESHOLD_DB, default=-35.0" json:"silence_threshold_db"`
	MinSilenceSec      float64 `env:"MIN_SILENCE_SEC, default=1.0" json:"min_silence_sec"`
	LeadingPaddingSec  float64 `env:"LEADING_PADDING_SEC, default=0.5" json:"leading_padding_sec"`
	TrailingPaddingSec float64 `env:"TRAILING_PADDING_SEC, default=0.5" json:"trailing_padding_sec"`
	MaxSplitBacktrack  float64 `env:"MAX_SPLIT_BACKTRACK_SEC, default=30" json:"max_split_backtrack_sec"`
	MinSegmentSec      float64 `env:"MIN_SEGMENT_SEC, default=0.5" json:"min_segment_sec"`
	MaxPayloadBytes    int64   `env:"MAX_PAYLOAD_BYTES, default=26214400" json:"max_payload_bytes"`
	SampleRate         int     `env:"SAMPLE_RATE, default=16000" json:"sample_rate"`

	// Transcription client settings (optional)
	TranscribeURL    string `env:"TRANSCRIBE_URL" json:"transcribe_url,omitempty"`
	TranscribeAPIKey string `env:"TRANSCRIBE_API_KEY" json:"-"` // Masked in JSON

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// TranscribeEnabled returns true if a transcription endpoint is configured.
func (c *Config) TranscribeEnabled() bool {
	return c.TranscribeURL != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the pipeline thresholds are coherent.
func (c *Config) Validate() error {
	if c.SilenceThresholdDB >= 0 {
		return ErrInvalidThreshold
	}
	if c.LeadingPaddingSec > c.MinSilenceSec || c.TrailingPaddingSec > c.MinSilenceSec {
		return ErrInvalidPadding
	}
	if c.MinSegmentSec <= 0 {
		return ErrInvalidSegment
	}
	if c.MaxPayloadBytes <= 0 {
		return ErrInvalidPayload
	}
	return nil
}

// PipelineConfig converts the flat environment values into the pipeline's
// exact-rational configuration.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		SilenceThresholdDB: c.SilenceThresholdDB,
		MinSilence:         timing.FromSeconds(c.MinSilenceSec),
		LeadPadding:        timing.FromSeconds(c.LeadingPaddingSec),
		TrailPadding:       timing.FromSeconds(c.TrailingPaddingSec),
		MaxBacktrack:       timing.FromSeconds(c.MaxSplitBacktrack),
		MinSegment:         timing.FromSeconds(c.MinSegmentSec),
		MaxPayloadBytes:    c.MaxPayloadBytes,
	}
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive
// values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, SilenceThresholdDB: %.1f, MinSilenceSec: %.2f, LeadingPaddingSec: %.2f, TrailingPaddingSec: %.2f, MaxSplitBacktrack: %.1f, MinSegmentSec: %.2f, MaxPayloadBytes: %d, SampleRate: %d, TranscribeURL: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.SilenceThresholdDB,
		c.MinSilenceSec,
		c.LeadingPaddingSec,
		c.TrailingPaddingSec,
		c.MaxSplitBacktrack,
		c.MinSegmentSec,
		c.MaxPayloadBytes,
		c.SampleRate,
		c.TranscribeURL,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
