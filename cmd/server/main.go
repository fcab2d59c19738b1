// Package main provides the entry point for the PauseCut API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pausecut/pausecut-api/internal/bootstrap"
	"github.com/pausecut/pausecut-api/internal/config"
	"github.com/pausecut/pausecut-api/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting PauseCut API",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("temp_dir", cfg.TempDir),
		slog.Float64("silence_threshold_db", cfg.SilenceThresholdDB),
		slog.Float64("min_silence_sec", cfg.MinSilenceSec),
		slog.Int64("max_payload_bytes", cfg.MaxPayloadBytes),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
		slog.Bool("transcribe_enabled", cfg.TranscribeEnabled()),
	)

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	handlers := server.NewHandlers(deps.AudioService, logger)
	router := server.NewRouter(handlers, logger, server.DefaultConfig())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Allow for long audio processing
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
