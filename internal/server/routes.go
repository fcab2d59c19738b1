package server

import (
	"log/slog"
	"net/http"
)

// Config holds router-level options.
type Config struct {
	// AllowedOrigins lists CORS origins permitted to call the API.
	AllowedOrigins []string
}

// DefaultConfig allows any origin.
func DefaultConfig() Config {
	return Config{AllowedOrigins: []string{"*"}}
}

// NewRouter builds the HTTP handler: method-routed ServeMux wrapped in the
// recovery, logging, and CORS middleware.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /jobs", h.CreateJob)
	mux.HandleFunc("GET /jobs", h.ListJobs)
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
	mux.HandleFunc("DELETE /jobs/{id}", h.DeleteJob)

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)
	return chain(mux)
}
