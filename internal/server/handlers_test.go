package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pausecut/pausecut-api/internal/job"
	"github.com/pausecut/pausecut-api/internal/pipeline"
	"github.com/pausecut/pausecut-api/internal/storage"
	"github.com/pausecut/pausecut-api/internal/timing"
)

// fakePipeline implements job.Pipeline for handler tests, producing one real
// artifact file per run.
type fakePipeline struct {
	err error
}

func (p *fakePipeline) Process(_ context.Context, _, workDir string) (*pipeline.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	artifactPath := filepath.Join(workDir, "trimmed.m4a")
	if err := os.WriteFile(artifactPath, []byte("fake-audio"), 0600); err != nil {
		return nil, err
	}
	return &pipeline.Result{
		Trimmed:        true,
		SourceDuration: timing.New(10, 1),
		Artifacts: []pipeline.Artifact{
			{Path: artifactPath, Bytes: 10, Duration: timing.New(8, 1)},
		},
	}, nil
}

func newTestHandlers(t *testing.T) (*Handlers, *job.ProcessAudioService, job.Repository) {
	t.Helper()
	repo := job.NewMemoryRepository()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	svc := job.NewProcessAudioService(repo, &fakePipeline{}, store, logger)

	// Disable async processing so tests drive it explicitly
	handlers := NewHandlers(svc, logger, WithAsyncProcessing(false))
	return handlers, svc, repo
}

func validCreateBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(CreateJobRequest{
		AudioBase64: base64.StdEncoding.EncodeToString([]byte("some audio")),
	})
	require.NoError(t, err)
	return body
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateJob_Success(t *testing.T) {
	h, _, repo := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(validCreateBody(t)))
	rec := httptest.NewRecorder()
	h.CreateJob(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp CreateJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, string(job.StatusInQueue), resp.Status)

	_, err := repo.FindByID(context.Background(), resp.ID)
	assert.NoError(t, err)
}

func TestCreateJob_InvalidJSON(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.CreateJob(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_JSON", resp.Code)
}

func TestCreateJob_MissingAudio(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	body, _ := json.Marshal(CreateJobRequest{})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateJob(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
}

func TestCreateJob_InvalidBase64(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	body, _ := json.Marshal(CreateJobRequest{AudioBase64: "!!! not base64 !!!"})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateJob(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	h.GetJob(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "JOB_NOT_FOUND", resp.Code)
}

func TestGetJob_Pending(t *testing.T) {
	h, svc, _ := newTestHandlers(t)

	created, err := svc.CreateJob(context.Background(), job.ProcessAudioInput{AudioBase64: "dGVzdA=="})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	rec := httptest.NewRecorder()
	h.GetJob(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
	assert.Equal(t, string(job.StatusInQueue), resp.Status)
	assert.Empty(t, resp.Segments)
}

func TestGetJob_CompletedEmbedsArtifact(t *testing.T) {
	h, svc, _ := newTestHandlers(t)
	ctx := context.Background()

	input := job.ProcessAudioInput{AudioBase64: base64.StdEncoding.EncodeToString([]byte("audio"))}
	created, err := svc.CreateJob(ctx, input)
	require.NoError(t, err)
	_, err = svc.ProcessExistingJob(ctx, created.ID, input)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	rec := httptest.NewRecorder()
	h.GetJob(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(job.StatusCompleted), resp.Status)
	assert.True(t, resp.Trimmed)
	assert.InDelta(t, 10.0, resp.DurationSec, 0.001)

	require.Len(t, resp.Segments, 1)
	seg := resp.Segments[0]
	assert.Equal(t, int64(10), seg.Bytes)
	assert.InDelta(t, 8.0, seg.DurationSec, 0.001)

	decoded, err := base64.StdEncoding.DecodeString(seg.AudioBase64)
	require.NoError(t, err)
	assert.Equal(t, "fake-audio", string(decoded))
}

func TestListJobs(t *testing.T) {
	h, svc, _ := newTestHandlers(t)
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, job.ProcessAudioInput{AudioBase64: "dGVzdA=="})
	require.NoError(t, err)
	_, err = svc.CreateJob(ctx, job.ProcessAudioInput{AudioBase64: "dGVzdA=="})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListJobsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Jobs, 2)
}

func TestDeleteJob(t *testing.T) {
	h, svc, repo := newTestHandlers(t)
	ctx := context.Background()

	input := job.ProcessAudioInput{AudioBase64: base64.StdEncoding.EncodeToString([]byte("audio"))}
	created, err := svc.CreateJob(ctx, input)
	require.NoError(t, err)
	_, err = svc.ProcessExistingJob(ctx, created.ID, input)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/jobs/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	rec := httptest.NewRecorder()
	h.DeleteJob(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, job.ErrJobNotFound)
}

func TestDeleteJob_NotFound(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodDelete, "/jobs/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	h.DeleteJob(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Integration(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	router := NewRouter(h, logger, DefaultConfig())

	// Method routing
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// Path value extraction through the mux
	req = httptest.NewRequest(http.MethodGet, "/jobs/nope", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// CORS preflight short-circuits
	req = httptest.NewRequest(http.MethodOptions, "/jobs", nil)
	req.Header.Set("Origin", "https://example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
