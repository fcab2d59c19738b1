// Package transcribe provides the narrow client port for the downstream
// transcription API and an HTTP multipart implementation. Network timeouts
// live here; the audio core has no network I/O.
package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Static errors for transcription client operations.
var (
	// ErrBaseURLRequired is returned when the base URL is not provided.
	ErrBaseURLRequired = errors.New("transcribe: base URL is required")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("transcribe: server error")
	// ErrRequestFailed is returned when the request fails with a non-2xx
	// status code.
	ErrRequestFailed = errors.New("transcribe: request failed")
)

// Client defines the interface for submitting an audio artifact for
// transcription.
type Client interface {
	// Transcribe uploads the audio file and returns the transcript text.
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// HTTPClient is the HTTP implementation of the Client interface. It posts
// the artifact as a multipart form to an OpenAI-compatible transcription
// endpoint.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the bearer token for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithModel sets the transcription model name sent with each request.
func WithModel(model string) ClientOption {
	return func(hc *HTTPClient) {
		hc.model = model
	}
}

// NewHTTPClient creates a new transcription HTTP client.
// The base URL must be provided; the API key may come from the WithAPIKey
// option or the TRANSCRIBE_API_KEY environment variable.
func NewHTTPClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &HTTPClient{
		baseURL:    baseURL,
		model:      "whisper-1",
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("TRANSCRIBE_API_KEY")
	}

	return c, nil
}

// transcriptResponse is the subset of the response body we read.
type transcriptResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio file and returns the transcript text.
func (c *HTTPClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		err := writeForm(form, audioPath, c.model)
		if cerr := form.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, pr)
	if err != nil {
		return "", fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: status %d", ErrServerError, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, string(body))
	}

	var out transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("transcribe: decode response: %w", err)
	}
	return out.Text, nil
}

// writeForm streams the audio file and model field into the multipart body.
func writeForm(form *multipart.Writer, audioPath, model string) error {
	if err := form.WriteField("model", model); err != nil {
		return err
	}
	part, err := form.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return err
	}
	f, err := os.Open(audioPath) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = io.Copy(part, f)
	return err
}
