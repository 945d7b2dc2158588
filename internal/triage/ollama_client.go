package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

const (
	defaultOllamaBaseURL    = "http://localhost:11434"
	defaultInferenceTimeout = 60 * time.Second
)

// OllamaConfig controls how the Ollama client behaves.
type OllamaConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// OllamaClient talks to an Ollama-compatible generation endpoint. One POST to
// /api/generate per Infer call; no retries here — failover is the fallback
// client's job.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewOllamaClient creates a configured client with sane defaults.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultInferenceTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &OllamaClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	Error    string `json:"error,omitempty"`
}

// Infer issues a single completion request and returns the raw model output.
// Failures come back as *InferenceError values; nothing panics across this
// boundary.
func (c *OllamaClient) Infer(ctx context.Context, req InferenceRequest) (InferenceResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return InferenceResponse{}, errors.New("triage: inference model is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return InferenceResponse{}, errors.New("triage: inference prompt is required")
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: false,
	})
	if err != nil {
		return InferenceResponse{}, fmt.Errorf("triage: marshal generate body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return InferenceResponse{}, fmt.Errorf("triage: build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return InferenceResponse{}, &InferenceError{Timeout: true, Message: err.Error()}
		}
		return InferenceResponse{}, &InferenceError{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return InferenceResponse{}, &InferenceError{StatusCode: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return InferenceResponse{}, &InferenceError{StatusCode: resp.StatusCode, Message: errorMessageFrom(data)}
	}

	var decoded ollamaGenerateResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return InferenceResponse{}, &InferenceError{StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	if decoded.Error != "" {
		return InferenceResponse{}, &InferenceError{StatusCode: resp.StatusCode, Message: decoded.Error}
	}
	if strings.TrimSpace(decoded.Response) == "" {
		return InferenceResponse{}, &InferenceError{Message: "empty response from model"}
	}

	return InferenceResponse{
		Content: decoded.Response,
		Model:   decoded.Model,
	}, nil
}

// errorMessageFrom extracts the error field from a failure body, falling back
// to the raw payload.
func errorMessageFrom(data []byte) string {
	var decoded struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
