package triage

import (
	"context"
	"fmt"
)

// InferenceRequest is one prompt sent to a text-generation endpoint.
type InferenceRequest struct {
	Model  string
	Prompt string
}

// InferenceResponse is the raw model output. Parsing into a Decision happens
// separately; clients return text only.
type InferenceResponse struct {
	Content string
	Model   string
}

// InferenceClient issues one outbound completion per call. Implementations
// return a result or an error value — never a panic across this boundary.
type InferenceClient interface {
	Infer(ctx context.Context, req InferenceRequest) (InferenceResponse, error)
}

// InferenceError describes a failed inference call: an HTTP-level failure, an
// error payload from the endpoint, or a timeout. The engine converts any of
// these into rule-only scoring; they never reach callers of Decide.
type InferenceError struct {
	StatusCode int
	Message    string
	Timeout    bool
}

func (e *InferenceError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("triage: inference request timed out: %s", e.Message)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("triage: inference endpoint returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("triage: inference request failed: %s", e.Message)
}
