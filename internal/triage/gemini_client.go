package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements InferenceClient using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a Gemini-backed inference client. The model from
// InferenceRequest is ignored; Gemini model selection happens here.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("triage: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("triage: failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, modelID: modelID}, nil
}

func (c *GeminiClient) Infer(ctx context.Context, req InferenceRequest) (InferenceResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return InferenceResponse{}, errors.New("triage: inference prompt is required")
	}

	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(600)

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return InferenceResponse{}, &InferenceError{Message: err.Error(), Timeout: isTimeout(err)}
	}
	if len(resp.Candidates) == 0 {
		return InferenceResponse{}, &InferenceError{Message: "gemini returned no candidates"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return InferenceResponse{}, &InferenceError{Message: "gemini returned empty content"}
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return InferenceResponse{}, &InferenceError{Message: "gemini returned no text parts"}
	}

	return InferenceResponse{Content: text, Model: c.modelID}, nil
}

// Close releases resources held by the underlying Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
