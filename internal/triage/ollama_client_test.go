package triage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaClient_Infer(t *testing.T) {
	var gotBody ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Response: `{"emergency_level":"high"}`,
			Model:    "llama3:8b",
		})
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL})
	resp, err := client.Infer(context.Background(), InferenceRequest{
		Model:  "llama3:8b",
		Prompt: "triage this case",
	})
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}

	if resp.Content != `{"emergency_level":"high"}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != "llama3:8b" {
		t.Errorf("Model = %q", resp.Model)
	}
	if gotBody.Model != "llama3:8b" || gotBody.Prompt != "triage this case" {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.Stream {
		t.Error("Stream = true, want false")
	}
}

func TestOllamaClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "model not loaded"})
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL})
	_, err := client.Infer(context.Background(), InferenceRequest{Model: "llama3:8b", Prompt: "x"})

	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("Infer() error = %T, want *InferenceError", err)
	}
	if infErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", infErr.StatusCode)
	}
	if infErr.Message != "model not loaded" {
		t.Errorf("Message = %q", infErr.Message)
	}
}

func TestOllamaClient_ErrorPayloadWith200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Error: "out of memory"})
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL})
	_, err := client.Infer(context.Background(), InferenceRequest{Model: "m", Prompt: "x"})

	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("Infer() error = %T, want *InferenceError", err)
	}
	if infErr.Message != "out of memory" {
		t.Errorf("Message = %q", infErr.Message)
	}
}

func TestOllamaClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := client.Infer(context.Background(), InferenceRequest{Model: "m", Prompt: "x"})

	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("Infer() error = %T, want *InferenceError", err)
	}
	if !infErr.Timeout {
		t.Errorf("Timeout = false, want true: %v", infErr)
	}
}

func TestOllamaClient_ValidatesInput(t *testing.T) {
	client := NewOllamaClient(OllamaConfig{})
	if _, err := client.Infer(context.Background(), InferenceRequest{Prompt: "x"}); err == nil {
		t.Error("Infer() with empty model: error = nil, want error")
	}
	if _, err := client.Infer(context.Background(), InferenceRequest{Model: "m"}); err == nil {
		t.Error("Infer() with empty prompt: error = nil, want error")
	}
}
