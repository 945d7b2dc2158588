package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/riverbend-health/hospital-ops-platform/internal/config"
	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

func TestBuildInferenceStackRequiresConfig(t *testing.T) {
	if _, err := BuildInferenceStack(context.Background(), nil, aws.Config{}, logging.New("error")); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildInferenceStackNoProviderRunsRulesOnly(t *testing.T) {
	cfg := &appconfig.Config{InferenceProvider: "none"}

	stack, err := BuildInferenceStack(context.Background(), cfg, aws.Config{}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stack.Client != nil {
		t.Fatalf("expected nil client for provider %q, got %T", cfg.InferenceProvider, stack.Client)
	}
	if err := stack.Close(); err != nil {
		t.Fatalf("close should be a no-op: %v", err)
	}
}

func TestBuildInferenceStackUnknownProvider(t *testing.T) {
	cfg := &appconfig.Config{InferenceProvider: "quantum"}

	if _, err := BuildInferenceStack(context.Background(), cfg, aws.Config{}, logging.New("error")); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestBuildInferenceStackOllama(t *testing.T) {
	cfg := &appconfig.Config{
		InferenceProvider: "ollama",
		OllamaBaseURL:     "http://localhost:11434",
		TriageModel:       "llama3:8b",
		InferenceTimeout:  30 * time.Second,
	}

	stack, err := BuildInferenceStack(context.Background(), cfg, aws.Config{}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := stack.Client.(*triage.OllamaClient); !ok {
		t.Fatalf("expected OllamaClient, got %T", stack.Client)
	}
	if stack.Model != "llama3:8b" {
		t.Fatalf("expected model llama3:8b, got %q", stack.Model)
	}
}

func TestBuildInferenceStackBedrockNeedsModelID(t *testing.T) {
	cfg := &appconfig.Config{InferenceProvider: "bedrock"}

	stack, err := BuildInferenceStack(context.Background(), cfg, aws.Config{}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stack.Client != nil {
		t.Fatalf("expected nil client without a bedrock model id, got %T", stack.Client)
	}
}

func TestBuildInferenceStackWrapsFallback(t *testing.T) {
	cfg := &appconfig.Config{
		InferenceProvider: "ollama",
		OllamaBaseURL:     "http://localhost:11434",
		TriageModel:       "llama3:8b",
		FallbackProvider:  "bedrock",
		BedrockModelID:    "anthropic.claude-3-haiku-20240307-v1:0",
	}

	stack, err := BuildInferenceStack(context.Background(), cfg, aws.Config{Region: "us-east-1"}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := stack.Client.(*triage.FallbackInferenceClient); !ok {
		t.Fatalf("expected FallbackInferenceClient, got %T", stack.Client)
	}
	if stack.Model != "llama3:8b" {
		t.Fatalf("primary model should name the stack, got %q", stack.Model)
	}
}

func TestBuildInferenceStackUnconfiguredFallbackIsIgnored(t *testing.T) {
	cfg := &appconfig.Config{
		InferenceProvider: "ollama",
		OllamaBaseURL:     "http://localhost:11434",
		TriageModel:       "llama3:8b",
		FallbackProvider:  "gemini", // no API key set
	}

	stack, err := BuildInferenceStack(context.Background(), cfg, aws.Config{}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := stack.Client.(*triage.OllamaClient); !ok {
		t.Fatalf("expected bare OllamaClient when the fallback is unconfigured, got %T", stack.Client)
	}
}
