package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/riverbend-health/hospital-ops-platform/internal/config"
	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// InferenceStack is the assembled model-call side of the triage engine. A nil
// Client means no provider could be built and the engine runs on the rule
// tier alone.
type InferenceStack struct {
	Client triage.InferenceClient
	Model  string
	closer func() error
}

// Close releases provider resources (currently only the Gemini transport).
func (s *InferenceStack) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}

// BuildInferenceStack wires the configured inference provider, optionally
// wrapped with a second provider that takes over when the primary errors.
func BuildInferenceStack(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (*InferenceStack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stack := &InferenceStack{}

	primary, model, closePrimary, err := buildProvider(ctx, cfg.InferenceProvider, cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		logger.Warn("no inference provider configured; triage runs on clinical rules only")
		return stack, nil
	}
	stack.Client = primary
	stack.Model = model
	stack.closer = closePrimary

	fallbackName := strings.TrimSpace(cfg.FallbackProvider)
	if fallbackName == "" || fallbackName == cfg.InferenceProvider {
		logger.Info("inference provider ready", "provider", cfg.InferenceProvider, "model", model)
		return stack, nil
	}

	fallback, fallbackModel, closeFallback, err := buildProvider(ctx, fallbackName, cfg, awsCfg, logger)
	if err != nil {
		logger.Warn("fallback provider failed to build; continuing without it", "provider", fallbackName, "error", err)
		return stack, nil
	}
	if fallback == nil {
		logger.Warn("fallback provider not configured; continuing without it", "provider", fallbackName)
		return stack, nil
	}

	stack.Client = triage.NewFallbackInferenceClient(primary, fallback, logger)
	stack.closer = composeClosers(closePrimary, closeFallback)
	logger.Info("inference provider ready",
		"provider", cfg.InferenceProvider,
		"model", model,
		"fallback_provider", fallbackName,
		"fallback_model", fallbackModel,
	)
	return stack, nil
}

// buildProvider constructs one named provider. A nil client with a nil error
// means the provider is unconfigured rather than broken.
func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (triage.InferenceClient, string, func() error, error) {
	switch name {
	case "", "none":
		return nil, "", nil, nil

	case "ollama":
		client := triage.NewOllamaClient(triage.OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Timeout: cfg.InferenceTimeout,
			Logger:  logger,
		})
		return client, cfg.TriageModel, nil, nil

	case "bedrock":
		modelID := strings.TrimSpace(cfg.BedrockModelID)
		if modelID == "" {
			logger.Warn("bedrock provider selected but BEDROCK_MODEL_ID is empty")
			return nil, "", nil, nil
		}
		return triage.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg)), modelID, nil, nil

	case "gemini":
		apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
		if apiKey == "" {
			logger.Warn("gemini provider selected but GEMINI_API_KEY is empty")
			return nil, "", nil, nil
		}
		client, err := triage.NewGeminiClient(ctx, apiKey, cfg.GeminiModel)
		if err != nil {
			return nil, "", nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		return client, cfg.GeminiModel, client.Close, nil

	default:
		return nil, "", nil, fmt.Errorf("bootstrap: unknown inference provider %q", name)
	}
}

func composeClosers(closers ...func() error) func() error {
	return func() error {
		var firstErr error
		for _, c := range closers {
			if c == nil {
				continue
			}
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
}
