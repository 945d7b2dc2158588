package triage

import (
	"context"

	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// FallbackInferenceClient wraps a primary inference client with a fallback
// provider. If the primary fails, it automatically retries with the fallback.
type FallbackInferenceClient struct {
	primary  InferenceClient
	fallback InferenceClient
	logger   *logging.Logger
}

// NewFallbackInferenceClient creates a fallback-enabled client. If fallback
// is nil, only the primary provider is used.
func NewFallbackInferenceClient(primary, fallback InferenceClient, logger *logging.Logger) *FallbackInferenceClient {
	if primary == nil {
		panic("triage: primary inference client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackInferenceClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Infer tries the primary provider first; on failure, retries once with the
// fallback when one is configured.
func (c *FallbackInferenceClient) Infer(ctx context.Context, req InferenceRequest) (InferenceResponse, error) {
	resp, err := c.primary.Infer(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary inference provider failed",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)

	if c.fallback == nil {
		return InferenceResponse{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Infer(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback inference provider also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return InferenceResponse{}, fallbackErr
	}

	inferenceFailoverTotal.Inc()
	c.logger.Info("fallback inference provider succeeded after primary failure")
	return fallbackResp, nil
}
