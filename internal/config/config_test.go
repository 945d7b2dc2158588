package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("INFERENCE_PROVIDER", "")
	t.Setenv("TRIAGE_CACHE_BACKEND", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.InferenceProvider != "ollama" {
		t.Fatalf("expected default inference provider, got %s", cfg.InferenceProvider)
	}
	if cfg.InferenceTimeout != 60*time.Second {
		t.Fatalf("expected default inference timeout, got %s", cfg.InferenceTimeout)
	}
	if cfg.CacheBackend != "memory" {
		t.Fatalf("expected default cache backend, got %s", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("expected default cache ttl, got %s", cfg.CacheTTL)
	}
	if cfg.CacheCapacity != 1000 {
		t.Fatalf("expected default cache capacity, got %d", cfg.CacheCapacity)
	}
	if cfg.AlertEmails != nil {
		t.Fatalf("expected no default alert emails, got %v", cfg.AlertEmails)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("INFERENCE_PROVIDER", "Bedrock")
	t.Setenv("INFERENCE_TIMEOUT", "30s")
	t.Setenv("TRIAGE_CACHE_BACKEND", "redis")
	t.Setenv("TRIAGE_CACHE_CAPACITY", "250")
	t.Setenv("BATCH_WORKER_LIMIT", "4")
	t.Setenv("ALERT_EMAILS", "ops@riverbend.example, charge-nurse@riverbend.example ,")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.InferenceProvider != "bedrock" {
		t.Fatalf("expected lowercased provider, got %s", cfg.InferenceProvider)
	}
	if cfg.InferenceTimeout != 30*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.InferenceTimeout)
	}
	if cfg.CacheBackend != "redis" {
		t.Fatalf("expected cache backend override, got %s", cfg.CacheBackend)
	}
	if cfg.CacheCapacity != 250 {
		t.Fatalf("expected cache capacity override, got %d", cfg.CacheCapacity)
	}
	if cfg.BatchWorkerLimit != 4 {
		t.Fatalf("expected batch worker limit override, got %d", cfg.BatchWorkerLimit)
	}
	if len(cfg.AlertEmails) != 2 || cfg.AlertEmails[1] != "charge-nurse@riverbend.example" {
		t.Fatalf("expected trimmed alert email list, got %v", cfg.AlertEmails)
	}
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	t.Setenv("INFERENCE_TIMEOUT", "not-a-duration")
	t.Setenv("TRIAGE_CACHE_CAPACITY", "many")
	cfg := Load()
	if cfg.InferenceTimeout != 60*time.Second {
		t.Fatalf("expected default timeout on parse failure, got %s", cfg.InferenceTimeout)
	}
	if cfg.CacheCapacity != 1000 {
		t.Fatalf("expected default capacity on parse failure, got %d", cfg.CacheCapacity)
	}
}
