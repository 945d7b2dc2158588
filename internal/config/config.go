package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Triage pipeline
	InferenceProvider string // ollama, bedrock, gemini
	OllamaBaseURL     string
	TriageModel       string
	InferenceTimeout  time.Duration
	FallbackProvider  string // optional second provider wrapped behind the primary
	BedrockModelID    string
	GeminiAPIKey      string
	GeminiModel       string

	// Decision cache
	CacheBackend  string // memory or redis
	CacheTTL      time.Duration
	CacheCapacity int

	// Batch jobs
	UseMemoryQueue   bool
	WorkerCount      int
	BatchWorkerLimit int
	TriageQueueURL   string
	DispatchQueueURL string
	TriageJobsTable  string

	// Persistence
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Archive
	ArchiveBucket string

	// Alerting
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	AlertEmails       []string
	AlertCooldown     time.Duration

	// Ops surfaces
	AdminJWTSecret     string
	BoardPushInterval  time.Duration
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		InferenceProvider: strings.ToLower(strings.TrimSpace(getEnv("INFERENCE_PROVIDER", "ollama"))),
		OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		TriageModel:       getEnv("TRIAGE_MODEL", "llama3:8b"),
		InferenceTimeout:  getEnvAsDuration("INFERENCE_TIMEOUT", 60*time.Second),
		FallbackProvider:  strings.ToLower(strings.TrimSpace(getEnv("INFERENCE_FALLBACK_PROVIDER", ""))),
		BedrockModelID:    getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		CacheBackend:  strings.ToLower(strings.TrimSpace(getEnv("TRIAGE_CACHE_BACKEND", "memory"))),
		CacheTTL:      getEnvAsDuration("TRIAGE_CACHE_TTL", 5*time.Minute),
		CacheCapacity: getEnvAsInt("TRIAGE_CACHE_CAPACITY", 1000),

		UseMemoryQueue:   getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:      getEnvAsInt("WORKER_COUNT", 2),
		BatchWorkerLimit: getEnvAsInt("BATCH_WORKER_LIMIT", 8),
		TriageQueueURL:   getEnv("TRIAGE_QUEUE_URL", ""),
		DispatchQueueURL: getEnv("DISPATCH_QUEUE_URL", ""),
		TriageJobsTable:  getEnv("TRIAGE_JOBS_TABLE", "triage_jobs"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		ArchiveBucket: getEnv("S3_ARCHIVE_BUCKET", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Riverbend Ops"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		AlertEmails:       getEnvAsList("ALERT_EMAILS"),
		AlertCooldown:     getEnvAsDuration("ALERT_COOLDOWN", 15*time.Minute),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		BoardPushInterval:  getEnvAsDuration("BOARD_PUSH_INTERVAL", 5*time.Second),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, dropping empty items.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
