package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/riverbend-health/hospital-ops-platform/internal/config"
	"github.com/riverbend-health/hospital-ops-platform/internal/notify"
	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildDecisionCache selects the decision cache backend. The redis backend
// requires a reachable server; when it is not, the in-memory cache takes over
// so a cache outage never blocks triage.
func BuildDecisionCache(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) triage.DecisionCache {
	if cfg == nil {
		return triage.NewMemoryCache(0, 0)
	}
	if logger == nil {
		logger = logging.Default()
	}

	if cfg.CacheBackend == "redis" {
		if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
			logger.Info("decision cache backend", "backend", "redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL.String())
			return triage.NewRedisCache(client, cfg.CacheTTL)
		}
		logger.Warn("redis cache requested but unavailable; using in-memory cache")
	}

	logger.Info("decision cache backend", "backend", "memory", "ttl", cfg.CacheTTL.String(), "capacity", cfg.CacheCapacity)
	return triage.NewMemoryCache(cfg.CacheTTL, cfg.CacheCapacity)
}

// BuildAlertSender picks the alert email transport: SendGrid when an API key
// is configured, SES when a from address is. Returns nil when neither is,
// which the alert service treats as alerts disabled.
func BuildAlertSender(awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		logger.Info("alert email transport", "provider", "sendgrid")
		return sender
	}

	if strings.TrimSpace(cfg.SESFromEmail) != "" {
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
		}, logger); sender != nil {
			logger.Info("alert email transport", "provider", "ses")
			return sender
		}
	}

	logger.Info("no alert email transport configured; operational alerts disabled")
	return nil
}
