package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a DecisionCache backed by Redis, for deployments running more
// than one API instance. TTL is enforced by Redis itself; capacity is left to
// the Redis memory policy.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("triage: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{redis: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Decision, bool, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Decision{}, false, nil
		}
		return Decision{}, false, fmt.Errorf("triage: failed to read cached decision: %w", err)
	}

	var decision Decision
	if err := json.Unmarshal(data, &decision); err != nil {
		return Decision{}, false, fmt.Errorf("triage: failed to decode cached decision: %w", err)
	}
	return decision, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, decision Decision) error {
	data, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("triage: failed to marshal decision: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("triage: failed to persist cached decision: %w", err)
	}
	return nil
}
