package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"meeting-intel/internal/models"
)

const resultKeyPrefix = "meeting-intel:analyze:"

// RedisResultCache is the optional second result tier shared by every
// process behind the same Redis.
type RedisResultCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisResultCache(client redis.Cmdable, ttl time.Duration) *RedisResultCache {
	return &RedisResultCache{client: client, ttl: ttl}
}

func resultKey(identityKey string) string {
	return resultKeyPrefix + identityKey
}

// Get returns ok=false on a miss; only transport and decode faults are errors.
func (c *RedisResultCache) Get(ctx context.Context, key string) (*models.AnalyzeResult, bool, error) {
	val, err := c.client.Get(ctx, resultKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var result models.AnalyzeResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, false, fmt.Errorf("decode cached dossier: %w", err)
	}
	result.FillDefaults()
	return &result, true, nil
}

// Remaining returns the time key has left before Redis expires it. A missing
// key or one without an expiry reports zero.
func (c *RedisResultCache) Remaining(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.client.PTTL(ctx, resultKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis pttl: %w", err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (c *RedisResultCache) Set(ctx context.Context, key string, result *models.AnalyzeResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode dossier: %w", err)
	}
	if err := c.client.Set(ctx, resultKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
