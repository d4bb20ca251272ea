package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/growthlabs/dispatcher/internal/domain/model"
)

// RedisCacheRepo caches derived read models (the inbox sentiment rollup) in Redis.
type RedisCacheRepo struct {
	client redis.UniversalClient
}

// NewRedisCacheRepo creates a new RedisCacheRepo with the given Redis client.
func NewRedisCacheRepo(client redis.UniversalClient) *RedisCacheRepo {
	return &RedisCacheRepo{client: client}
}

// Set stores a value in Redis with the given key and TTL.
func (r *RedisCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	return r.client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value from Redis by key. A missing key returns nil, nil.
func (r *RedisCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return []byte(result), nil
}

// Delete removes a key from Redis.
func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}

	return result > 0, nil
}

// GetSummary retrieves a cached sentiment summary. The second return value
// reports whether the key was present.
func (r *RedisCacheRepo) GetSummary(ctx context.Context, key string) (*model.SentimentSummary, bool, error) {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}

	var summary model.SentimentSummary
	if unmarshalErr := json.Unmarshal(raw, &summary); unmarshalErr != nil {
		// A corrupt cache entry is treated as a miss; the caller recomputes.
		return nil, false, nil
	}
	return &summary, true, nil
}

// SetSummary caches a sentiment summary under the given key and TTL.
func (r *RedisCacheRepo) SetSummary(
	ctx context.Context,
	key string,
	summary *model.SentimentSummary,
	ttl time.Duration,
) error {
	if summary == nil {
		return errors.New("summary is required")
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return r.Set(ctx, key, raw, ttl)
}

// Health checks the health of the Redis connection.
func (r *RedisCacheRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
