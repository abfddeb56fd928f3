package toolspace

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisUsageStore keeps usage counters in a Redis hash per (user, toolspace)
// pair. HINCRBY gives the atomic increment the quota contract requires, and
// counters survive process restarts, unlike the in-memory store.
type RedisUsageStore struct {
	client *redis.Client
}

// NewRedisUsageStore creates a usage store over an existing Redis client.
func NewRedisUsageStore(client *redis.Client) *RedisUsageStore {
	return &RedisUsageStore{client: client}
}

// NewRedisUsageStoreFromURL connects to Redis using a redis:// URL.
func NewRedisUsageStoreFromURL(url string) (*RedisUsageStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return &RedisUsageStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisUsageStore) hashKey(key UsageKey) string {
	return "generous:usage:" + key.UserID + ":" + key.ToolspaceID
}

// Increment atomically adds delta to a counter.
func (s *RedisUsageStore) Increment(ctx context.Context, key UsageKey, metric string, delta int64) error {
	err := s.client.HIncrBy(ctx, s.hashKey(key), metric, delta).Err()
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", metric, err)
	}

	return nil
}

// Read returns the current counter value; a missing field reads as zero.
func (s *RedisUsageStore) Read(ctx context.Context, key UsageKey, metric string) (int64, error) {
	value, err := s.client.HGet(ctx, s.hashKey(key), metric).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to read %s: %w", metric, err)
	}

	return value, nil
}

// Close releases the underlying client.
func (s *RedisUsageStore) Close() error {
	return s.client.Close()
}
