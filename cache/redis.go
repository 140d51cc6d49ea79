package cache

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisBackend stores state values as plain Redis strings under a prefix.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend wraps an already connected client.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(k string) string {
	return b.prefix + k
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if b.client == nil {
		return "", false, fmt.Errorf("Redis client not initialized")
	}
	val, err := b.client.Get(ctx, b.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	if b.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := b.client.Set(ctx, b.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if b.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := b.client.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
