package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis provides a Redis implementation of the response cache.
// Entries expire after TTL. A zero TTL keeps entries forever.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

const defaultRedisPrefix = "topictree:response:"

// NewRedis creates a new Redis client connection with the provided configuration.
// It returns an initialized Redis struct and any error encountered during connection setup.
func NewRedis(addr, password string, db int, ttl time.Duration) (Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return Redis{}, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return Redis{
		Client: client,
		TTL:    ttl,
		Prefix: defaultRedisPrefix,
	}, nil
}

// CachedResponse retrieves a cached LLM response by key.
// The boolean is false when the key is missing or expired.
func (r Redis) CachedResponse(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	content, err := r.Client.Get(ctx, r.Prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get response: %w", err)
	}

	return content, true, nil
}

// CacheResponse creates or updates the cached LLM response for key.
func (r Redis) CacheResponse(ctx context.Context, key, response string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := r.Client.Set(ctx, r.Prefix+key, response, r.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set response: %w", err)
	}

	return nil
}

// Close closes the client.
func (r Redis) Close() error {
	return r.Client.Close()
}
