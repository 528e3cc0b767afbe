package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mtlprog/hrscore/internal/domain"
)

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// ConnectRedis parses a redis:// URL, connects and pings the server.
func ConnectRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	slog.Info("redis cache connected", "addr", opts.Addr, "db", opts.DB)

	return &Redis{client: client}, nil
}

// Get returns the stored value, ErrMiss, or an error wrapping
// domain.ErrCacheUnavailable.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("%w: redis get %s: %w", domain.ErrCacheUnavailable, key, err)
	}
	return value, nil
}

// Set stores value with the given expiry.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %w", domain.ErrCacheUnavailable, key, err)
	}
	return nil
}

// Delete removes the given keys in one round trip.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %w", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Ping checks that the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
