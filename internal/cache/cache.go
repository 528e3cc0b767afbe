// Package cache provides the optional cache capability used for the read
// models of the scoring engine.
//
// A Cache is selected once at startup: Redis when a URL is configured, an
// in-process map for single-node deployments, or Noop when caching is
// disabled. Callers never branch on which one they hold.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores serialized values under string keys with a TTL.
// Operations on different keys are independent.
type Cache interface {
	// Get returns the value stored under key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Noop is the Cache used when caching is disabled. Every Get misses.
type Noop struct{}

// NewNoop creates a disabled cache.
func NewNoop() Noop {
	return Noop{}
}

// Get always returns ErrMiss.
func (Noop) Get(context.Context, string) ([]byte, error) {
	return nil, ErrMiss
}

// Set discards the value.
func (Noop) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Delete does nothing.
func (Noop) Delete(context.Context, ...string) error {
	return nil
}
