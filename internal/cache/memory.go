package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Memory is an in-process Cache for single-node deployments and tests.
// Expired entries are evicted in the background until Close is called.
type Memory struct {
	items *ttlcache.Cache[string, []byte]
}

type memoryOptions struct {
	capacity uint64
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*memoryOptions)

// WithCapacity bounds the number of entries. The least recently used entry is
// evicted first. Zero means unbounded.
func WithCapacity(n int) MemoryOption {
	return func(o *memoryOptions) {
		if n > 0 {
			o.capacity = uint64(n)
		}
	}
}

// NewMemory creates an empty in-process cache and starts its expiry loop.
func NewMemory(opts ...MemoryOption) *Memory {
	var o memoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	ttlOpts := []ttlcache.Option[string, []byte]{
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	}
	if o.capacity > 0 {
		ttlOpts = append(ttlOpts, ttlcache.WithCapacity[string, []byte](o.capacity))
	}

	m := &Memory{items: ttlcache.New(ttlOpts...)}
	go m.items.Start()
	return m
}

// Get returns a copy of the stored value, or ErrMiss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	item := m.items.Get(key)
	if item == nil {
		return nil, ErrMiss
	}
	value := item.Value()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores a copy of value. A non-positive ttl stores nothing.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.items.Set(key, stored, ttl)
	return nil
}

// Delete removes the given keys.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.items.Delete(k)
	}
	return nil
}

// Len returns the number of unexpired entries.
func (m *Memory) Len() int {
	return m.items.Len()
}

// Close stops the expiry loop.
func (m *Memory) Close() error {
	m.items.Stop()
	return nil
}
