package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GetJSON loads key into dst. It reports false on a miss. A value that cannot
// be decoded is reported as an error together with false.
func GetJSON(ctx context.Context, c Cache, key string, dst any) (bool, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cache value %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}
