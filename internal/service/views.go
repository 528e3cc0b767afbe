package service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mtlprog/hrscore/internal/cache"
	"github.com/mtlprog/hrscore/internal/logger"
	"github.com/mtlprog/hrscore/internal/metrics"
)

// viewCache implements cache-aside for the read models. Cache failures are
// logged and degrade to a live computation; they never reach the caller.
type viewCache struct {
	cache cache.Cache
	keys  cache.Keys
	group singleflight.Group
}

func newViewCache(s settings) *viewCache {
	return &viewCache{cache: s.cache, keys: s.keys}
}

// loadView returns the cached value under key or computes, stores and returns
// it. Concurrent misses for one key share a single computation, so the
// returned value must be treated as read-only.
func loadView[T any](
	ctx context.Context,
	vc *viewCache,
	ns cache.Namespace,
	key string,
	compute func(context.Context) (*T, error),
) (*T, error) {
	var cached T
	ok, err := cache.GetJSON(ctx, vc.cache, key, &cached)
	switch {
	case err != nil:
		metrics.RecordCacheResult(string(ns), metrics.CacheError)
		logger.FromContext(ctx).Warn("cache read failed, computing live",
			"namespace", ns, "key", key, "error", err)
	case ok:
		metrics.RecordCacheResult(string(ns), metrics.CacheHit)
		return &cached, nil
	default:
		metrics.RecordCacheResult(string(ns), metrics.CacheMiss)
	}

	// The shared computation outlives any one caller; each caller still
	// stops waiting when its own context ends.
	ch := vc.group.DoChan(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		start := time.Now()
		view, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		metrics.RecordCompute(string(ns), time.Since(start))

		if err := cache.SetJSON(ctx, vc.cache, key, view, ns.TTL()); err != nil {
			logger.FromContext(ctx).Warn("cache write failed",
				"namespace", ns, "key", key, "error", err)
		}
		return view, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*T), nil
	}
}

// invalidate deletes keys. A failure is logged only: the entries expire with
// their TTL.
func (vc *viewCache) invalidate(ctx context.Context, keys ...string) {
	if err := vc.cache.Delete(ctx, keys...); err != nil {
		metrics.RecordInvalidation(false)
		logger.FromContext(ctx).Warn("cache invalidation failed",
			"keys", keys, "error", err)
		return
	}
	metrics.RecordInvalidation(true)
}
