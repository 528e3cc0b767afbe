package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mtlprog/hrscore/internal/handler/dto"
	"github.com/mtlprog/hrscore/internal/metrics"
)

// DefaultLimiterTTL is how long an idle organization keeps its limiter.
const DefaultLimiterTTL = 5 * time.Minute

// RateLimiter applies a token bucket per organization.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
	limiters sync.Map // orgID -> *cachedLimiter
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithTTL sets how long an unused limiter is kept.
func WithTTL(ttl time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) {
		if ttl > 0 {
			rl.ttl = ttl
		}
	}
}

// WithLimiterClock replaces the time source used for limiter expiry.
func WithLimiterClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) {
		if now != nil {
			rl.now = now
		}
	}
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst for each organization. rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limit: rate.Limit(rps),
		burst: max(burst, 1),
		ttl:   DefaultLimiterTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

// Middleware rejects requests over the organization's budget with 429.
// It must run after Tenant.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, ok := OrgIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusBadRequest, dto.CodeInvalidRequest, "missing "+HeaderOrgID+" header", false)
				return
			}

			if rl.limit > 0 && !rl.limiterFor(orgID).Allow() {
				metrics.RecordRateLimited()
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, dto.CodeRateLimited, "too many requests", true)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) limiterFor(orgID string) *rate.Limiter {
	now := rl.now()
	if v, ok := rl.limiters.Load(orgID); ok {
		cached := v.(*cachedLimiter)
		if now.Before(cached.expiresAt) {
			return cached.limiter
		}
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Store(orgID, &cachedLimiter{
		limiter:   limiter,
		expiresAt: now.Add(rl.ttl),
	})
	return limiter
}
