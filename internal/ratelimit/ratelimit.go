package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ecommerce-platform/internal/ipallow"
	"ecommerce-platform/internal/metrics"
	"ecommerce-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window per-IP rate limiter backed by Redis, shared by
// every gateway replica so limits hold fleet-wide.
//
// It fails OPEN: if Redis is unreachable the request proceeds and a warning
// is logged. At the public edge, availability wins over strictness; the
// trust boundary behind the gateway does not depend on rate limiting.
type Limiter struct {
	rdb     *redis.Client
	metrics metrics.Metrics
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, metrics: metrics.Noop{}}
}

func (l *Limiter) WithMetrics(m metrics.Metrics) *Limiter {
	l.metrics = m
	return l
}

var fixedWindowScript = redis.NewScript(`
-- KEYS[1] = window counter key
-- ARGV[1] = window length in ms
--
-- Returns the request count within the current window.
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
else
  -- Ensure TTL exists even if the key survived without one
  if redis.call('PTTL', KEYS[1]) < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
  end
end
return current
`)

// Allow counts one hit for key and reports whether it stays within limit.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if l.rdb == nil {
		return false, fmt.Errorf("ratelimit: redis client is nil")
	}
	n, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n <= limit, nil
}

// Policy describes one rate-limit scope. The three gateway policies live in
// policies.go.
type Policy struct {
	// Scope names the policy in keys, logs and metrics.
	Scope string

	Limit  int
	Window time.Duration

	// RetryAfter is the human hint included in the 429 body.
	RetryAfter string

	// SkipAuthorized exempts requests that carry an Authorization header.
	SkipAuthorized bool
}

// Middleware enforces p per client IP.
func (l *Limiter) Middleware(p Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p.SkipAuthorized && c.GetHeader("Authorization") != "" {
			c.Next()
			return
		}

		ip := ipallow.ClientIP(c.Request)
		key := fmt.Sprintf("ratelimit:%s:%s", p.Scope, ip)

		ok, err := l.Allow(c.Request.Context(), key, p.Limit, p.Window)
		if err != nil {
			logger.FromGin(c).Warn("rate limiter unavailable, failing open", "scope", p.Scope, "err", err)
			c.Next()
			return
		}
		if !ok {
			logger.FromGin(c).Warn("rate limit exceeded", "scope", p.Scope, "ip", ip, "path", c.Request.URL.Path)
			l.metrics.IncRateLimited(p.Scope)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too_many_requests",
				"message":    "Too many requests, please try again later",
				"retryAfter": p.RetryAfter,
			})
			return
		}
		c.Next()
	}
}
