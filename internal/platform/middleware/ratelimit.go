package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig bounds request throughput per client.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig is the fallback when no limit is configured.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 100, BurstSize: 200}
}

// bucket is one client's token balance. The balance is refilled lazily on
// access from the time elapsed since the last fill.
type bucket struct {
	level  float64
	filled time.Time
}

// limiter holds a token bucket per client key.
type limiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	buckets map[string]*bucket
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{cfg: cfg, buckets: make(map[string]*bucket)}
}

// take consumes one token for key. When the bucket is empty it reports the
// whole seconds until a token becomes available.
func (l *limiter) take(key string, now time.Time) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{level: float64(l.cfg.BurstSize), filled: now}
		l.buckets[key] = b
	}

	b.level += now.Sub(b.filled).Seconds() * l.cfg.RequestsPerSecond
	if burst := float64(l.cfg.BurstSize); b.level > burst {
		b.level = burst
	}
	b.filled = now

	if b.level >= 1 {
		b.level--
		return true, 0
	}
	if l.cfg.RequestsPerSecond <= 0 {
		return false, 1
	}
	return false, int(math.Ceil((1 - b.level) / l.cfg.RequestsPerSecond))
}

// RateLimit returns middleware enforcing a per-client token bucket. Clients
// are keyed by tenant and source IP so one tenant cannot starve another
// behind a shared proxy.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	lim := newLimiter(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if tenantID, ok := c.Get("auth_tenant_id").(string); ok && tenantID != "" {
				key = tenantID + ":" + key
			}

			ok, retryAfter := lim.take(key, time.Now())
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
