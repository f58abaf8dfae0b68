package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-room-reservation/internal/config"
)

// gcraScript stores, per key, the time at which the bucket would be full
// again.  A request is admitted when that moment, pushed one interval later,
// still fits inside the burst window.  Returns {allowed, remaining,
// retry_after_ms}.
var gcraScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local every = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local window = every * burst

local tat = tonumber(redis.call('GET', KEYS[1]))
if tat == nil or tat < now then
	tat = now
end
local next_tat = tat + every
local allow_at = next_tat - window
if allow_at > now then
	return {0, 0, allow_at - now}
end
redis.call('SET', KEYS[1], next_tat, 'PX', math.max(1, next_tat - now))
return {1, math.floor((now + window - next_tat) / every), 0}
`)

// Decision is the outcome of one Limiter.Take.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a Redis-backed GCRA limiter shared by every server instance.
type Limiter struct {
	rdb   *redis.Client
	every time.Duration
	burst int
}

// NewLimiter builds a Limiter from cfg.
func NewLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, every: cfg.Every, burst: cfg.Burst}
}

// Take spends one request for key at now.
func (l *Limiter) Take(ctx context.Context, key string, now time.Time) (Decision, error) {
	res, err := gcraScript.Run(ctx, l.rdb, []string{key},
		now.UnixMilli(), l.every.Milliseconds(), l.burst).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit: unexpected reply %v", res)
	}
	return Decision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits booking requests per client.  When Redis is
// missing or failing, requests go through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	lim := NewLimiter(cfg, rdb)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := clientKey(cfg, c)
			d, err := lim.Take(c.Request().Context(), key, time.Now())
			if err != nil {
				logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if d.Allowed {
				return next(c)
			}
			secs := int((d.RetryAfter + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			logger.Debug("rate limited", zap.String("key", key), zap.Duration("retry_after", d.RetryAfter))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"retry_after": secs,
			})
		}
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func clientKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	if cfg.PerRoute {
		return cfg.Prefix + ":" + ip + ":" + c.Request().Method + ":" + c.Path()
	}
	return cfg.Prefix + ":" + ip
}
