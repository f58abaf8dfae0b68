package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-room-reservation/internal/config"
	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// teeWriter forwards the response and keeps up to limit bytes of it.
type teeWriter struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.body.Len()+len(b) > w.limit {
			w.overflow = true
			w.body.Reset()
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func roomsCacheKey(prefix string, r *http.Request) string {
	return prefix + ":" + r.URL.RequestURI()
}

// generationKey counts invalidations.  It sits outside the prefix:*
// pattern so Invalidate never deletes it.
func generationKey(prefix string) string {
	return prefix + ".gen"
}

// storeScript writes an entry only if no invalidation happened since the
// generation in ARGV[1] was read.
var storeScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'ctype', ARGV[3], 'body', ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// NewRedisCache serves GET responses of the room view from a Redis hash
// holding status, content type and body.  Only 200 responses within the
// size limit are stored, and only when the room state did not change while
// the handler ran.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	genKey := generationKey(cfg.Prefix)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet {
				return next(c)
			}
			ctx := req.Context()
			key := roomsCacheKey(cfg.Prefix, req)

			if entry, err := rdb.HGetAll(ctx, key).Result(); err == nil && entry["body"] != "" {
				status, err := strconv.Atoi(entry["status"])
				if err == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(status, entry["ctype"], []byte(entry["body"]))
				}
			}

			// Read before the handler builds the body.
			gen, err := rdb.Get(ctx, genKey).Result()
			switch {
			case errors.Is(err, redis.Nil):
				gen = "0"
			case err != nil:
				return next(c)
			}

			tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = tw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if tw.status != http.StatusOK || tw.overflow || tw.body.Len() == 0 {
				return nil
			}
			// Stored after the response is written; the request context may
			// already be gone.
			store := context.WithoutCancel(ctx)
			_ = storeScript.Run(store, rdb, []string{key, genKey},
				gen,
				tw.status,
				c.Response().Header().Get(echo.HeaderContentType),
				tw.body.String(),
				cfg.TTL.Milliseconds(),
			).Err()
			return nil
		}
	}
}

// CacheInvalidator drops every cached room view whenever the inventory
// changes.
type CacheInvalidator struct {
	rdb    *redis.Client
	prefix string
	logger *zap.Logger
}

// NewCacheInvalidator returns nil when caching is disabled so callers can
// skip registering it.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client, logger *zap.Logger) *CacheInvalidator {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheInvalidator{rdb: rdb, prefix: cfg.Prefix, logger: logger}
}

// RoomsChanged implements booking.Observer.
func (ci *CacheInvalidator) RoomsChanged(ctx context.Context, _ []model.Room) {
	if err := ci.Invalidate(ctx); err != nil {
		ci.logger.Warn("cache invalidation failed", zap.String("prefix", ci.prefix), zap.Error(err))
	}
}

// Invalidate bumps the generation, so responses built before now are not
// stored, then deletes every key under the cache prefix.
func (ci *CacheInvalidator) Invalidate(ctx context.Context) error {
	if err := ci.rdb.Incr(ctx, generationKey(ci.prefix)).Err(); err != nil {
		return err
	}
	iter := ci.rdb.Scan(ctx, 0, ci.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return ci.rdb.Del(ctx, keys...).Err()
}
