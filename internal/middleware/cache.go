package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/library-reservation/internal/config"
)

// listCaptureWriter buffers the response body while forwarding it to the
// client, so a successful list payload can be stored after the handler ran.
type listCaptureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (w *listCaptureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *listCaptureWriter) Write(b []byte) (int, error) {
	if w.limit <= 0 || w.size < w.limit {
		if w.limit <= 0 {
			w.buf.Write(b)
		} else if remain := w.limit - w.size; remain > 0 {
			if int64(len(b)) <= remain {
				w.buf.Write(b)
			} else {
				w.buf.Write(b[:remain])
			}
		}
		w.size += int64(len(b))
	}
	return w.ResponseWriter.Write(b)
}

// listCacheKey derives the cache key from the concrete request path and query,
// not the route pattern, so distinct query strings never share an entry.
func listCacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// keySetName is the Redis set tracking every live cache key, so the write
// invalidator can drop them all without a blocking SCAN.
func keySetName(cfg config.CacheConfig) string {
	return cfg.Prefix + ":keys"
}

// NewResponseCache caches successful JSON responses of the route it wraps.
// The enriched reservation list is the intended target: a hit skips both the
// database read and the gateway name fan-out. Every stored key is also added
// to a tracking set so reservation writes can invalidate the cache; see
// NewWriteInvalidator. Entries expire after the configured TTL regardless.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}

			ctx := c.Request().Context()
			key := listCacheKey(cfg, c)

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				c.Response().Header().Set("X-Cache", "HIT")
				c.Response().WriteHeader(http.StatusOK)
				_, _ = c.Response().Write(body)
				return nil
			}

			cw := &listCaptureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			// Only complete successful payloads are worth storing.
			if cw.status == http.StatusOK && (maxBody <= 0 || cw.size <= maxBody) {
				store := context.Background()
				pipe := rdb.TxPipeline()
				pipe.SetEx(store, key, cw.buf.Bytes(), ttl)
				pipe.SAdd(store, keySetName(cfg), key)
				pipe.Expire(store, keySetName(cfg), ttl)
				_, _ = pipe.Exec(store)
			}
			return nil
		}
	}
}

// NewWriteInvalidator drops every cached reservation list after a successful
// write, so a read that follows a create, return or delete always sees the
// new state instead of a stale entry inside the TTL window.
func NewWriteInvalidator(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if status := c.Response().Status; status < 200 || status >= 300 {
				return nil
			}
			ctx := context.Background()
			set := keySetName(cfg)
			keys, err := rdb.SMembers(ctx, set).Result()
			if err != nil {
				return nil
			}
			keys = append(keys, set)
			_ = rdb.Del(ctx, keys...).Err()
			return nil
		}
	}
}
