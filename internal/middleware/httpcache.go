package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	pkgredis "github.com/sublimart/studio/internal/pkg/redis"
)

const (
	HeaderCache             = "X-Studio-Cache"
	defaultHTTPCacheTTL     = 15 * time.Second
	defaultHTTPCacheMaxBody = 1 << 20
)

var cacheGenKey = pkgredis.Key("api-cache", "gen")

// HTTPCacheOptions configures HTTPCache.
type HTTPCacheOptions struct {
	TTL          time.Duration
	MaxBodyBytes int
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body     []byte
	max      int
	overflow bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow {
		return
	}
	if len(w.body)+len(data) > w.max {
		w.overflow = true
		w.body = nil
		return
	}
	w.body = append(w.body, data...)
}

// HTTPCache serves anonymous GETs of the public catalogue from Redis.
// Entries are namespaced by a generation counter so PurgeHTTPCache
// invalidates everything with one INCR.
func HTTPCache(kv KV, opts HTTPCacheOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = defaultHTTPCacheTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultHTTPCacheMaxBody
	}
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || IsAuthenticated(c) || c.GetHeader("Authorization") != "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := pkgredis.Key("api-cache", cacheGeneration(ctx, kv), c.Request.URL.RequestURI())

		if raw, ok, err := kv.Get(ctx, key); err == nil && ok {
			var cached cachedResponse
			if json.Unmarshal(raw, &cached) == nil {
				c.Header(HeaderCache, "hit")
				c.Data(cached.Status, cached.ContentType, cached.Body)
				c.Abort()
				return
			}
		}

		w := &cacheBodyWriter{ResponseWriter: c.Writer, max: opts.MaxBodyBytes}
		c.Writer = w
		c.Header(HeaderCache, "miss")
		c.Next()

		if c.Writer.Status() != http.StatusOK || w.overflow || len(w.body) == 0 {
			return
		}
		if cc := strings.ToLower(c.Writer.Header().Get("Cache-Control")); strings.Contains(cc, "no-store") || strings.Contains(cc, "private") {
			return
		}
		raw, err := json.Marshal(cachedResponse{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        w.body,
		})
		if err == nil {
			_ = kv.Set(ctx, key, raw, opts.TTL)
		}
	}
}

// PurgeHTTPCache invalidates every cached response.
func PurgeHTTPCache(ctx context.Context, kv KV) error {
	_, err := kv.Incr(ctx, cacheGenKey, 0)
	return err
}

func cacheGeneration(ctx context.Context, kv KV) string {
	raw, ok, err := kv.Get(ctx, cacheGenKey)
	if err != nil || !ok {
		return "0"
	}
	if _, err := strconv.ParseInt(string(raw), 10, 64); err != nil {
		return "0"
	}
	return string(raw)
}
