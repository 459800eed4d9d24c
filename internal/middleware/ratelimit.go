package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pkgredis "github.com/sublimart/studio/internal/pkg/redis"
	"github.com/sublimart/studio/internal/pkg/response"
)

// RateLimit allows limit requests per window and client IP. Authenticated
// staff are exempt. Store errors let the request through.
func RateLimit(kv KV, limit int64, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	if window <= 0 {
		window = time.Second
	}
	retryAfter := strconv.FormatInt(max(1, int64(window/time.Second)), 10)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if IsAuthenticated(c) || ip == "" {
			c.Next()
			return
		}

		bucket := time.Now().UnixNano() / int64(window)
		key := pkgredis.Key("rate_limit", ip, strconv.FormatInt(bucket, 10))
		count, err := kv.Incr(c.Request.Context(), key, window+time.Second)
		if err != nil {
			c.Next()
			return
		}
		if count > limit {
			if count == limit+1 {
				log.Warn("rate limited", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			}
			response.TooManyRequests(c, retryAfter)
			return
		}
		c.Next()
	}
}
