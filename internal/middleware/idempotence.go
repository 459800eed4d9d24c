package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	pkgredis "github.com/sublimart/studio/internal/pkg/redis"
	"github.com/sublimart/studio/internal/pkg/response"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	idempotenceTTL       = 60 * time.Second
)

// Idempotence rejects a repeat of the same write within a minute: while
// the first is in flight, and after it succeeded. The key is the
// Idempotency-Key header, or a hash of method, URL, body and caller.
// A failed request releases its key so it can be retried.
func Idempotence(kv KV) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		key, err := idempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		redisKey := pkgredis.Key("idempotence", key)
		ok, err := kv.SetNX(ctx, redisKey, []byte("0"), idempotenceTTL)
		if err != nil {
			c.Next()
			return
		}
		if !ok {
			msg := "identical request already succeeded, wait before repeating it"
			if val, found, _ := kv.Get(ctx, redisKey); found && string(val) == "0" {
				msg = "identical request is still being processed"
			}
			response.Conflict(c, msg)
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			_ = kv.Set(ctx, redisKey, []byte("1"), idempotenceTTL)
		} else {
			_ = kv.Del(ctx, redisKey)
		}
	}
}

func idempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(HeaderIdempotencyKey); hdr != "" {
		return CurrentUserID(c) + ":" + hdr, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	h := sha256.New()
	for _, part := range []string{
		c.Request.Method, c.Request.URL.String(), string(body),
		c.ClientIP(), c.Request.UserAgent(), extractToken(c),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
