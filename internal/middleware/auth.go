package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sublimart/studio/internal/pkg/jwt"
	"github.com/sublimart/studio/internal/pkg/response"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeySID    = "session_id"
	ContextKeyRole   = "role"
)

// TokenVerifier checks a bearer token; *session.Manager implements it.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
	Touch(userID, sessionID string)
}

// Auth rejects requests without a valid token.
func Auth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := v.Verify(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		setClaims(c, v, claims)
		c.Next()
	}
}

// OptionalAuth sets the user when a valid token is present and never blocks.
func OptionalAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if claims, err := v.Verify(token); err == nil {
				setClaims(c, v, claims)
			}
		}
		c.Next()
	}
}

// RequireRole must run after Auth; it allows only the listed roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c)
	}
}

func setClaims(c *gin.Context, v TokenVerifier, claims *jwt.Claims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyRole, claims.Role)
	if claims.SessionID != "" {
		c.Set(ContextKeySID, claims.SessionID)
		v.Touch(claims.UserID, claims.SessionID)
	}
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string { return c.GetString(ContextKeyUserID) }

// CurrentSessionID extracts the authenticated session ID from context.
func CurrentSessionID(c *gin.Context) string { return c.GetString(ContextKeySID) }

// CurrentRole extracts the authenticated user's role from context.
func CurrentRole(c *gin.Context) string { return c.GetString(ContextKeyRole) }

// IsAuthenticated returns true if the request carried a valid token.
func IsAuthenticated(c *gin.Context) bool { return CurrentUserID(c) != "" }

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
