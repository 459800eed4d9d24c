package app

import (
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"

	"github.com/sublimart/studio/internal/config"
	"github.com/sublimart/studio/internal/middleware"
)

// corsConfig lets the storefront and admin origins call the API with
// credentials. Development and an empty allow-list accept any origin.
func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After", middleware.HeaderCache, middleware.HeaderRequestID},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) == 0 || cfg.IsDev() {
		c.AllowOriginFunc = func(string) bool { return true }
		return c
	}
	patterns := make([]string, 0, len(cfg.AllowedOrigins))
	for _, p := range cfg.AllowedOrigins {
		patterns = append(patterns, originHost(p))
	}
	c.AllowOriginFunc = func(origin string) bool {
		host := originHost(origin)
		for _, pattern := range patterns {
			if matchOriginPattern(pattern, host) {
				return true
			}
		}
		return false
	}
	return c
}

// originHost lowercases the host[:port] of an origin. Bare hosts and
// patterns pass through.
func originHost(origin string) string {
	origin = strings.ToLower(strings.TrimSpace(origin))
	if !strings.Contains(origin, "://") {
		return origin
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOriginPattern supports exact hosts, "*.domain" subdomains and
// "host:*" for any port.
func matchOriginPattern(pattern, host string) bool {
	switch {
	case pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}
