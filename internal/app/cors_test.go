package app

import (
	"testing"

	"github.com/sublimart/studio/internal/config"
)

func TestMatchOriginPattern(t *testing.T) {
	tests := []struct {
		pattern, host string
		want          bool
	}{
		{"shop.example.com", "shop.example.com", true},
		{"*.example.com", "admin.example.com", true},
		{"*.example.com", "example.org", false},
		{"localhost:*", "localhost:5173", true},
		{"localhost:*", "127.0.0.1:5173", false},
	}
	for _, tc := range tests {
		if got := matchOriginPattern(tc.pattern, tc.host); got != tc.want {
			t.Errorf("matchOriginPattern(%q, %q) = %v, want %v", tc.pattern, tc.host, got, tc.want)
		}
	}
}

func TestCorsConfig(t *testing.T) {
	cfg := &config.AppConfig{Env: "production", AllowedOrigins: []string{"*.sublimart.shop"}}
	c := corsConfig(cfg)
	if !c.AllowOriginFunc("https://admin.sublimart.shop") {
		t.Fatalf("expected admin origin to be allowed")
	}
	if c.AllowOriginFunc("https://evil.example") {
		t.Fatalf("expected foreign origin to be rejected")
	}

	full := corsConfig(&config.AppConfig{Env: "production", AllowedOrigins: []string{"https://Shop.Sublimart.shop"}})
	if !full.AllowOriginFunc("https://shop.sublimart.shop") {
		t.Fatalf("expected full origin entry to match its host")
	}

	cfg.Env = "development"
	if !corsConfig(cfg).AllowOriginFunc("https://evil.example") {
		t.Fatalf("expected development to allow every origin")
	}
}
