package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/pkg/jwt"
)

func init() { gin.SetMode(gin.TestMode) }

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) SetNX(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *memKV) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(string(m.data[key]), 10, 64)
	n++
	m.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (m *memKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type fakeVerifier struct{ touched int }

func (f *fakeVerifier) Verify(token string) (*jwt.Claims, error) {
	switch token {
	case "owner-token":
		return &jwt.Claims{UserID: "u1", SessionID: "s1", Role: "owner"}, nil
	case "staff-token":
		return &jwt.Claims{UserID: "u2", SessionID: "s2", Role: "staff"}, nil
	}
	return nil, errors.New("bad token")
}

func (f *fakeVerifier) Touch(string, string) { f.touched++ }

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	v := &fakeVerifier{}
	r := gin.New()
	r.GET("/me", Auth(v), func(c *gin.Context) { c.String(200, CurrentUserID(c)) })
	r.GET("/owner", Auth(v), RequireRole("owner"), func(c *gin.Context) { c.Status(204) })
	r.GET("/maybe", OptionalAuth(v), func(c *gin.Context) { c.String(200, "%v", IsAuthenticated(c)) })

	if w := do(r, "GET", "/me", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", w.Code)
	}
	if w := do(r, "GET", "/me", "owner-token", ""); w.Code != 200 || w.Body.String() != "u1" {
		t.Fatalf("valid token: %d %q", w.Code, w.Body.String())
	}
	if v.touched == 0 {
		t.Fatalf("session should be touched")
	}
	if w := do(r, "GET", "/owner", "staff-token", ""); w.Code != http.StatusForbidden {
		t.Fatalf("staff on owner route: %d", w.Code)
	}
	if w := do(r, "GET", "/maybe", "junk", ""); w.Code != 200 || w.Body.String() != "false" {
		t.Fatalf("optional auth with junk token: %d %q", w.Code, w.Body.String())
	}
}

func TestNormalizeToken(t *testing.T) {
	for in, want := range map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		" abc ":       "abc",
		"":            "",
	} {
		if got := NormalizeToken(in); got != want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(newMemKV(), 2, time.Minute, zap.NewNop()))
	r.GET("/", func(c *gin.Context) { c.Status(204) })

	for i := 0; i < 2; i++ {
		if w := do(r, "GET", "/", "", ""); w.Code != 204 {
			t.Fatalf("request %d: %d", i, w.Code)
		}
	}
	w := do(r, "GET", "/", "", "")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After 60, got %d %q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestIdempotence(t *testing.T) {
	kv := newMemKV()
	calls := 0
	status := 201
	r := gin.New()
	r.Use(Idempotence(kv))
	r.POST("/designs", func(c *gin.Context) { calls++; c.Status(status) })

	if w := do(r, "POST", "/designs", "", `{"name":"a"}`); w.Code != 201 {
		t.Fatalf("first: %d", w.Code)
	}
	if w := do(r, "POST", "/designs", "", `{"name":"a"}`); w.Code != http.StatusConflict {
		t.Fatalf("repeat: %d", w.Code)
	}
	if w := do(r, "POST", "/designs", "", `{"name":"b"}`); w.Code != 201 {
		t.Fatalf("different body: %d", w.Code)
	}

	status = 500
	do(r, "POST", "/designs", "", `{"name":"c"}`)
	status = 201
	if w := do(r, "POST", "/designs", "", `{"name":"c"}`); w.Code != 201 {
		t.Fatalf("retry after failure should pass: %d", w.Code)
	}
	if calls != 4 {
		t.Fatalf("handler calls = %d, want 4", calls)
	}
}

func TestHTTPCache(t *testing.T) {
	kv := newMemKV()
	hits := 0
	r := gin.New()
	r.Use(HTTPCache(kv, HTTPCacheOptions{}))
	r.GET("/products", func(c *gin.Context) { hits++; c.JSON(200, gin.H{"n": hits}) })

	first := do(r, "GET", "/products", "", "")
	second := do(r, "GET", "/products", "", "")
	if hits != 1 || second.Header().Get(HeaderCache) != "hit" || second.Body.String() != first.Body.String() {
		t.Fatalf("expected cached response, hits=%d header=%q", hits, second.Header().Get(HeaderCache))
	}
	if err := PurgeHTTPCache(context.Background(), kv); err != nil {
		t.Fatalf("purge: %v", err)
	}
	do(r, "GET", "/products", "", "")
	if hits != 2 {
		t.Fatalf("purge should invalidate, hits=%d", hits)
	}
	do(r, "GET", "/products", "owner-token", "")
	if hits != 3 {
		t.Fatalf("authenticated requests bypass the cache, hits=%d", hits)
	}
}

func TestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(Logger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { c.Status(204) })
	w := do(r, "GET", "/", "", "")
	if w.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("missing request id header")
	}
}
