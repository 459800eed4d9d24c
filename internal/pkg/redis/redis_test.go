package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestKey(t *testing.T) {
	if got := Key("editor", "abc"); got != "studio:editor:abc" {
		t.Fatalf("Key = %q", got)
	}
	if got := Key(); got != KeyPrefix {
		t.Fatalf("Key() = %q", got)
	}
}

// testClient connects to $REDIS_URL or skips.
func testClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	c, err := Connect(url)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestJSONRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	key := Key("test", uuid.NewString())
	t.Cleanup(func() { _ = c.Del(ctx, key) })

	type payload struct{ Name string }
	if err := c.SetJSON(ctx, key, payload{Name: "mug"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := c.GetJSON(ctx, key, &got); err != nil || got.Name != "mug" {
		t.Fatalf("get: %+v %v", got, err)
	}
	if err := c.GetJSON(ctx, key+":missing", &got); !errors.Is(err, ErrNil) {
		t.Fatalf("expected ErrNil, got %v", err)
	}
}
