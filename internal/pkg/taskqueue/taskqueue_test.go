package taskqueue

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	redisc "github.com/sublimart/studio/internal/pkg/redis"
)

func testService(t *testing.T) *Service {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	rc, err := redisc.Connect(url)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	// Start from an empty queue in the test database.
	rc.Raw().Del(context.Background(), keyPending)
	return NewService(rc)
}

func TestDecodePayload(t *testing.T) {
	task := &Task{ID: "t", Payload: []byte(`{"designId":"d1"}`)}
	var p struct {
		DesignID string `json:"designId"`
	}
	if err := task.DecodePayload(&p); err != nil || p.DesignID != "d1" {
		t.Fatalf("decode: %+v %v", p, err)
	}
	if err := (&Task{Payload: []byte("{")}).DecodePayload(&p); err == nil {
		t.Fatalf("expected error for bad payload")
	}
}

func TestEnqueueDeduplicates(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	a, err := s.Enqueue(ctx, "design.preview", map[string]string{"designId": "d1"}, "d1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	b, err := s.Enqueue(ctx, "design.preview", map[string]string{"designId": "d1"}, "d1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("expected dedup to return the pending task")
	}
	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestRunProcessesTasks(t *testing.T) {
	s := testService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	task, err := s.Enqueue(ctx, "echo", map[string]int{"n": 7}, "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	done := make(chan struct{})
	go s.Run(ctx, map[string]Handler{
		"echo": func(_ context.Context, t *Task) (any, error) {
			defer close(done)
			var p map[string]int
			_ = t.DecodePayload(&p)
			return p, nil
		},
	})
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("task was not processed")
	}
	// finish runs right after the handler returns.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := s.GetByID(ctx, task.ID)
		if err == nil && got.Status == TaskCompleted {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("task did not complete")
}
