package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sublimart/studio/internal/pkg/taskqueue"
)

type fakeQueue struct {
	tasks    map[string]*taskqueue.Task
	enqueued []string
	cutoff   time.Time
}

func (f *fakeQueue) List(_ context.Context, _, _ int, taskType string, _ taskqueue.TaskStatus) ([]*taskqueue.Task, int64, error) {
	var out []*taskqueue.Task
	for _, t := range f.tasks {
		if taskType == "" || t.Type == taskType {
			out = append(out, t)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeQueue) GetByID(_ context.Context, id string) (*taskqueue.Task, error) {
	if t, ok := f.tasks[id]; ok {
		return t, nil
	}
	return nil, taskqueue.ErrTaskNotFound
}

func (f *fakeQueue) Enqueue(_ context.Context, taskType string, payload any, _ string) (*taskqueue.Task, error) {
	raw, _ := json.Marshal(payload)
	t := &taskqueue.Task{ID: "new", Type: taskType, Payload: raw, Status: taskqueue.TaskPending}
	f.enqueued = append(f.enqueued, string(raw))
	return t, nil
}

func (f *fakeQueue) DeleteFinished(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return 2, nil
}

func setup() (*gin.Engine, *fakeQueue) {
	gin.SetMode(gin.TestMode)
	q := &fakeQueue{tasks: map[string]*taskqueue.Task{
		"ok":   {ID: "ok", Type: "design.preview", Status: taskqueue.TaskCompleted, Payload: json.RawMessage(`{"designId":"d1"}`)},
		"fail": {ID: "fail", Type: "design.preview", Status: taskqueue.TaskFailed, Payload: json.RawMessage(`{"designId":"d2"}`)},
	}}
	r := gin.New()
	NewHandler(q).RegisterRoutes(r.Group(""))
	return r, q
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRetry(t *testing.T) {
	r, q := setup()
	tests := []struct {
		id     string
		status int
	}{
		{"fail", http.StatusCreated},
		{"ok", http.StatusConflict},
		{"missing", http.StatusNotFound},
	}
	for _, tc := range tests {
		if w := serve(r, "POST", "/tasks/"+tc.id+"/retry"); w.Code != tc.status {
			t.Fatalf("retry %s: expected %d, got %d", tc.id, tc.status, w.Code)
		}
	}
	if len(q.enqueued) != 1 || q.enqueued[0] != `{"designId":"d2"}` {
		t.Fatalf("expected the failed payload re-enqueued, got %v", q.enqueued)
	}
}

func TestListAndPurge(t *testing.T) {
	r, q := setup()
	w := serve(r, "GET", "/tasks?type=design.preview")
	var body struct {
		Data []taskqueue.Task `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || len(body.Data) != 2 {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	if w := serve(r, "DELETE", "/tasks?before=yesterday"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad cutoff, got %d", w.Code)
	}
	if w := serve(r, "DELETE", "/tasks?before=2024-01-02T00:00:00Z"); w.Code != http.StatusOK {
		t.Fatalf("purge: %d", w.Code)
	}
	if !q.cutoff.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected cutoff %v", q.cutoff)
	}
}
