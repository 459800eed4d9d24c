package editor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	canvas "github.com/sublimart/studio/internal/canvas/editor"
	"github.com/sublimart/studio/internal/canvas/viewport"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	r, _ := testRouterWith(t, Config{})
	return r
}

func testRouterWith(t *testing.T, cfg Config) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newTestServiceWith(t, NewMemoryStore(), cfg)
	r := gin.New()
	auth := func(c *gin.Context) {
		uid := c.GetHeader("X-User")
		if uid == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("user_id", uid)
		c.Set("role", "staff")
		c.Next()
	}
	NewHandler(svc).RegisterRoutes(r.Group(""), auth)
	return r, svc
}

func do(r http.Handler, method, path, body, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) sessionView {
	t.Helper()
	var v sessionView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v (%s)", err, w.Body.String())
	}
	return v
}

func openSession(t *testing.T, r http.Handler) string {
	t.Helper()
	w := do(r, "POST", "/editor/sessions", `{"productId":"p1","container":{"width":600,"height":400}}`, "u1")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	return decodeView(t, w).ID
}

func TestEditorRequiresAuth(t *testing.T) {
	r := testRouter(t)
	if w := do(r, "GET", "/editor/sessions", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	id := openSession(t, r)
	if w := do(r, "GET", "/editor/sessions/"+id, "", "u2"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user, got %d", w.Code)
	}
}

func TestAddElementAssignsArea(t *testing.T) {
	r := testRouter(t)
	id := openSession(t, r)

	w := do(r, "POST", "/editor/sessions/"+id+"/elements", `{"type":"text","text":"Hola","x":320,"y":20}`, "u1")
	if w.Code != http.StatusOK {
		t.Fatalf("add: %d %s", w.Code, w.Body.String())
	}
	v := decodeView(t, w)
	if len(v.Elements) != 1 || v.Elements[0].Base().AreaID != "back" {
		t.Fatalf("expected element in back area, got %+v", v.Elements)
	}
	if !v.CanUndo || v.History[len(v.History)-1].Action != "add_text" {
		t.Fatalf("expected add_text in history, got %+v", v.History)
	}

	do(r, "POST", "/editor/sessions/"+id+"/elements", `{"type":"text","text":"a","x":10,"y":10}`, "u1")
	w = do(r, "POST", "/editor/sessions/"+id+"/elements", `{"type":"text","text":"b","x":20,"y":20}`, "u1")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a full area, got %d %s", w.Code, w.Body.String())
	}
	if w := do(r, "POST", "/editor/sessions/"+id+"/elements", `{"type":"sticker"}`, "u1"); w.Code < 400 {
		t.Fatalf("expected unsupported type to fail, got %d", w.Code)
	}
}

func TestUpdateUndoRedo(t *testing.T) {
	r := testRouter(t)
	id := openSession(t, r)
	w := do(r, "POST", "/editor/sessions/"+id+"/elements", `{"id":"t1","type":"text","text":"Hola","x":10,"y":10}`, "u1")
	if w.Code != http.StatusOK {
		t.Fatalf("add: %d %s", w.Code, w.Body.String())
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"move", "PATCH", "/elements/t1", `{"x":50}`, http.StatusOK},
		{"unknown element", "PATCH", "/elements/nope", `{"x":50}`, http.StatusNotFound},
		{"immutable id", "PATCH", "/elements/t1", `{"id":"other"}`, http.StatusUnprocessableEntity},
		{"empty patch", "PATCH", "/elements/t1", `{}`, http.StatusBadRequest},
		{"bad order op", "POST", "/order", `{"id":"t1","op":"sideways"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.method, "/editor/sessions/"+id+tc.path, tc.body, "u1")
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d %s", tc.status, w.Code, w.Body.String())
			}
		})
	}

	w = do(r, "POST", "/editor/sessions/"+id+"/undo", "", "u1")
	if v := decodeView(t, w); v.Elements[0].Base().X != 10 || !v.CanRedo {
		t.Fatalf("expected undo to restore x=10, got %+v", v.Elements[0].Base())
	}
	w = do(r, "POST", "/editor/sessions/"+id+"/redo", "", "u1")
	if v := decodeView(t, w); v.Elements[0].Base().X != 50 {
		t.Fatalf("expected redo to reapply x=50, got %+v", v.Elements[0].Base())
	}

	w = do(r, "GET", "/editor/sessions/"+id+"/history", "", "u1")
	var hist struct {
		Entries []struct {
			Action  string `json:"action"`
			Current bool   `json:"current"`
		} `json:"entries"`
		CanUndo bool `json:"canUndo"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	last := hist.Entries[len(hist.Entries)-1]
	if last.Action != "update_element" || !last.Current || !hist.CanUndo {
		t.Fatalf("unexpected history %+v", hist)
	}
}

func TestSelectionAndOrder(t *testing.T) {
	r := testRouter(t)
	id := openSession(t, r)
	base := "/editor/sessions/" + id
	do(r, "POST", base+"/elements", `{"id":"a","type":"text","text":"a","x":310,"y":10}`, "u1")
	do(r, "POST", base+"/elements", `{"id":"b","type":"text","text":"b","x":320,"y":20}`, "u1")

	w := do(r, "POST", base+"/order", `{"id":"a","op":"front"}`, "u1")
	if v := decodeView(t, w); v.Elements[1].Base().ID != "a" {
		t.Fatalf("expected a on top, got %v", v.Elements)
	}

	w = do(r, "POST", base+"/selection", `{"id":"a"}`, "u1")
	if v := decodeView(t, w); len(v.Selected) != 1 || v.Selected[0] != "a" {
		t.Fatalf("expected a selected, got %v", v.Selected)
	}
	w = do(r, "DELETE", base+"/selection/elements", "", "u1")
	v := decodeView(t, w)
	if len(v.Elements) != 1 || len(v.Selected) != 0 {
		t.Fatalf("expected selection deleted, got %v / %v", v.Elements, v.Selected)
	}

	w = do(r, "POST", base+"/elements/b/duplicate", "", "u1")
	if v := decodeView(t, w); len(v.Elements) != 2 || v.Elements[1].Base().X != v.Elements[0].Base().X+20 {
		t.Fatalf("expected offset duplicate, got %v", v.Elements)
	}
}

func TestViewportAndPointer(t *testing.T) {
	r := testRouter(t)
	id := openSession(t, r)
	base := "/editor/sessions/" + id
	do(r, "POST", base+"/elements", `{"id":"t1","type":"text","text":"Hola","x":10,"y":10,"width":100}`, "u1")

	w := do(r, "POST", base+"/viewport", `{"op":"reset"}`, "u1")
	fitted := decodeView(t, w).View.Scale
	if fitted <= 0 || fitted > 1 {
		t.Fatalf("expected reset to fit the container, got %v", fitted)
	}
	w = do(r, "POST", base+"/viewport", `{"op":"zoom_in"}`, "u1")
	if v := decodeView(t, w); v.View.Scale <= fitted {
		t.Fatalf("expected zoom in past %v, got %v", fitted, v.View.Scale)
	}
	if w := do(r, "POST", base+"/viewport", `{"op":"fit"}`, "u1"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected fit without container to fail, got %d", w.Code)
	}
	do(r, "POST", base+"/viewport", `{"op":"reset"}`, "u1")
	w = do(r, "POST", base+"/viewport", `{"op":"pan","dx":-1000,"dy":-1000}`, "u1")
	v := decodeView(t, w)

	x, y := 20*v.View.Scale+v.View.Position.X, 20*v.View.Scale+v.View.Position.Y
	body, _ := json.Marshal(map[string]float64{"x": x, "y": y})
	w = do(r, "POST", base+"/pointer", string(body), "u1")
	var got struct {
		Position struct{ X, Y float64 } `json:"position"`
		Element  *struct {
			ID string `json:"id"`
		} `json:"element"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Element == nil || got.Element.ID != "t1" {
		t.Fatalf("expected t1 under the pointer, got %s", w.Body.String())
	}
}

func TestHandlersUseConfiguredLimits(t *testing.T) {
	cfg := Config{
		Viewport:     viewport.Config{MinZoom: 0.1, MaxZoom: 20},
		HistoryLimit: 100,
	}
	r, svc := testRouterWith(t, cfg)
	id := openSession(t, r)
	ctx := context.Background()

	_, _, err := svc.Do(ctx, "u1", id, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		ed.Viewport().Restore(viewport.State{Scale: 10})
		return nil, "", nil
	})
	if err != nil {
		t.Fatalf("zoom: %v", err)
	}
	w := do(r, "POST", "/editor/sessions/"+id+"/pointer", `{"x":100,"y":100}`, "u1")
	var got struct {
		Position struct{ X, Y float64 } `json:"position"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Position.X != 10 || got.Position.Y != 10 {
		t.Fatalf("expected pointer at 10,10 with scale 10, got %+v", got.Position)
	}

	for i := 0; i < 70; i++ {
		if _, _, err := svc.Do(ctx, "u1", id, func(*canvas.Editor, *Session) (any, string, error) {
			return nil, "touch", nil
		}); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}
	w = do(r, "GET", "/editor/sessions/"+id+"/history", "", "u1")
	var hist struct {
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Entries) != 71 {
		t.Fatalf("expected 71 history entries, got %d", len(hist.Entries))
	}
	if v := decodeView(t, do(r, "GET", "/editor/sessions/"+id, "", "u1")); len(v.History) != 71 {
		t.Fatalf("expected session view to keep 71 entries, got %d", len(v.History))
	}
}

func TestUpdateElementSnapsToAreaEdges(t *testing.T) {
	r := testRouter(t)
	id := openSession(t, r)
	base := "/editor/sessions/" + id
	do(r, "POST", base+"/elements", `{"id":"t1","type":"text","text":"Hola","x":320,"y":20}`, "u1")

	w := do(r, "PATCH", base+"/elements/t1", `{"x":305,"y":6,"snap":true}`, "u1")
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}
	v := decodeView(t, w)
	if b := v.Elements[0].Base(); b.X != 300 || b.Y != 0 {
		t.Fatalf("expected snap to back area corner, got %v,%v", b.X, b.Y)
	}

	// snap alone pulls the element without other changes
	do(r, "PATCH", base+"/elements/t1", `{"x":492}`, "u1")
	w = do(r, "PATCH", base+"/elements/t1", `{"snap":true}`, "u1")
	if b := decodeView(t, w).Elements[0].Base(); b.X != 500 || b.Y != 0 {
		t.Fatalf("expected snap to right edge, got %v,%v", b.X, b.Y)
	}
	if w := do(r, "PATCH", base+"/elements/nope", `{"snap":true}`, "u1"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown element, got %d", w.Code)
	}
}

func TestSaveSession(t *testing.T) {
	r := testRouter(t)
	id := openSession(t, r)
	do(r, "POST", "/editor/sessions/"+id+"/elements", `{"type":"text","text":"Hola","x":10,"y":10}`, "u1")
	w := do(r, "POST", "/editor/sessions/"+id+"/save", `{"name":"Regalo"}`, "u1")
	if w.Code != http.StatusOK {
		t.Fatalf("save: %d %s", w.Code, w.Body.String())
	}
	var got struct {
		DesignID string `json:"designId"`
		Name     string `json:"name"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.DesignID == "" || got.Name != "Regalo" {
		t.Fatalf("unexpected save result %s", w.Body.String())
	}
	w = do(r, "GET", "/editor/sessions/"+id, "", "u1")
	if v := decodeView(t, w); v.DesignID != got.DesignID {
		t.Fatalf("expected session bound to %s, got %q", got.DesignID, v.DesignID)
	}
}
