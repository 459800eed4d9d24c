package design

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sublimart/studio/internal/canvas/area"
	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/models"
	"github.com/sublimart/studio/internal/pkg/pagination"
	"github.com/sublimart/studio/internal/pkg/response"
)

type fakeService struct {
	designs  map[string]*models.DesignModel
	imported []byte
}

func (f *fakeService) List(q pagination.Query, _ ListFilter) ([]models.DesignModel, response.Pagination, error) {
	var out []models.DesignModel
	for _, d := range f.designs {
		out = append(out, *d)
	}
	return out, pagination.Meta(int64(len(out)), q), nil
}

func (f *fakeService) Get(id string) (*models.DesignModel, error) {
	if d, ok := f.designs[id]; ok {
		return d, nil
	}
	return nil, ErrNotFound
}

func (f *fakeService) Validate(dto *SaveDesignDTO) (element.List, error) {
	if dto.ProductID != "p1" {
		return nil, ErrProductNotFound
	}
	return Validate(dto.Elements, frontArea())
}

func (f *fakeService) Create(_ context.Context, actor Actor, dto *SaveDesignDTO) (*models.DesignModel, error) {
	list, err := f.Validate(dto)
	if err != nil {
		return nil, err
	}
	d := &models.DesignModel{UserID: actor.UserID}
	if err := fill(d, dto, list); err != nil {
		return nil, err
	}
	d.ID = "d-new"
	f.designs[d.ID] = d
	return d, nil
}

func (f *fakeService) Update(_ context.Context, actor Actor, id string, dto *SaveDesignDTO) (*models.DesignModel, error) {
	d, err := f.Get(id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(d.UserID) {
		return nil, ErrForbidden
	}
	return d, nil
}

func (f *fakeService) Delete(_ context.Context, actor Actor, id string) error {
	d, err := f.Get(id)
	if err != nil {
		return err
	}
	if !actor.CanModify(d.UserID) {
		return ErrForbidden
	}
	delete(f.designs, id)
	return nil
}

func (f *fakeService) Preview(_ context.Context, id string, _ bool) ([]byte, error) {
	if _, err := f.Get(id); err != nil {
		return nil, err
	}
	return []byte("\x89PNG fake"), nil
}

func (f *fakeService) Import(_ context.Context, _ Actor, payload []byte, _ string) (ImportReport, error) {
	f.imported = payload
	if _, err := splitDump(payload); err != nil {
		return ImportReport{}, err
	}
	return ImportReport{Imported: 1, Errors: []string{}}, nil
}

// users: "owner" and "staff"; the header value is the user id and role.
func fakeAuth(c *gin.Context) {
	id := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if id == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Set("user_id", id)
	c.Set("role", id)
	c.Next()
}

func setup(t *testing.T) (*gin.Engine, *fakeService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	d := &models.DesignModel{Name: "Ana", ProductID: "p1", UserID: "owner"}
	d.ID = "d1"
	f := &fakeService{designs: map[string]*models.DesignModel{"d1": d}}
	r := gin.New()
	NewHandler(f).RegisterRoutes(r.Group(""), fakeAuth)
	return r, f
}

func call(r http.Handler, method, path, user string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateDesign(t *testing.T) {
	r, _ := setup(t)
	body, _ := json.Marshal(SaveDesignDTO{
		Name: "Mi taza", ProductID: "p1",
		Elements: []element.BackendElement{rect("a", "front", 20, 20)},
	})
	w := call(r, "POST", "/designs", "staff", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var got designResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.UserID != "staff" || len(got.Elements) != 1 || got.Elements[0].KonvaAttrs["listening"] != true {
		t.Fatalf("unexpected design %+v", got)
	}
	if string(got.CanvasConfig) != "{}" {
		t.Fatalf("canvasConfig = %s", got.CanvasConfig)
	}
}

func TestCreateDesignValidationFailure(t *testing.T) {
	r, _ := setup(t)
	body, _ := json.Marshal(SaveDesignDTO{
		Name: "Mi taza", ProductID: "p1",
		Elements: []element.BackendElement{rect("far", "front", 290, 290)},
	})
	w := call(r, "POST", "/designs", "staff", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var res struct {
		Errors ValidationError `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Errors.Areas) != 1 || res.Errors.Areas[0].Code != area.CodeOutOfBounds {
		t.Fatalf("violations = %+v", res.Errors)
	}

	body, _ = json.Marshal(SaveDesignDTO{Name: "x", ProductID: "nope"})
	if w := call(r, "POST", "/designs", "staff", body); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown product: %d", w.Code)
	}
	if w := call(r, "POST", "/designs", "staff", []byte(`{"name":"x"}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("missing productId: %d", w.Code)
	}
}

func TestOwnershipAndNotFound(t *testing.T) {
	r, _ := setup(t)
	body, _ := json.Marshal(SaveDesignDTO{Name: "x", ProductID: "p1"})
	if w := call(r, "PUT", "/designs/d1", "staff", body); w.Code != http.StatusForbidden {
		t.Fatalf("staff editing owner design: %d", w.Code)
	}
	if w := call(r, "DELETE", "/designs/missing", "owner", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing design: %d", w.Code)
	}
	if w := call(r, "DELETE", "/designs/d1", "owner", nil); w.Code != http.StatusNoContent {
		t.Fatalf("owner delete: %d", w.Code)
	}
	if w := call(r, "GET", "/designs", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: %d", w.Code)
	}
}

func TestPreviewServesPNG(t *testing.T) {
	r, _ := setup(t)
	w := call(r, "GET", "/designs/d1/preview", "staff", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("preview: %d %q", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestImportRequiresOwner(t *testing.T) {
	r, f := setup(t)
	payload := dump(t, map[string]any{"name": "legacy"})
	if w := call(r, "POST", "/designs/import", "staff", payload); w.Code != http.StatusForbidden {
		t.Fatalf("staff import: %d", w.Code)
	}
	w := call(r, "POST", "/designs/import", "owner", payload)
	if w.Code != http.StatusOK || !bytes.Equal(f.imported, payload) {
		t.Fatalf("owner import: %d %s", w.Code, w.Body.String())
	}
	if w := call(r, "POST", "/designs/import", "owner", []byte{1, 2}); w.Code != http.StatusBadRequest {
		t.Fatalf("corrupt dump: %d", w.Code)
	}
}
