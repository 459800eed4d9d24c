package backup

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeService struct {
	files    map[string][]byte
	restored []byte
	upload   error
}

func (f *fakeService) Create(context.Context) (*Artifact, error) {
	return &Artifact{Filename: "backup-new.zip", Data: []byte("PK")}, nil
}

func (f *fakeService) List() ([]Item, error) {
	items := []Item{}
	for name := range f.files {
		items = append(items, Item{Filename: name})
	}
	return items, nil
}

func (f *fakeService) Read(name string) ([]byte, error) {
	if data, ok := f.files[name]; ok {
		return data, nil
	}
	return nil, ErrNotFound
}

func (f *fakeService) Delete(name string) error {
	if _, ok := f.files[name]; !ok {
		return ErrNotFound
	}
	delete(f.files, name)
	return nil
}

func (f *fakeService) Upload(context.Context) (string, error) {
	return "backups/2026/03/backup-new.zip", f.upload
}

func (f *fakeService) Restore(_ context.Context, data []byte) error {
	if string(data) == "bad" {
		return ErrInvalidArchive
	}
	f.restored = data
	return nil
}

func setup() (*gin.Engine, *fakeService, *int) {
	gin.SetMode(gin.TestMode)
	svc := &fakeService{files: map[string][]byte{"a.zip": []byte("archive-a")}}
	hooks := 0
	r := gin.New()
	NewHandler(svc, WithRestoreHook(func(context.Context) error {
		hooks++
		return nil
	})).RegisterRoutes(r.Group(""))
	return r, svc, &hooks
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDownloadAndCreate(t *testing.T) {
	r, _, _ := setup()

	w := do(r, httptest.NewRequest(http.MethodGet, "/backups/new", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("new = %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="backup-new.zip"` {
		t.Fatalf("disposition = %q", got)
	}

	if w := do(r, httptest.NewRequest(http.MethodGet, "/backups/a.zip", nil)); w.Body.String() != "archive-a" {
		t.Fatalf("download = %d %s", w.Code, w.Body.String())
	}
	if w := do(r, httptest.NewRequest(http.MethodGet, "/backups/b.zip", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("missing = %d", w.Code)
	}
}

func TestRestoreFromUpload(t *testing.T) {
	r, svc, hooks := setup()

	upload := func(content string) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		part, _ := mw.CreateFormFile("file", "backup.zip")
		_, _ = part.Write([]byte(content))
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/backups", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return do(r, req)
	}

	if w := upload("good"); w.Code != http.StatusOK || string(svc.restored) != "good" || *hooks != 1 {
		t.Fatalf("restore = %d %s hooks=%d", w.Code, w.Body.String(), *hooks)
	}
	if w := upload("bad"); w.Code != http.StatusUnprocessableEntity || *hooks != 1 {
		t.Fatalf("bad archive = %d hooks=%d", w.Code, *hooks)
	}
	if w := do(r, httptest.NewRequest(http.MethodPost, "/backups", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("no file = %d", w.Code)
	}
}

func TestRollbackAndDelete(t *testing.T) {
	r, svc, _ := setup()

	if w := do(r, httptest.NewRequest(http.MethodPatch, "/backups/a.zip", nil)); w.Code != http.StatusOK || string(svc.restored) != "archive-a" {
		t.Fatalf("rollback = %d", w.Code)
	}
	if w := do(r, httptest.NewRequest(http.MethodDelete, "/backups/a.zip", nil)); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(r, httptest.NewRequest(http.MethodDelete, "/backups/a.zip", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("delete again = %d", w.Code)
	}
}

func TestUploadToS3(t *testing.T) {
	r, svc, _ := setup()

	if w := do(r, httptest.NewRequest(http.MethodPost, "/backups/upload-to-s3", nil)); w.Code != http.StatusCreated {
		t.Fatalf("upload = %d", w.Code)
	}
	svc.upload = ErrStorageDisabled
	if w := do(r, httptest.NewRequest(http.MethodPost, "/backups/upload-to-s3", nil)); w.Code != http.StatusConflict {
		t.Fatalf("disabled = %d", w.Code)
	}
}
