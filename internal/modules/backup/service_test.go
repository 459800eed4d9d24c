package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestListReadDeletePrune(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"backup-2026-01-01T00-00-00.zip", "backup-2026-02-01T00-00-00.zip", "backup-2026-03-01T00-00-00.zip", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("zip"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	svc := NewService(nil, dir)

	items, err := svc.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || items[0].Filename != "backup-2026-03-01T00-00-00.zip" || items[0].Size != "3 B" {
		t.Fatalf("items = %+v", items)
	}

	if _, err := svc.Read("../etc/passwd.zip"); !errors.Is(err, ErrInvalidFilename) {
		t.Fatalf("traversal err = %v", err)
	}
	if _, err := svc.Read("missing.zip"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}

	removed, err := svc.Prune(1)
	if err != nil || removed != 2 {
		t.Fatalf("prune = %d, %v", removed, err)
	}
	if err := svc.Delete("backup-2026-03-01T00-00-00.zip"); err != nil {
		t.Fatal(err)
	}
	if items, _ := svc.List(); len(items) != 0 {
		t.Fatalf("left = %+v", items)
	}
}

func TestListMissingDir(t *testing.T) {
	items, err := NewService(nil, filepath.Join(t.TempDir(), "nope")).List()
	if err != nil || len(items) != 0 {
		t.Fatalf("items = %v, err = %v", items, err)
	}
}

func TestUploadWithoutStorage(t *testing.T) {
	if _, err := NewService(nil, t.TempDir()).Upload(context.Background()); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("err = %v", err)
	}
}
