// Package backup snapshots the studio tables into a zip of BSON streams
// and restores them.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const filenameLayout = "2006-01-02T15-04-05"

var (
	ErrNotFound        = errors.New("backup not found")
	ErrInvalidFilename = errors.New("invalid backup filename")
	ErrStorageDisabled = errors.New("object storage is not configured")
)

// Uploader is the object store that receives remote copies.
type Uploader interface {
	Key(name string) string
	Upload(ctx context.Context, key, contentType string, data []byte) error
}

// Item is one archive on disk.
type Item struct {
	Filename  string    `json:"filename"`
	Size      string    `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Artifact is a freshly written archive.
type Artifact struct {
	Filename string
	Data     []byte
}

type Service struct {
	db       *gorm.DB
	dir      string
	uploader Uploader
	logger   *zap.Logger
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("BackupService")
		}
	}
}

// WithUploader enables remote copies.
func WithUploader(u Uploader) ServiceOption {
	return func(s *Service) { s.uploader = u }
}

func NewService(db *gorm.DB, dir string, opts ...ServiceOption) *Service {
	s := &Service{db: db, dir: dir, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create dumps every table and writes the archive to the backup dir.
func (s *Service) Create(ctx context.Context) (*Artifact, error) {
	tables := rowSet{}
	for _, table := range tableNames {
		var rows []map[string]any
		if err := s.db.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("dump %s: %w", table, err)
		}
		tables[table] = rows
	}

	now := s.now()
	data, err := writeArchive(tables, now)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	name := "backup-" + now.Format(filenameLayout) + ".zip"
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return nil, err
	}
	s.logger.Info("backup created", zap.String("file", name), zap.Int("bytes", len(data)))
	return &Artifact{Filename: name, Data: data}, nil
}

// List returns archives newest first.
func (s *Service) List() ([]Item, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Item{}, nil
		}
		return nil, err
	}
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, Item{
			Filename:  e.Name(),
			Size:      formatSize(info.Size()),
			CreatedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Filename > items[j].Filename })
	return items, nil
}

func (s *Service) path(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base != name || !strings.HasSuffix(base, ".zip") {
		return "", ErrInvalidFilename
	}
	return filepath.Join(s.dir, base), nil
}

// Read returns the archive bytes.
func (s *Service) Read(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *Service) Delete(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Prune keeps the newest keep archives and removes the rest.
func (s *Service) Prune(keep int) (int, error) {
	items, err := s.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := keep; i < len(items); i++ {
		if err := s.Delete(items[i].Filename); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Upload creates a fresh archive and copies it to object storage under
// backups/<year>/<month>/.
func (s *Service) Upload(ctx context.Context) (string, error) {
	if s.uploader == nil {
		return "", ErrStorageDisabled
	}
	artifact, err := s.Create(ctx)
	if err != nil {
		return "", err
	}
	key := s.uploader.Key(fmt.Sprintf("backups/%s/%s", s.now().Format("2006/01"), artifact.Filename))
	if err := s.uploader.Upload(ctx, key, "application/zip", artifact.Data); err != nil {
		return "", err
	}
	s.logger.Info("backup uploaded", zap.String("key", key))
	return key, nil
}

// RunScheduled writes an archive, copies it to object storage when one
// is configured, and keeps only the newest keep archives on disk.
func (s *Service) RunScheduled(ctx context.Context, keep int) error {
	var err error
	if s.uploader != nil {
		_, err = s.Upload(ctx)
	} else {
		_, err = s.Create(ctx)
	}
	if err != nil {
		return err
	}
	removed, err := s.Prune(keep)
	if removed > 0 {
		s.logger.Info("old backups pruned", zap.Int("count", removed))
	}
	return err
}

// Restore replaces the contents of every table present in the archive.
// It runs in one transaction; duplicate rows inside an archive are
// skipped.
func (s *Service) Restore(ctx context.Context, data []byte) error {
	tables, manifest, err := readArchive(data)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "mysql" {
			if err := tx.Exec("SET FOREIGN_KEY_CHECKS = 0").Error; err != nil {
				return err
			}
			defer tx.Exec("SET FOREIGN_KEY_CHECKS = 1")
		}
		for _, table := range tableNames {
			rows, ok := tables[table]
			if !ok {
				continue
			}
			columns, err := loadColumns(tx, table)
			if err != nil {
				return fmt.Errorf("load columns for %s: %w", table, err)
			}
			if err := tx.Exec("DELETE FROM `" + table + "`").Error; err != nil {
				return err
			}
			skipped := 0
			for i, raw := range rows {
				row := normalizeRow(raw, columns)
				if len(row) == 0 {
					continue
				}
				if err := tx.Table(table).Create(row).Error; err != nil {
					if isDuplicateError(err) {
						skipped++
						continue
					}
					return fmt.Errorf("insert row #%d into %s: %w", i+1, table, err)
				}
			}
			s.logger.Debug("table restored",
				zap.String("table", table), zap.Int("rows", len(rows)), zap.Int("skipped", skipped))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("backup restored",
		zap.Time("createdAt", manifest.CreatedAt), zap.Strings("tables", manifest.Tables))
	return nil
}

func loadColumns(db *gorm.DB, table string) (map[string]string, error) {
	types, err := db.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(types))
	for _, ct := range types {
		out[strings.ToLower(ct.Name())] = ct.DatabaseTypeName()
	}
	return out, nil
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
