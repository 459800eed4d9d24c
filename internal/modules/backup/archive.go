package backup

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strings"
	"time"
	"unicode"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	archiveRoot   = "studio"
	archiveDBDir  = archiveRoot + "/db"
	manifestFile  = archiveRoot + "/manifest.json"
	archiveFormat = "studio-bson"
	formatVersion = 1
)

// ErrInvalidArchive is returned for uploads that are not studio backups.
var ErrInvalidArchive = errors.New("invalid backup archive")

// tableNames is the export order. Restore follows the same order so
// parents exist before their children.
var tableNames = []string{"users", "user_sessions", "products", "designs"}

// Manifest describes an archive.
type Manifest struct {
	Format    string    `json:"format"`
	Version   int       `json:"version"`
	Engine    string    `json:"engine"`
	CreatedAt time.Time `json:"createdAt"`
	Tables    []string  `json:"tables"`
}

type rowSet map[string][]map[string]any

// writeArchive packs one BSON stream per table plus a manifest.
func writeArchive(tables rowSet, now time.Time) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	exported := make([]string, 0, len(tables))
	for _, table := range tableNames {
		rows, ok := tables[table]
		if !ok {
			continue
		}
		payload, err := encodeBSONRows(rows)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", table, err)
		}
		f, err := w.Create(path.Join(archiveDBDir, table+".bson"))
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(payload); err != nil {
			return nil, err
		}
		exported = append(exported, table)
	}

	manifest, err := json.Marshal(Manifest{
		Format:    archiveFormat,
		Version:   formatVersion,
		Engine:    "mysql",
		CreatedAt: now.UTC(),
		Tables:    exported,
	})
	if err != nil {
		return nil, err
	}
	mf, err := w.Create(manifestFile)
	if err != nil {
		return nil, err
	}
	if _, err := mf.Write(manifest); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readArchive unpacks the tables this service knows about. Unknown
// entries are ignored; a missing or foreign manifest is an error.
func readArchive(data []byte) (rowSet, *Manifest, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, ErrInvalidArchive
	}

	var manifest *Manifest
	tables := rowSet{}
	for _, file := range zr.File {
		name := path.Clean(file.Name)
		switch {
		case name == manifestFile:
			raw, err := readZipFile(file)
			if err != nil {
				return nil, nil, err
			}
			var m Manifest
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, nil, fmt.Errorf("%w: manifest: %v", ErrInvalidArchive, err)
			}
			manifest = &m
		case path.Dir(name) == archiveDBDir && strings.HasSuffix(name, ".bson"):
			table := strings.TrimSuffix(path.Base(name), ".bson")
			if !knownTable(table) {
				continue
			}
			raw, err := readZipFile(file)
			if err != nil {
				return nil, nil, err
			}
			rows, err := decodeBSONRows(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, table, err)
			}
			tables[table] = rows
		}
	}

	if manifest == nil || manifest.Format != archiveFormat {
		return nil, nil, ErrInvalidArchive
	}
	if manifest.Version > formatVersion {
		return nil, nil, fmt.Errorf("%w: version %d is newer than %d", ErrInvalidArchive, manifest.Version, formatVersion)
	}
	return tables, manifest, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func knownTable(name string) bool {
	for _, t := range tableNames {
		if t == name {
			return true
		}
	}
	return false
}

func encodeBSONRows(rows []map[string]any) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	for _, row := range rows {
		doc := make(map[string]any, len(row))
		for key, value := range row {
			doc[key] = normalizeExportValue(value)
		}
		b, err := bson.Marshal(doc)
		if err != nil {
			return nil, err
		}
		buffer.Write(b)
	}
	return buffer.Bytes(), nil
}

// decodeBSONRows splits a concatenated BSON stream on the int32 length
// prefix of each document.
func decodeBSONRows(payload []byte) ([]map[string]any, error) {
	rows := make([]map[string]any, 0)
	cursor := 0
	for cursor < len(payload) {
		if cursor+4 > len(payload) {
			return nil, fmt.Errorf("truncated bson payload")
		}
		docLen := int(int32(binary.LittleEndian.Uint32(payload[cursor : cursor+4])))
		if docLen <= 0 || cursor+docLen > len(payload) {
			return nil, fmt.Errorf("invalid bson document length")
		}
		var row map[string]any
		if err := bson.Unmarshal(payload[cursor:cursor+docLen], &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		cursor += docLen
	}
	return rows, nil
}

// normalizeExportValue turns driver byte slices (JSON and text columns)
// into strings so they round-trip as BSON strings.
func normalizeExportValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeExportValue(item)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, normalizeExportValue(item))
		}
		return out
	default:
		return value
	}
}

func normalizeBSONValue(value any) any {
	switch v := value.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return nil
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(v.T), 0).UTC()
	case primitive.Decimal128:
		return v.String()
	case primitive.Binary:
		return string(v.Data)
	case primitive.D:
		out := make(map[string]any, len(v))
		for _, item := range v {
			out[item.Key] = normalizeBSONValue(item.Value)
		}
		return out
	case primitive.M:
		return normalizeBSONValue(map[string]any(v))
	case primitive.A:
		return normalizeBSONValue([]any(v))
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeBSONValue(item)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, normalizeBSONValue(item))
		}
		return out
	default:
		return value
	}
}

// normalizeRow maps a decoded document onto the live table columns.
// Keys are matched in snake_case; columns the table no longer has are
// dropped so older archives still restore after a migration.
func normalizeRow(row map[string]any, columns map[string]string) map[string]any {
	out := make(map[string]any, len(row))
	for key, value := range row {
		column := camelToSnake(key)
		dbType, ok := columns[column]
		if !ok {
			continue
		}
		v, ok := normalizeColumnValue(normalizeBSONValue(value), dbType)
		if !ok {
			continue
		}
		out[column] = v
	}
	return out
}

func normalizeColumnValue(value any, dbType string) (any, bool) {
	dbType = strings.ToUpper(dbType)
	switch {
	case value == nil:
		return nil, true
	case strings.Contains(dbType, "JSON"):
		switch value.(type) {
		case map[string]any, []any:
			b, err := json.Marshal(value)
			if err != nil {
				return nil, false
			}
			return string(b), true
		}
	case strings.Contains(dbType, "TIME") || strings.Contains(dbType, "DATE"):
		switch v := value.(type) {
		case string:
			if t, ok := parseTimeString(v); ok {
				return t, true
			}
			return nil, false
		case int64:
			return unixNumberToTime(float64(v))
		case float64:
			return unixNumberToTime(v)
		}
	}
	return value, true
}

func unixNumberToTime(value float64) (any, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, false
	}
	if math.Abs(value) >= 1e11 {
		return time.UnixMilli(int64(value)).UTC(), true
	}
	return time.Unix(int64(value), 0).UTC(), true
}

func parseTimeString(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func camelToSnake(raw string) string {
	runes := []rune(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(runes) + 4)
	for i, r := range runes {
		if r == '-' || r == ' ' {
			r = '_'
		}
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "_")
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return out
}

func isDuplicateError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate entry")
}
