package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sublimart/studio/internal/pkg/response"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100
)

// Query holds parsed pagination and ordering parameters.
type Query struct {
	Page  int
	Size  int
	Order string // "column ASC|DESC", empty for the caller's default
}

// Offset is the number of rows skipped before the page.
func (q Query) Offset() int { return (q.Page - 1) * q.Size }

// FromContext reads ?page, ?size and ?sort=field or ?sort=-field.
// Only fields listed in sortable are honoured; the map value is the column.
func FromContext(c *gin.Context, sortable map[string]string) Query {
	page := parseIntOr(c.Query("page"), DefaultPage)
	size := parseIntOr(c.Query("size"), DefaultSize)
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	q := Query{Page: page, Size: size}

	if sort := strings.TrimSpace(c.Query("sort")); sort != "" {
		dir := "ASC"
		if strings.HasPrefix(sort, "-") {
			dir = "DESC"
			sort = sort[1:]
		}
		if col, ok := sortable[sort]; ok {
			q.Order = col + " " + dir
		}
	}
	return q
}

// Paginate counts the query, applies ordering and limit/offset and fills dest.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}
	if q.Order != "" {
		db = db.Order(q.Order)
	}
	if err := db.Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}
	return Meta(total, q), nil
}

// Meta builds pagination metadata for an already counted result.
func Meta(total int64, q Query) response.Pagination {
	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}
