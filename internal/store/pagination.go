package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListQuery selects one 1-indexed page of a listing with an optional
// case-insensitive substring search and tenant filter
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
	TenantID *uuid.UUID
}

// Normalize clamps page and page size to usable values
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Offset is the number of rows skipped before the page
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Page is one page of results plus the total number of matches
type Page[T any] struct {
	Items      []T
	TotalCount int64
	Query      ListQuery
}

// TotalPages is ceil(TotalCount / PageSize)
func (p Page[T]) TotalPages() int {
	if p.Query.PageSize < 1 {
		return 0
	}
	return int((p.TotalCount + int64(p.Query.PageSize) - 1) / int64(p.Query.PageSize))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func applySearch(db *gorm.DB, term string, columns []string) *gorm.DB {
	if term == "" || len(columns) == 0 {
		return db
	}
	pattern := likePattern(term)
	conds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		conds[i] = fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col)
		args[i] = pattern
	}
	return db.Where("("+strings.Join(conds, " OR ")+")", args...)
}

func tenantScope(tenantID *uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == nil {
			return db
		}
		return db.Where("tenant_id = ?", *tenantID)
	}
}
