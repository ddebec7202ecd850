package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ListQuery represents common query parameters
type ListQuery struct {
	Page      int
	PerPage   int
	Search    string
	SortBy    string
	SortDir   string
	StartDate *time.Time
	EndDate   *time.Time
	Filters   map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Offset returns the number of rows to skip for the current page
func (q *ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

// likeTerm builds a case-insensitive LIKE pattern
func likeTerm(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// applyOrder sorts by query.SortBy when it is one of the allowed columns
func applyOrder(db *gorm.DB, query *ListQuery, allowed map[string]string, fallback string) *gorm.DB {
	column, ok := allowed[query.SortBy]
	if !ok {
		return db.Order(fallback)
	}
	if strings.EqualFold(query.SortDir, "desc") {
		return db.Order(column + " DESC")
	}
	return db.Order(column + " ASC")
}

// applyPage limits the result set to the current page
func applyPage(db *gorm.DB, query *ListQuery) *gorm.DB {
	if query.PerPage > 0 {
		return db.Offset(query.Offset()).Limit(query.PerPage)
	}
	return db
}

// applyDateRange filters column between the query's start and end dates
func applyDateRange(db *gorm.DB, query *ListQuery, column string) *gorm.DB {
	if query.StartDate != nil {
		db = db.Where(column+" >= ?", *query.StartDate)
	}
	if query.EndDate != nil {
		db = db.Where(column+" < ?", query.EndDate.AddDate(0, 0, 1))
	}
	return db
}
