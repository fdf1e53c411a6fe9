package shared

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultPerPage is the page size used by listings.
const DefaultPerPage = 20

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := (total + perPage - 1) / perPage
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// PrevPage returns the previous page number.
func (p Pagination) PrevPage() int { return p.Page - 1 }

// NextPage returns the next page number.
func (p Pagination) NextPage() int { return p.Page + 1 }

// ListFilters represents standard list page filters.
type ListFilters struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Status  string
	// Optional scoping used by individual resources.
	IsActive   *bool
	CategoryID *int64
	AccountID  *int64
	CustomerID *int64
	OwnerID    *int64
}

// Offset returns the SQL offset for the current page.
func (f ListFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the page size, applying the default.
func (f ListFilters) Limit() int {
	if f.PerPage <= 0 {
		return DefaultPerPage
	}
	if f.PerPage > 200 {
		return 200
	}
	return f.PerPage
}

// ParseListFilters reads the common query parameters.
func ParseListFilters(q url.Values) ListFilters {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	f := ListFilters{
		Page:    page,
		PerPage: perPage,
		Search:  strings.TrimSpace(q.Get("q")),
		SortBy:  q.Get("sort"),
		SortDir: strings.ToLower(q.Get("dir")),
		Status:  strings.TrimSpace(q.Get("status")),
	}
	switch q.Get("active") {
	case "true", "1":
		v := true
		f.IsActive = &v
	case "false", "0":
		v := false
		f.IsActive = &v
	}
	f.CategoryID = parseOptionalID(q.Get("category_id"))
	f.AccountID = parseOptionalID(q.Get("account_id"))
	f.CustomerID = parseOptionalID(q.Get("customer_id"))
	return f
}

// ParseOptionalID parses a positive id or returns nil.
func ParseOptionalID(raw string) *int64 {
	return parseOptionalID(raw)
}

func parseOptionalID(raw string) *int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// SortDirection normalises a sort direction for SQL.
func SortDirection(dir string) string {
	if strings.EqualFold(dir, "desc") {
		return "DESC"
	}
	return "ASC"
}
