package common

import (
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationParams is the page window a list request asked for.
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// DefaultPaginationParams is the window used when the request names none.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Page: 1, PageSize: defaultPageSize}
}

// ExtractPaginationParams reads page and page_size from the query string.
// Malformed or out-of-range values fall back to the defaults; page_size is
// capped at maxPageSize.
func ExtractPaginationParams(r *http.Request) PaginationParams {
	params := DefaultPaginationParams()

	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		params.Page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && size > 0 {
		params.PageSize = min(size, maxPageSize)
	}

	return params
}

// CalculateOffset converts the page window into a collection offset.
func (p PaginationParams) CalculateOffset() int {
	return (p.Page - 1) * p.PageSize
}

// SliceBounds returns the [start, end) range for slicing an in-memory
// collection of the given length according to these parameters.
func (p PaginationParams) SliceBounds(total int) (int, int) {
	start := min(p.CalculateOffset(), total)
	end := min(start+p.PageSize, total)
	return start, end
}

// PaginationInfo describes the returned window to the client.
type PaginationInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// CalculateTotalPages returns the page count for a collection, rounding
// the last partial page up.
func CalculateTotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// BuildPaginationMeta describes the window at page of pageSize over total
// items.
func BuildPaginationMeta(page, pageSize, total int) *PaginationInfo {
	totalPages := CalculateTotalPages(total, pageSize)
	return &PaginationInfo{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
