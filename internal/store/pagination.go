package store

import "math"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationParams selects one page of a list query
type PaginationParams struct {
	Page     int // 1-indexed
	PageSize int
}

// PaginationResult describes the page that was returned
type PaginationResult struct {
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	HasPrev     bool  `json:"has_prev"`
	HasNext     bool  `json:"has_next"`
}

// NewPaginationParams clamps page and pageSize to usable values
func NewPaginationParams(page, pageSize int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return PaginationParams{Page: page, PageSize: pageSize}
}

func (p PaginationParams) offset() int {
	return (p.Page - 1) * p.PageSize
}

func calculatePagination(total int64, p PaginationParams) PaginationResult {
	totalPages := int(math.Ceil(float64(total) / float64(p.PageSize)))
	current := p.Page
	if current > totalPages && totalPages > 0 {
		current = totalPages
	}
	return PaginationResult{
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: current,
		PageSize:    p.PageSize,
		HasPrev:     current > 1,
		HasNext:     current < totalPages,
	}
}
