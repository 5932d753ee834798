package repository

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is a 1-indexed page selection.
type PageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize clamps the request into a usable range.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the number of records to skip.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginationResult represents the result of a paginated query
type PaginationResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationResult builds a result for items already cut to the requested page.
// Items is never nil so that an out-of-range page serializes as an empty list.
func NewPaginationResult[T any](items []T, total int64, req PageRequest) PaginationResult[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if req.PageSize > 0 {
		totalPages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	}
	return PaginationResult[T]{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}
}

// Paginate cuts an already filtered and ordered slice to the requested page.
func Paginate[T any](all []T, req PageRequest) PaginationResult[T] {
	req = req.Normalize()
	total := int64(len(all))
	start := req.Offset()
	if start >= len(all) {
		return NewPaginationResult[T](nil, total, req)
	}
	end := start + req.PageSize
	if end > len(all) {
		end = len(all)
	}
	page := make([]T, end-start)
	copy(page, all[start:end])
	return NewPaginationResult(page, total, req)
}
