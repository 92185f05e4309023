package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// MaxPerPage caps the page size a caller can request.
const MaxPerPage = 100

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Bounds returns the slice indexes of the current page within total items.
// Pages past the end yield an empty range.
func (p Pagination) Bounds() (start, end int) {
	if p.Page <= 0 || p.PerPage <= 0 || p.Total <= 0 {
		return 0, 0
	}
	if p.Page-1 > (p.Total-1)/p.PerPage {
		return p.Total, p.Total
	}
	start = (p.Page - 1) * p.PerPage
	end = p.Total
	if p.Total-start > p.PerPage {
		end = start + p.PerPage
	}
	return start, end
}
