package store

// DefaultPageSize applies when a request carries no page size
const DefaultPageSize = 100

// MaxPageSize bounds a single page
const MaxPageSize = 1 << 20

// Pagination selects one page of a filtered result. Pages are 1-indexed.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// FirstPage is page 1 at the store's default page size
var FirstPage = Pagination{Page: 1}

// Everything returns every matching row in a single page, up to MaxPageSize.
// Aggregates over larger tables use Statistics or OrderStatusCounts.
var Everything = Pagination{Page: 1, PageSize: MaxPageSize}

func (p Pagination) normalize(defaultSize int) Pagination {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Page is one page of a filtered result. Total counts all matches before paging.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// paginate slices items after filtering. p must already be normalized.
func paginate[T any](items []T, p Pagination) Page[T] {
	total := len(items)
	start := (p.Page - 1) * p.PageSize
	if start > total || start < 0 {
		start = total
	}
	end := start + p.PageSize
	if end > total || end < start {
		end = total
	}

	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{
		Items:    out,
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    total,
	}
}
