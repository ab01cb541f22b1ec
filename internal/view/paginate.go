package view

import "github.com/rickgao/arbfeed/internal/model"

// Page is one page of the derived view.
type Page struct {
	Records    []model.Record `json:"records"`
	TotalCount int            `json:"total_filtered_count"`
	TotalPages int            `json:"total_pages"`
	Page       int            `json:"page"`      // After clamping
	PageSize   int            `json:"page_size"` // After defaulting
}

// TotalPages returns max(1, ceil(total / max(size, 1))).
func TotalPages(total, size int) int {
	if size < 1 {
		size = 1
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate returns the 1-based page of records. Out-of-range pages clamp to
// the first or last page. The returned slice is a copy.
func Paginate(records []model.Record, page, size int) Page {
	if size < 1 {
		size = 1
	}
	total := len(records)
	pages := TotalPages(total, size)

	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := min(start+size, total)

	out := make([]model.Record, 0, max(end-start, 0))
	if start < end {
		out = append(out, records[start:end]...)
	}

	return Page{
		Records:    out,
		TotalCount: total,
		TotalPages: pages,
		Page:       page,
		PageSize:   size,
	}
}
