package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the first page at the default size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest reads page and per_page from the query string. Missing or
// unparseable values fall back to defaults; per_page is clamped to MaxPerPage.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		p.PerPage = min(v, MaxPerPage)
	}

	return p.WithOffset()
}

// WithOffset returns p with Offset computed from Page and PerPage. Non-positive
// values fall back to defaults and Page is capped so the offset cannot overflow.
func (p Params) WithOffset() Params {
	if p.Page <= 0 || p.PerPage <= 0 {
		p = DefaultParams()
	}
	p.PerPage = min(p.PerPage, MaxPerPage)
	p.Page = min(p.Page, math.MaxInt/p.PerPage)
	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// Result is one page of items plus the totals needed to navigate.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult wraps an already-sliced page.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	if params.PerPage <= 0 {
		params.PerPage = DefaultPerPage
	}
	totalPages := totalCount / params.PerPage
	if totalCount%params.PerPage > 0 {
		totalPages++
	}
	if data == nil {
		data = []T{}
	}
	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Paginate returns the page of items selected by params. Items are not copied.
func Paginate[T any](items []T, params Params) Result[T] {
	start := max(0, min(params.Offset, len(items)))
	end := min(start+params.PerPage, len(items))
	return NewResult(items[start:end], len(items), params)
}
