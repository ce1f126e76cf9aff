package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	// MaxPage bounds page so the skip it produces cannot overflow.
	MaxPage = 1_000_000
)

// Params holds page-based pagination parameters. Out-of-range values are
// clamped rather than rejected.
type Params struct {
	Page    int
	PerPage int
}

// New clamps page to 1..MaxPage and perPage to 1..100; zero selects the
// default.
func New(page, perPage int) Params {
	page = min(max(page, 1), MaxPage)
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

// FromContext reads ?page= and ?per_page= from the request.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	return New(page, perPage)
}

// Skip is the number of documents before the current page.
func (p Params) Skip() int64 {
	return int64((p.Page - 1) * p.PerPage)
}

func (p Params) Limit() int64 {
	return int64(p.PerPage)
}

// Page is the list response body.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

func NewPage[T any](items []T, p Params, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: p.Page, PerPage: p.PerPage, Total: total}
}

// HasNext reports whether there are results after the current page.
func (pg Page[T]) HasNext() bool {
	return int64(pg.Page*pg.PerPage) < pg.Total
}
