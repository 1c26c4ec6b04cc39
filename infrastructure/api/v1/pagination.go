package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/infrastructure/api/jsonapi"
)

// DefaultPageSize is the default number of items per page.
const DefaultPageSize = 20

// MaxPageSize is the maximum allowed page size.
const MaxPageSize = 100

// PaginationParams holds pagination parameters parsed from query strings.
type PaginationParams struct {
	page     int
	pageSize int
}

// ParsePagination reads page and page_size from the request query.
// Invalid or missing values fall back to page=1, page_size=20; page_size
// is capped at MaxPageSize.
func ParsePagination(r *http.Request) PaginationParams {
	page := queryInt(r, "page", 1)
	size := queryInt(r, "page_size", DefaultPageSize)
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return PaginationParams{page: page, pageSize: size}
}

// queryInt parses a positive integer query parameter, returning fallback
// for missing, malformed, or non-positive values.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Page returns the page number (1-indexed).
func (p PaginationParams) Page() int { return p.page }

// PageSize returns the page size.
func (p PaginationParams) PageSize() int { return p.pageSize }

// Offset returns the offset for database queries.
func (p PaginationParams) Offset() int { return (p.page - 1) * p.pageSize }

// Limit returns the limit for database queries.
func (p PaginationParams) Limit() int { return p.pageSize }

// TotalPages returns how many pages the given total spans.
func (p PaginationParams) TotalPages(totalCount int64) int {
	if p.pageSize <= 0 {
		return 0
	}
	return (int(totalCount) + p.pageSize - 1) / p.pageSize
}

// Options returns catalog options for database pagination.
func (p PaginationParams) Options() []catalog.Option {
	return catalog.WithPagination(p.Limit(), p.Offset())
}

// PaginationMeta builds a JSON:API meta object from pagination params and
// the total match count.
func PaginationMeta(params PaginationParams, totalCount int64) *jsonapi.Meta {
	return &jsonapi.Meta{
		"page":        params.Page(),
		"page_size":   params.PageSize(),
		"total_count": totalCount,
		"total_pages": params.TotalPages(totalCount),
	}
}

// PaginationLinks builds JSON:API pagination links relative to the request
// path, preserving any filter parameters already present.
func PaginationLinks(r *http.Request, params PaginationParams, totalCount int64) *jsonapi.Links {
	totalPages := params.TotalPages(totalCount)

	pageURL := func(page int) string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(params.PageSize()))
		return fmt.Sprintf("%s?%s", r.URL.Path, q.Encode())
	}

	links := jsonapi.Links{
		Self:  pageURL(params.Page()),
		First: pageURL(1),
	}
	if totalPages > 0 {
		links.Last = pageURL(totalPages)
	}
	if params.Page() > 1 {
		links.Prev = pageURL(params.Page() - 1)
	}
	if params.Page() < totalPages {
		links.Next = pageURL(params.Page() + 1)
	}
	return &links
}
