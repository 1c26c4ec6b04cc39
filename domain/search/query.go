// Package search provides search domain types for multimodal similarity
// retrieval over the entity catalog.
package search

import (
	"errors"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

// ErrEmptyQuery is returned when a query carries no input for the requested
// modality: no text for a text search, no image bytes for an image search.
var ErrEmptyQuery = errors.New("query is empty")

// Mode represents the search modality.
type Mode string

// Mode values.
const (
	ModeText   Mode = "text"
	ModeImage  Mode = "image"
	ModeHybrid Mode = "hybrid"
)

// Limit bounds for a query.
const (
	DefaultLimit = 10
	MaxLimit     = 1000
)

// DefaultTextWeight balances text and image distances evenly in hybrid
// search.
const DefaultTextWeight = 0.5

// Query represents a similarity search over one entity kind. Image bytes and
// text may both be set; the service decides which modalities a given
// operation reads.
type Query struct {
	kind       catalog.Kind
	text       string
	imageData  []byte
	filters    Filters
	limit      int
	textWeight float64
}

// NewQuery creates a Query with the default limit and text weight.
func NewQuery(kind catalog.Kind, text string) Query {
	return Query{
		kind:       kind,
		text:       text,
		limit:      DefaultLimit,
		textWeight: DefaultTextWeight,
	}
}

// WithImage returns a copy carrying raw image bytes.
func (q Query) WithImage(data []byte) Query {
	if data == nil {
		q.imageData = nil
		return q
	}
	d := make([]byte, len(data))
	copy(d, data)
	q.imageData = d
	return q
}

// WithFilters returns a copy with the given filters.
func (q Query) WithFilters(filters Filters) Query {
	q.filters = filters
	return q
}

// WithLimit returns a copy with the result limit clamped to [1, MaxLimit].
// Non-positive values fall back to the default.
func (q Query) WithLimit(k int) Query {
	switch {
	case k <= 0:
		q.limit = DefaultLimit
	case k > MaxLimit:
		q.limit = MaxLimit
	default:
		q.limit = k
	}
	return q
}

// WithTextWeight returns a copy with the hybrid text weight clamped to
// [0, 1]. Weight 1 is pure text, weight 0 is pure image.
func (q Query) WithTextWeight(w float64) Query {
	if w < 0 {
		w = 0
	} else if w > 1 {
		w = 1
	}
	q.textWeight = w
	return q
}

// Kind returns the entity kind searched.
func (q Query) Kind() catalog.Kind { return q.kind }

// Text returns the query text.
func (q Query) Text() string { return q.text }

// ImageData returns the raw query image bytes.
func (q Query) ImageData() []byte {
	if q.imageData == nil {
		return nil
	}
	d := make([]byte, len(q.imageData))
	copy(d, q.imageData)
	return d
}

// HasImage reports whether the query carries image bytes.
func (q Query) HasImage() bool { return len(q.imageData) > 0 }

// Filters returns the search filters.
func (q Query) Filters() Filters { return q.filters }

// Limit returns the number of results to return.
func (q Query) Limit() int { return q.limit }

// TextWeight returns the hybrid text weight.
func (q Query) TextWeight() float64 { return q.textWeight }
