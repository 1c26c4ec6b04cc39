package search

import (
	"context"
	"errors"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

// ErrVectorCountMismatch is returned when a loader batch pairs a different
// number of vectors than entities.
var ErrVectorCountMismatch = errors.New("vector count does not match entity count")

// VectorStore defines vector similarity search over stored entity
// embeddings. Every backend ranks by cosine distance and orders entities
// with an image or logo before those without.
type VectorStore interface {
	// EnsureSchema creates or verifies the vector-bearing tables for the
	// given embedding dimension.
	EnsureSchema(ctx context.Context, dim int) error

	// Search returns the k nearest entities of the given kind, restricted
	// by filters.
	Search(ctx context.Context, kind catalog.Kind, vec Vector, filters Filters, k int) ([]Hit, error)

	// SearchHybrid ranks by the weighted blend of distances to the text and
	// image query vectors: textWeight*textDist + (1-textWeight)*imageDist.
	SearchHybrid(ctx context.Context, kind catalog.Kind, textVec, imageVec Vector, textWeight float64, filters Filters, k int) ([]Hit, error)

	// Dimension reports the stored embedding dimension for the kind, or 0
	// when no embeddings are stored yet.
	Dimension(ctx context.Context, kind catalog.Kind) (int, error)
}

// EmbeddingWriter persists entity rows together with their vectors, one
// vector per entity in order. Each batch is written in a single transaction
// and upserted by primary key; mismatched slice lengths are rejected with
// ErrVectorCountMismatch before anything is written.
type EmbeddingWriter interface {
	SaveEmbeddedAirports(ctx context.Context, airports []catalog.Airport, vectors []Vector) (catalog.UpsertReport, error)
	SaveEmbeddedAirlines(ctx context.Context, airlines []catalog.Airline, vectors []Vector) (catalog.UpsertReport, error)
}
