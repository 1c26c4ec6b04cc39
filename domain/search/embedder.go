package search

import (
	"context"
	"errors"
)

// Embedder errors. ErrModelUnavailable is fatal for a pipeline stage;
// ErrImagesUnsupported degrades an operation to its text path where one
// exists.
var (
	ErrModelUnavailable  = errors.New("embedding model unavailable")
	ErrImagesUnsupported = errors.New("provider does not support image embeddings")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder converts text and images into comparable embedding vectors.
// Implementations share one model for both modalities so that text and image
// vectors live in the same space.
type Embedder interface {
	// EmbedTexts embeds a batch of texts, one vector per input.
	EmbedTexts(ctx context.Context, texts []string) ([]Vector, error)

	// EmbedImages embeds a batch of raw image bytes, one vector per input.
	// Text-only providers return ErrImagesUnsupported.
	EmbedImages(ctx context.Context, images [][]byte) ([]Vector, error)

	// Dimension returns the vector dimension the model produces.
	Dimension() int

	// ModelID returns the provider's model identifier.
	ModelID() string

	// SupportsImages reports whether EmbedImages is usable.
	SupportsImages() bool

	// Close releases model resources.
	Close() error
}
