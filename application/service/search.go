// Package service provides application layer services that orchestrate domain operations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/skyvisionhq/skyvision/domain/search"
)

// Search orchestrates query embedding and vector similarity search over the
// entity catalog. Text and image queries share one embedding space, so a
// text query ranks stored image vectors and vice versa.
type Search struct {
	embedder search.Embedder
	vectors  search.VectorStore
	closed   *atomic.Bool
	logger   *slog.Logger
}

// NewSearch creates a new Search service.
func NewSearch(
	embedder search.Embedder,
	vectors search.VectorStore,
	closed *atomic.Bool,
	logger *slog.Logger,
) *Search {
	if logger == nil {
		logger = slog.Default()
	}
	return &Search{
		embedder: embedder,
		vectors:  vectors,
		closed:   closed,
		logger:   logger,
	}
}

// Available reports whether search is configured.
func (s Search) Available() bool {
	return s.embedder != nil && s.vectors != nil
}

// Text embeds the query text and returns the nearest entities. Style and
// region keywords found in the text become filters unless the caller set the
// matching filter explicitly.
func (s Search) Text(ctx context.Context, q search.Query) (search.Result, error) {
	if s.closed != nil && s.closed.Load() {
		return search.Result{}, ErrClientClosed
	}

	text := strings.TrimSpace(q.Text())
	if text == "" {
		return search.Result{}, fmt.Errorf("text search: %w", search.ErrEmptyQuery)
	}
	filters := search.Enrich(text, q.Filters())

	vec, err := s.embedQueryText(ctx, text)
	if err != nil {
		return search.Result{}, fmt.Errorf("text search: %w", err)
	}

	hits, err := s.vectors.Search(ctx, q.Kind(), vec, filters, q.Limit())
	if err != nil {
		return search.Result{}, fmt.Errorf("text search: %w", err)
	}

	s.logger.DebugContext(ctx, "text search",
		"kind", string(q.Kind()),
		"query", text,
		"hits", len(hits),
	)
	return search.NewResult(search.ModeText, hits), nil
}

// Image embeds the query image and returns the nearest entities. Text-only
// providers cannot serve it; callers get ErrImagesUnsupported.
func (s Search) Image(ctx context.Context, q search.Query) (search.Result, error) {
	if s.closed != nil && s.closed.Load() {
		return search.Result{}, ErrClientClosed
	}

	if !q.HasImage() {
		return search.Result{}, fmt.Errorf("image search: %w", search.ErrEmptyQuery)
	}
	if !s.embedder.SupportsImages() {
		return search.Result{}, fmt.Errorf("image search with model %s: %w",
			s.embedder.ModelID(), search.ErrImagesUnsupported)
	}

	vec, err := s.embedQueryImage(ctx, q.ImageData())
	if err != nil {
		return search.Result{}, fmt.Errorf("image search: %w", err)
	}

	hits, err := s.vectors.Search(ctx, q.Kind(), vec, q.Filters(), q.Limit())
	if err != nil {
		return search.Result{}, fmt.Errorf("image search: %w", err)
	}

	s.logger.DebugContext(ctx, "image search",
		"kind", string(q.Kind()),
		"bytes", len(q.ImageData()),
		"hits", len(hits),
	)
	return search.NewResult(search.ModeImage, hits), nil
}

// Hybrid ranks entities by the weighted blend of their distances to the text
// and image query vectors. Query text is required; without image bytes, or
// with a text-only provider, the search degrades to the plain text path and
// the result reports ModeText.
func (s Search) Hybrid(ctx context.Context, q search.Query) (search.Result, error) {
	if s.closed != nil && s.closed.Load() {
		return search.Result{}, ErrClientClosed
	}

	text := strings.TrimSpace(q.Text())
	if text == "" {
		return search.Result{}, fmt.Errorf("hybrid search: %w", search.ErrEmptyQuery)
	}
	filters := search.Enrich(text, q.Filters())

	textVec, err := s.embedQueryText(ctx, text)
	if err != nil {
		return search.Result{}, fmt.Errorf("hybrid search: %w", err)
	}

	if !q.HasImage() || !s.embedder.SupportsImages() {
		if q.HasImage() {
			s.logger.WarnContext(ctx, "hybrid search image ignored, provider is text-only",
				"model", s.embedder.ModelID(),
			)
		}
		hits, err := s.vectors.Search(ctx, q.Kind(), textVec, filters, q.Limit())
		if err != nil {
			return search.Result{}, fmt.Errorf("hybrid search: %w", err)
		}
		return search.NewResult(search.ModeText, hits), nil
	}

	imageVec, err := s.embedQueryImage(ctx, q.ImageData())
	if err != nil {
		return search.Result{}, fmt.Errorf("hybrid search: %w", err)
	}

	hits, err := s.vectors.SearchHybrid(ctx, q.Kind(), textVec, imageVec, q.TextWeight(), filters, q.Limit())
	if err != nil {
		return search.Result{}, fmt.Errorf("hybrid search: %w", err)
	}

	s.logger.DebugContext(ctx, "hybrid search",
		"kind", string(q.Kind()),
		"query", text,
		"text_weight", q.TextWeight(),
		"hits", len(hits),
	)
	return search.NewResult(search.ModeHybrid, hits), nil
}

// embedQueryText embeds one query string and normalizes the vector.
func (s Search) embedQueryText(ctx context.Context, text string) (search.Vector, error) {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return search.Vector{}, fmt.Errorf("embed query text: %w", err)
	}
	if len(vecs) != 1 {
		return search.Vector{}, fmt.Errorf("embed query text: got %d vectors for one input", len(vecs))
	}
	return vecs[0].Normalize(), nil
}

// embedQueryImage embeds one query image and normalizes the vector.
func (s Search) embedQueryImage(ctx context.Context, data []byte) (search.Vector, error) {
	vecs, err := s.embedder.EmbedImages(ctx, [][]byte{data})
	if err != nil {
		return search.Vector{}, fmt.Errorf("embed query image: %w", err)
	}
	if len(vecs) != 1 {
		return search.Vector{}, fmt.Errorf("embed query image: got %d vectors for one input", len(vecs))
	}
	return vecs[0].Normalize(), nil
}
