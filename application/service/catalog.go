package service

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

// Catalog provides lookups over the stored entity catalog.
type Catalog struct {
	store  catalog.Store
	closed *atomic.Bool
	logger *slog.Logger
}

// NewCatalog creates a new Catalog service.
func NewCatalog(store catalog.Store, closed *atomic.Bool, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		store:  store,
		closed: closed,
		logger: logger,
	}
}

// Airport returns one airport by ID.
func (s Catalog) Airport(ctx context.Context, id int64) (catalog.Airport, error) {
	if s.closed != nil && s.closed.Load() {
		return catalog.Airport{}, ErrClientClosed
	}
	return s.store.GetAirport(ctx, id)
}

// Airline returns one airline by ID.
func (s Catalog) Airline(ctx context.Context, id int64) (catalog.Airline, error) {
	if s.closed != nil && s.closed.Load() {
		return catalog.Airline{}, ErrClientClosed
	}
	return s.store.GetAirline(ctx, id)
}

// Airports lists airports matching the given options.
func (s Catalog) Airports(ctx context.Context, opts ...catalog.Option) ([]catalog.Airport, error) {
	if s.closed != nil && s.closed.Load() {
		return nil, ErrClientClosed
	}
	return s.store.FindAirports(ctx, opts...)
}

// Airlines lists airlines matching the given options.
func (s Catalog) Airlines(ctx context.Context, opts ...catalog.Option) ([]catalog.Airline, error) {
	if s.closed != nil && s.closed.Load() {
		return nil, ErrClientClosed
	}
	return s.store.FindAirlines(ctx, opts...)
}

// Count returns the number of stored entities of a kind matching the
// options.
func (s Catalog) Count(ctx context.Context, kind catalog.Kind, opts ...catalog.Option) (int64, error) {
	if s.closed != nil && s.closed.Load() {
		return 0, ErrClientClosed
	}
	return s.store.Count(ctx, kind, opts...)
}

// Exists reports whether an entity of a kind is stored.
func (s Catalog) Exists(ctx context.Context, kind catalog.Kind, id int64) (bool, error) {
	if s.closed != nil && s.closed.Load() {
		return false, ErrClientClosed
	}
	return s.store.Exists(ctx, kind, id)
}
