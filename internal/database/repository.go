package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

// ErrNotFound indicates the requested entity was not found.
var ErrNotFound = errors.New("entity not found")

// EntityMapper converts between a domain type and its database model.
type EntityMapper[D any, E any] interface {
	ToDomain(entity E) D
	ToModel(domain D) E
}

// Repository provides read-side persistence operations over one entity
// table, querying through catalog.Option filters. Writes go through the
// store's upsert path instead, which needs transaction control the
// generic layer does not expose.
type Repository[D any, E any] struct {
	db     Database
	mapper EntityMapper[D, E]
	label  string
}

// NewRepository creates a new Repository. label names the entity in errors.
func NewRepository[D any, E any](db Database, mapper EntityMapper[D, E], label string) Repository[D, E] {
	return Repository[D, E]{
		db:     db,
		mapper: mapper,
		label:  label,
	}
}

// Find retrieves entities matching the given options.
func (r Repository[D, E]) Find(ctx context.Context, options ...catalog.Option) ([]D, error) {
	var entities []E
	db := ApplyOptions(r.db.Session(ctx).Model(new(E)), options...)
	if result := db.Find(&entities); result.Error != nil {
		return nil, fmt.Errorf("find %s: %w", r.label, result.Error)
	}

	domains := make([]D, len(entities))
	for i, entity := range entities {
		domains[i] = r.mapper.ToDomain(entity)
	}
	return domains, nil
}

// FindOne retrieves a single entity matching the given options.
// Returns ErrNotFound when no row matches.
func (r Repository[D, E]) FindOne(ctx context.Context, options ...catalog.Option) (D, error) {
	var zero D
	var entity E
	db := ApplyOptions(r.db.Session(ctx), options...)
	if result := db.First(&entity); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, r.label)
		}
		return zero, fmt.Errorf("find one %s: %w", r.label, result.Error)
	}
	return r.mapper.ToDomain(entity), nil
}

// Exists checks if any entity matches the given options.
func (r Repository[D, E]) Exists(ctx context.Context, options ...catalog.Option) (bool, error) {
	count, err := r.count(ctx, ApplyOptions, options)
	if err != nil {
		return false, fmt.Errorf("check %s exists: %w", r.label, err)
	}
	return count > 0, nil
}

// Count returns the number of entities matching the given options.
// Pagination options are ignored so the total reflects the whole match set.
func (r Repository[D, E]) Count(ctx context.Context, options ...catalog.Option) (int64, error) {
	count, err := r.count(ctx, ApplyConditions, options)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.label, err)
	}
	return count, nil
}

func (r Repository[D, E]) count(ctx context.Context, apply func(*gorm.DB, ...catalog.Option) *gorm.DB, options []catalog.Option) (int64, error) {
	var count int64
	db := apply(r.db.Session(ctx).Model(new(E)), options...)
	if result := db.Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
