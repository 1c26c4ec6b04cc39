package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/internal/database"
)

// CatalogStore persists airports and airlines through the generic repository
// layer. Saves upsert by primary key and never touch the embedding column, so
// re-running an ingest cannot clear vectors written by the loader.
type CatalogStore struct {
	db       database.Database
	airports database.Repository[catalog.Airport, AirportModel]
	airlines database.Repository[catalog.Airline, AirlineModel]
	logger   *slog.Logger
}

var _ catalog.Store = (*CatalogStore)(nil)

// NewCatalogStore creates a catalog store on the given database.
func NewCatalogStore(db database.Database, logger *slog.Logger) *CatalogStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogStore{
		db:       db,
		airports: database.NewRepository(db, airportMapper{}, "airport"),
		airlines: database.NewRepository(db, airlineMapper{}, "airline"),
		logger:   logger,
	}
}

// SaveAirports upserts the given airports in one transaction.
func (s *CatalogStore) SaveAirports(ctx context.Context, airports []catalog.Airport) (catalog.UpsertReport, error) {
	if len(airports) == 0 {
		return catalog.UpsertReport{}, nil
	}

	models := make([]AirportModel, len(airports))
	ids := make([]int64, len(airports))
	for i, a := range airports {
		models[i] = airportMapper{}.ToModel(a)
		ids[i] = a.ID()
	}

	existing, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) (int64, error) {
		var count int64
		if err := tx.Model(&AirportModel{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return 0, err
		}
		return count, tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(airportUpdateColumns),
		}).CreateInBatches(models, saveBatchSize).Error
	})
	if err != nil {
		return catalog.UpsertReport{}, fmt.Errorf("save airports: %w", err)
	}

	report := catalog.NewUpsertReport(len(airports)-int(existing), int(existing), 0)
	s.logger.DebugContext(ctx, "saved airports", "inserted", report.Inserted(), "updated", report.Updated())
	return report, nil
}

// SaveAirlines upserts the given airlines in one transaction.
func (s *CatalogStore) SaveAirlines(ctx context.Context, airlines []catalog.Airline) (catalog.UpsertReport, error) {
	if len(airlines) == 0 {
		return catalog.UpsertReport{}, nil
	}

	models := make([]AirlineModel, len(airlines))
	ids := make([]int64, len(airlines))
	for i, a := range airlines {
		models[i] = airlineMapper{}.ToModel(a)
		ids[i] = a.ID()
	}

	existing, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) (int64, error) {
		var count int64
		if err := tx.Model(&AirlineModel{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return 0, err
		}
		return count, tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(airlineUpdateColumns),
		}).CreateInBatches(models, saveBatchSize).Error
	})
	if err != nil {
		return catalog.UpsertReport{}, fmt.Errorf("save airlines: %w", err)
	}

	report := catalog.NewUpsertReport(len(airlines)-int(existing), int(existing), 0)
	s.logger.DebugContext(ctx, "saved airlines", "inserted", report.Inserted(), "updated", report.Updated())
	return report, nil
}

// GetAirport retrieves an airport by ID.
func (s *CatalogStore) GetAirport(ctx context.Context, id int64) (catalog.Airport, error) {
	return s.airports.FindOne(ctx, catalog.WithID(id))
}

// GetAirline retrieves an airline by ID.
func (s *CatalogStore) GetAirline(ctx context.Context, id int64) (catalog.Airline, error) {
	return s.airlines.FindOne(ctx, catalog.WithID(id))
}

// FindAirports retrieves airports matching the given options.
func (s *CatalogStore) FindAirports(ctx context.Context, options ...catalog.Option) ([]catalog.Airport, error) {
	return s.airports.Find(ctx, options...)
}

// FindAirlines retrieves airlines matching the given options.
func (s *CatalogStore) FindAirlines(ctx context.Context, options ...catalog.Option) ([]catalog.Airline, error) {
	return s.airlines.Find(ctx, options...)
}

// Count returns the number of stored entities of the given kind matching
// the options.
func (s *CatalogStore) Count(ctx context.Context, kind catalog.Kind, options ...catalog.Option) (int64, error) {
	switch kind {
	case catalog.KindAirport:
		return s.airports.Count(ctx, options...)
	case catalog.KindAirline:
		return s.airlines.Count(ctx, options...)
	default:
		return 0, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, kind)
	}
}

// Exists checks whether an entity of the given kind and ID is stored.
func (s *CatalogStore) Exists(ctx context.Context, kind catalog.Kind, id int64) (bool, error) {
	switch kind {
	case catalog.KindAirport:
		return s.airports.Exists(ctx, catalog.WithID(id))
	case catalog.KindAirline:
		return s.airlines.Exists(ctx, catalog.WithID(id))
	default:
		return false, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, kind)
	}
}
