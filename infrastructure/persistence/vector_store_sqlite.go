package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/internal/database"
)

const (
	sqliteCreateAirports = `
CREATE TABLE IF NOT EXISTS airports (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL DEFAULT '',
    country TEXT NOT NULL DEFAULT '',
    iata TEXT NOT NULL DEFAULT '',
    icao TEXT NOT NULL DEFAULT '',
    latitude REAL NULL,
    longitude REAL NULL,
    image_url TEXT NOT NULL DEFAULT '',
    metadata TEXT NULL,
    embedding TEXT NULL,
    created_at DATETIME,
    updated_at DATETIME
)`

	sqliteCreateAirlines = `
CREATE TABLE IF NOT EXISTS airlines (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    alias TEXT NOT NULL DEFAULT '',
    iata TEXT NOT NULL DEFAULT '',
    icao TEXT NOT NULL DEFAULT '',
    callsign TEXT NOT NULL DEFAULT '',
    country TEXT NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT FALSE,
    logo_url TEXT NOT NULL DEFAULT '',
    metadata TEXT NULL,
    embedding TEXT NULL,
    created_at DATETIME,
    updated_at DATETIME
)`

	sqliteTableExistsQuery = `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`
)

var sqliteCreateIndexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_airports_country ON airports (country)`,
	`CREATE INDEX IF NOT EXISTS idx_airports_iata ON airports (iata)`,
	`CREATE INDEX IF NOT EXISTS idx_airlines_country ON airlines (country)`,
	`CREATE INDEX IF NOT EXISTS idx_airlines_iata ON airlines (iata)`,
}

// SQLiteVectorStore implements vector search on SQLite by storing vectors
// as JSON text and computing cosine distances in Go. Meant for local
// development and tests; rankings match the SQL backends exactly.
type SQLiteVectorStore struct {
	db     database.Database
	logger *slog.Logger
}

var (
	_ search.VectorStore     = (*SQLiteVectorStore)(nil)
	_ search.EmbeddingWriter = (*SQLiteVectorStore)(nil)
)

// NewSQLiteVectorStore creates a SQLite-backed vector store.
func NewSQLiteVectorStore(db database.Database, logger *slog.Logger) *SQLiteVectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteVectorStore{db: db, logger: logger}
}

// EnsureSchema creates both entity tables. SQLite has no typed vector
// column, so the dimension is checked against whatever vectors are already
// stored.
func (s *SQLiteVectorStore) EnsureSchema(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("ensure schema: invalid dimension %d", dim)
	}
	db := s.db.Session(ctx)

	for _, ddl := range []string{sqliteCreateAirports, sqliteCreateAirlines} {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	for _, stmt := range sqliteCreateIndexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	for _, t := range []kindTable{airportsTable, airlinesTable} {
		stored, err := s.storedDimension(ctx, t)
		if err != nil {
			return err
		}
		if stored != 0 && stored != dim {
			return fmt.Errorf("%w: table %s has %d-dimension embeddings, provider produces %d; drop the tables and re-seed after switching providers",
				search.ErrDimensionMismatch, t.name, stored, dim)
		}
	}
	return nil
}

// SaveEmbeddedAirports upserts airports together with their vectors.
func (s *SQLiteVectorStore) SaveEmbeddedAirports(ctx context.Context, airports []catalog.Airport, vectors []search.Vector) (catalog.UpsertReport, error) {
	if len(airports) != len(vectors) {
		return catalog.UpsertReport{}, fmt.Errorf("%w: %d airports, %d vectors", search.ErrVectorCountMismatch, len(airports), len(vectors))
	}
	if len(airports) == 0 {
		return catalog.UpsertReport{}, nil
	}

	models := make([]airportVectorModel, len(airports))
	ids := make([]int64, len(airports))
	for i, a := range airports {
		models[i] = airportVectorModel{
			AirportModel: airportMapper{}.ToModel(a),
			Embedding:    database.NewVectorColumn(vectors[i].Floats()),
		}
		ids[i] = a.ID()
	}

	existing, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) (int64, error) {
		var count int64
		if err := tx.Model(&AirportModel{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return 0, err
		}
		return count, tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(withEmbedding(airportUpdateColumns)),
		}).CreateInBatches(models, saveBatchSize).Error
	})
	if err != nil {
		return catalog.UpsertReport{}, fmt.Errorf("save embedded airports: %w", err)
	}
	return catalog.NewUpsertReport(len(airports)-int(existing), int(existing), 0), nil
}

// SaveEmbeddedAirlines upserts airlines together with their vectors.
func (s *SQLiteVectorStore) SaveEmbeddedAirlines(ctx context.Context, airlines []catalog.Airline, vectors []search.Vector) (catalog.UpsertReport, error) {
	if len(airlines) != len(vectors) {
		return catalog.UpsertReport{}, fmt.Errorf("%w: %d airlines, %d vectors", search.ErrVectorCountMismatch, len(airlines), len(vectors))
	}
	if len(airlines) == 0 {
		return catalog.UpsertReport{}, nil
	}

	models := make([]airlineVectorModel, len(airlines))
	ids := make([]int64, len(airlines))
	for i, a := range airlines {
		models[i] = airlineVectorModel{
			AirlineModel: airlineMapper{}.ToModel(a),
			Embedding:    database.NewVectorColumn(vectors[i].Floats()),
		}
		ids[i] = a.ID()
	}

	var existing int64
	err := s.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&AirlineModel{}).Where("id IN ?", ids).Count(&existing).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(withEmbedding(airlineUpdateColumns)),
		}).CreateInBatches(models, saveBatchSize).Error
	})
	if err != nil {
		return catalog.UpsertReport{}, fmt.Errorf("save embedded airlines: %w", err)
	}
	return catalog.NewUpsertReport(len(airlines)-int(existing), int(existing), 0), nil
}

// sqliteVectorRow carries the stored embedding alongside the hit columns so
// distances can be computed in Go.
type sqliteVectorRow struct {
	hitRow
	Embedding database.VectorColumn `gorm:"column:embedding"`
}

// candidates loads every row of the kind that has an embedding and passes
// the filters.
func (s *SQLiteVectorStore) candidates(ctx context.Context, t kindTable, filters search.Filters) ([]sqliteVectorRow, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, embedding FROM %s WHERE embedding IS NOT NULL", t.selectColumns(), t.name)
	clauses, args := filterClauses(filters, sqliteJSON, t)
	for _, c := range clauses {
		b.WriteString(" AND ")
		b.WriteString(c)
	}

	var rows []sqliteVectorRow
	if err := s.db.Session(ctx).Raw(b.String(), args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load candidates from %s: %w", t.name, err)
	}
	return rows, nil
}

// Search returns the k nearest entities by cosine distance to vec.
func (s *SQLiteVectorStore) Search(ctx context.Context, kind catalog.Kind, vec search.Vector, filters search.Filters, k int) ([]search.Hit, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.candidates(ctx, t, filters)
	if err != nil {
		return nil, err
	}

	hits := make([]search.Hit, len(rows))
	for i, row := range rows {
		stored := search.NewVector(row.Embedding.Floats())
		hits[i] = row.toHit(kind).WithDistance(stored.CosineDistance(vec))
	}
	return search.RankHits(hits, clampLimit(k)), nil
}

// SearchHybrid ranks by the weighted blend of cosine distances to the text
// and image query vectors.
func (s *SQLiteVectorStore) SearchHybrid(ctx context.Context, kind catalog.Kind, textVec, imageVec search.Vector, textWeight float64, filters search.Filters, k int) ([]search.Hit, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.candidates(ctx, t, filters)
	if err != nil {
		return nil, err
	}

	hits := make([]search.Hit, len(rows))
	for i, row := range rows {
		stored := search.NewVector(row.Embedding.Floats())
		distance := search.HybridDistance(stored.CosineDistance(textVec), stored.CosineDistance(imageVec), textWeight)
		hits[i] = row.toHit(kind).WithDistance(distance)
	}
	return search.RankHits(hits, clampLimit(k)), nil
}

// Dimension reports the dimension of stored embeddings, or 0 when the
// table does not exist or holds no embeddings yet.
func (s *SQLiteVectorStore) Dimension(ctx context.Context, kind catalog.Kind) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	return s.storedDimension(ctx, t)
}

func (s *SQLiteVectorStore) storedDimension(ctx context.Context, t kindTable) (int, error) {
	db := s.db.Session(ctx)

	var name string
	result := db.Raw(sqliteTableExistsQuery, t.name).Scan(&name)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("check table %s: %w", t.name, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, nil
	}

	var raw string
	probe := fmt.Sprintf("SELECT embedding FROM %s WHERE embedding IS NOT NULL LIMIT 1", t.name)
	result = db.Raw(probe).Scan(&raw)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("probe embedding in %s: %w", t.name, result.Error)
	}
	if result.RowsAffected == 0 || raw == "" {
		return 0, nil
	}

	var vec database.VectorColumn
	if err := vec.Scan(raw); err != nil {
		return 0, fmt.Errorf("parse embedding in %s: %w", t.name, err)
	}
	return vec.Dimension(), nil
}
