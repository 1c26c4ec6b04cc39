package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/internal/database"
)

// SQL queries that must stay as raw SQL (extensions, indexes, catalog).
const (
	pgCreateVectorExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgCreateAirportsTemplate = `
CREATE TABLE IF NOT EXISTS airports (
    id BIGINT PRIMARY KEY,
    name VARCHAR(255) NOT NULL DEFAULT '',
    city VARCHAR(255) NOT NULL DEFAULT '',
    country VARCHAR(255) NOT NULL DEFAULT '',
    iata VARCHAR(3) NOT NULL DEFAULT '',
    icao VARCHAR(4) NOT NULL DEFAULT '',
    latitude DOUBLE PRECISION NULL,
    longitude DOUBLE PRECISION NULL,
    image_url VARCHAR(1024) NOT NULL DEFAULT '',
    metadata JSONB NULL,
    embedding VECTOR(%d) NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

	pgCreateAirlinesTemplate = `
CREATE TABLE IF NOT EXISTS airlines (
    id BIGINT PRIMARY KEY,
    name VARCHAR(255) NOT NULL DEFAULT '',
    alias VARCHAR(255) NOT NULL DEFAULT '',
    iata VARCHAR(3) NOT NULL DEFAULT '',
    icao VARCHAR(4) NOT NULL DEFAULT '',
    callsign VARCHAR(255) NOT NULL DEFAULT '',
    country VARCHAR(255) NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT FALSE,
    logo_url VARCHAR(1024) NOT NULL DEFAULT '',
    metadata JSONB NULL,
    embedding VECTOR(%d) NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

	pgCheckDimensionTemplate = `
SELECT a.atttypmod as dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = '%s'
AND a.attname = 'embedding'`

	pgCheckIndexMethodTemplate = `
SELECT amname FROM pg_index i
JOIN pg_class c ON c.oid = i.indexrelid
JOIN pg_am a ON a.oid = c.relam
WHERE c.relname = '%s_embedding_idx'`
)

var pgCreateIndexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_airports_country ON airports (country)`,
	`CREATE INDEX IF NOT EXISTS idx_airports_iata ON airports (iata)`,
	`CREATE INDEX IF NOT EXISTS idx_airlines_country ON airlines (country)`,
	`CREATE INDEX IF NOT EXISTS idx_airlines_iata ON airlines (iata)`,
}

// PgVectorStore implements vector search using the pgvector PostgreSQL
// extension. Distances come from the <=> cosine operator backed by an
// ivfflat index that is created lazily once vectors exist.
type PgVectorStore struct {
	db     database.Database
	logger *slog.Logger
}

var (
	_ search.VectorStore     = (*PgVectorStore)(nil)
	_ search.EmbeddingWriter = (*PgVectorStore)(nil)
)

// NewPgVectorStore creates a pgvector-backed vector store.
func NewPgVectorStore(db database.Database, logger *slog.Logger) *PgVectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PgVectorStore{db: db, logger: logger}
}

// EnsureSchema creates the extension and both entity tables, and verifies
// that pre-existing tables declare the same embedding dimension.
func (s *PgVectorStore) EnsureSchema(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("ensure schema: invalid dimension %d", dim)
	}
	db := s.db.Session(ctx)

	if err := db.Exec(pgCreateVectorExtension).Error; err != nil {
		return fmt.Errorf("create extension: %w", err)
	}

	tables := []struct {
		name     string
		template string
	}{
		{airportsTable.name, pgCreateAirportsTemplate},
		{airlinesTable.name, pgCreateAirlinesTemplate},
	}
	for _, t := range tables {
		if err := db.Exec(fmt.Sprintf(t.template, dim)).Error; err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}

		var dbDimension int
		result := db.Raw(fmt.Sprintf(pgCheckDimensionTemplate, t.name)).Scan(&dbDimension)
		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check dimension of %s: %w", t.name, result.Error)
		}
		if result.RowsAffected > 0 && dbDimension > 0 && dbDimension != dim {
			return fmt.Errorf("%w: table %s has %d-dimension embeddings, provider produces %d; drop the tables and re-seed after switching providers",
				search.ErrDimensionMismatch, t.name, dbDimension, dim)
		}
	}

	for _, stmt := range pgCreateIndexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// SaveEmbeddedAirports upserts airports together with their vectors, then
// ensures the ivfflat index exists.
func (s *PgVectorStore) SaveEmbeddedAirports(ctx context.Context, airports []catalog.Airport, vectors []search.Vector) (catalog.UpsertReport, error) {
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

	if err := s.ensureIndex(ctx, airportsTable); err != nil {
		return catalog.UpsertReport{}, err
	}
	return catalog.NewUpsertReport(len(airports)-int(existing), int(existing), 0), nil
}

// SaveEmbeddedAirlines upserts airlines together with their vectors, then
// ensures the ivfflat index exists.
func (s *PgVectorStore) SaveEmbeddedAirlines(ctx context.Context, airlines []catalog.Airline, vectors []search.Vector) (catalog.UpsertReport, error) {
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

	existing, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) (int64, error) {
		var count int64
		if err := tx.Model(&AirlineModel{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return 0, err
		}
		return count, tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(withEmbedding(airlineUpdateColumns)),
		}).CreateInBatches(models, saveBatchSize).Error
	})
	if err != nil {
		return catalog.UpsertReport{}, fmt.Errorf("save embedded airlines: %w", err)
	}

	if err := s.ensureIndex(ctx, airlinesTable); err != nil {
		return catalog.UpsertReport{}, err
	}
	return catalog.NewUpsertReport(len(airlines)-int(existing), int(existing), 0), nil
}

// ensureIndex creates the ivfflat index if it doesn't already exist.
// Must be called after data has been inserted so K-means clustering has
// vectors to work with.
func (s *PgVectorStore) ensureIndex(ctx context.Context, t kindTable) error {
	db := s.db.Session(ctx)

	var method string
	result := db.Raw(fmt.Sprintf(pgCheckIndexMethodTemplate, t.name)).Scan(&method)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check index method: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil // index already exists
	}

	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE embedding IS NOT NULL", t.name)
	if err := db.Raw(countSQL).Scan(&count).Error; err != nil {
		return fmt.Errorf("count embeddings: %w", err)
	}

	lists := max(count/10, 1)

	indexSQL := fmt.Sprintf(`
CREATE INDEX IF NOT EXISTS %s_embedding_idx
ON %s
USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`, t.name, t.name, lists)

	s.logger.Info("creating ivfflat index",
		slog.String("table", t.name),
		slog.Int64("rows", count),
		slog.Int64("lists", lists),
	)

	if err := db.Exec(indexSQL).Error; err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Search returns the k nearest entities by cosine distance to vec.
func (s *PgVectorStore) Search(ctx context.Context, kind catalog.Kind, vec search.Vector, filters search.Filters, k int) ([]search.Hit, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query, filterArgs := buildVectorQuery(t, "(embedding <=> ?)", postgresJSON, filters, clampLimit(k))
	args := append([]any{database.NewVectorColumn(vec.Floats()).String()}, filterArgs...)

	var rows []hitRow
	if err := s.db.Session(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	return rowsToHits(rows, kind), nil
}

// SearchHybrid ranks by the weighted blend of cosine distances to the text
// and image query vectors.
func (s *PgVectorStore) SearchHybrid(ctx context.Context, kind catalog.Kind, textVec, imageVec search.Vector, textWeight float64, filters search.Filters, k int) ([]search.Hit, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	w := clampWeight(textWeight)
	distanceExpr := "(? * (embedding <=> ?) + ? * (embedding <=> ?))"
	query, filterArgs := buildVectorQuery(t, distanceExpr, postgresJSON, filters, clampLimit(k))
	args := append([]any{
		w, database.NewVectorColumn(textVec.Floats()).String(),
		1 - w, database.NewVectorColumn(imageVec.Floats()).String(),
	}, filterArgs...)

	var rows []hitRow
	if err := s.db.Session(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("hybrid search %s: %w", kind, err)
	}
	return rowsToHits(rows, kind), nil
}

// Dimension reports the declared embedding dimension, or 0 when the table
// does not exist or holds no embeddings yet.
func (s *PgVectorStore) Dimension(ctx context.Context, kind catalog.Kind) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	db := s.db.Session(ctx)

	var dbDimension int
	result := db.Raw(fmt.Sprintf(pgCheckDimensionTemplate, t.name)).Scan(&dbDimension)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("check dimension of %s: %w", t.name, result.Error)
	}
	if result.RowsAffected == 0 || dbDimension <= 0 {
		return 0, nil
	}

	var stored int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE embedding IS NOT NULL", t.name)
	if err := db.Raw(countSQL).Scan(&stored).Error; err != nil {
		return 0, fmt.Errorf("count embeddings in %s: %w", t.name, err)
	}
	if stored == 0 {
		return 0, nil
	}
	return dbDimension, nil
}
