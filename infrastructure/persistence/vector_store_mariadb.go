package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/internal/database"
)

// SQL that must stay raw: dynamic VECTOR(n) columns rule out AutoMigrate,
// and VEC_FromText / ON DUPLICATE KEY UPDATE have no GORM clause.
const (
	mariadbCreateAirportsTemplate = `
CREATE TABLE IF NOT EXISTS airports (
    id BIGINT PRIMARY KEY,
    name VARCHAR(255) NOT NULL DEFAULT '',
    city VARCHAR(255) NOT NULL DEFAULT '',
    country VARCHAR(255) NOT NULL DEFAULT '',
    iata VARCHAR(3) NOT NULL DEFAULT '',
    icao VARCHAR(4) NOT NULL DEFAULT '',
    latitude DOUBLE NULL,
    longitude DOUBLE NULL,
    image_url VARCHAR(1024) NOT NULL DEFAULT '',
    metadata JSON NULL,
    embedding VECTOR(%d) NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_airports_country (country),
    INDEX idx_airports_iata (iata)
)`

	mariadbCreateAirlinesTemplate = `
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
    metadata JSON NULL,
    embedding VECTOR(%d) NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_airlines_country (country),
    INDEX idx_airlines_iata (iata)
)`

	mariadbColumnTypeQuery = `
SELECT COLUMN_TYPE FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = 'embedding'`

	mariadbUpsertAirport = `
INSERT INTO airports
  (id, name, city, country, iata, icao, latitude, longitude, image_url, metadata, embedding)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, VEC_FromText(?))
ON DUPLICATE KEY UPDATE
  name = VALUES(name),
  city = VALUES(city),
  country = VALUES(country),
  iata = VALUES(iata),
  icao = VALUES(icao),
  latitude = VALUES(latitude),
  longitude = VALUES(longitude),
  image_url = VALUES(image_url),
  metadata = VALUES(metadata),
  embedding = VALUES(embedding)`

	mariadbUpsertAirline = `
INSERT INTO airlines
  (id, name, alias, iata, icao, callsign, country, active, logo_url, metadata, embedding)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, VEC_FromText(?))
ON DUPLICATE KEY UPDATE
  name = VALUES(name),
  alias = VALUES(alias),
  iata = VALUES(iata),
  icao = VALUES(icao),
  callsign = VALUES(callsign),
  country = VALUES(country),
  active = VALUES(active),
  logo_url = VALUES(logo_url),
  metadata = VALUES(metadata),
  embedding = VALUES(embedding)`
)

// MariaDBVectorStore implements vector search on MariaDB 11.7+ native
// VECTOR columns. Distances come from VEC_DISTANCE_COSINE; the embedding
// column stays nullable so catalog rows can exist before the embed stage
// runs, which also rules out a MariaDB vector index (those require NOT
// NULL). At catalog scale the full scan is fine.
type MariaDBVectorStore struct {
	db     database.Database
	logger *slog.Logger
}

var (
	_ search.VectorStore     = (*MariaDBVectorStore)(nil)
	_ search.EmbeddingWriter = (*MariaDBVectorStore)(nil)
)

// NewMariaDBVectorStore creates a MariaDB-backed vector store.
func NewMariaDBVectorStore(db database.Database, logger *slog.Logger) *MariaDBVectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MariaDBVectorStore{db: db, logger: logger}
}

// EnsureSchema creates both entity tables with VECTOR(dim) embedding
// columns and verifies that pre-existing tables declare the same dimension.
func (s *MariaDBVectorStore) EnsureSchema(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("ensure schema: invalid dimension %d", dim)
	}
	db := s.db.Session(ctx)

	tables := []struct {
		name     string
		template string
	}{
		{airportsTable.name, mariadbCreateAirportsTemplate},
		{airlinesTable.name, mariadbCreateAirlinesTemplate},
	}
	for _, t := range tables {
		if err := db.Exec(fmt.Sprintf(t.template, dim)).Error; err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}

		var columnType string
		result := db.Raw(mariadbColumnTypeQuery, t.name).Scan(&columnType)
		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check dimension of %s: %w", t.name, result.Error)
		}
		declared := parseVectorDimension(columnType)
		if declared != 0 && declared != dim {
			return fmt.Errorf("%w: table %s has %d-dimension embeddings, provider produces %d; drop the tables and re-seed after switching providers",
				search.ErrDimensionMismatch, t.name, declared, dim)
		}
	}
	return nil
}

// parseVectorDimension extracts n from a COLUMN_TYPE like "vector(512)".
// Returns 0 when the type cannot be parsed.
func parseVectorDimension(columnType string) int {
	ct := strings.ToLower(strings.TrimSpace(columnType))
	if !strings.HasPrefix(ct, "vector(") || !strings.HasSuffix(ct, ")") {
		return 0
	}
	n, err := strconv.Atoi(ct[len("vector(") : len(ct)-1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SaveEmbeddedAirports upserts airports together with their vectors.
func (s *MariaDBVectorStore) SaveEmbeddedAirports(ctx context.Context, airports []catalog.Airport, vectors []search.Vector) (catalog.UpsertReport, error) {
	if len(airports) != len(vectors) {
		return catalog.UpsertReport{}, fmt.Errorf("%w: %d airports, %d vectors", search.ErrVectorCountMismatch, len(airports), len(vectors))
	}
	if len(airports) == 0 {
		return catalog.UpsertReport{}, nil
	}

	ids := make([]int64, len(airports))
	for i, a := range airports {
		ids[i] = a.ID()
	}

	existing, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) (int64, error) {
		var count int64
		if err := tx.Raw("SELECT COUNT(*) FROM airports WHERE id IN ?", ids).Scan(&count).Error; err != nil {
			return 0, err
		}
		for i, a := range airports {
			var lat, lon any
			if coords := a.Coordinates(); !coords.IsZero() {
				lat, lon = coords.Lat(), coords.Lon()
			}
			err := tx.Exec(mariadbUpsertAirport,
				a.ID(), a.Name(), a.City(), a.Country(), a.IATA(), a.ICAO(),
				lat, lon, a.ImageURL(),
				NewMetadataColumn(a.Metadata()),
				database.NewVectorColumn(vectors[i].Floats()),
			).Error
			if err != nil {
				return 0, fmt.Errorf("airport %d: %w", a.ID(), err)
			}
		}
		return count, nil
	})
	if err != nil {
		return catalog.UpsertReport{}, fmt.Errorf("save embedded airports: %w", err)
	}
	return catalog.NewUpsertReport(len(airports)-int(existing), int(existing), 0), nil
}

// SaveEmbeddedAirlines upserts airlines together with their vectors.
func (s *MariaDBVectorStore) SaveEmbeddedAirlines(ctx context.Context, airlines []catalog.Airline, vectors []search.Vector) (catalog.UpsertReport, error) {
	if len(airlines) != len(vectors) {
		return catalog.UpsertReport{}, fmt.Errorf("%w: %d airlines, %d vectors", search.ErrVectorCountMismatch, len(airlines), len(vectors))
	}
	if len(airlines) == 0 {
		return catalog.UpsertReport{}, nil
	}

	ids := make([]int64, len(airlines))
	for i, a := range airlines {
		ids[i] = a.ID()
	}

	existing, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) (int64, error) {
		var count int64
		if err := tx.Raw("SELECT COUNT(*) FROM airlines WHERE id IN ?", ids).Scan(&count).Error; err != nil {
			return 0, err
		}
		for i, a := range airlines {
			err := tx.Exec(mariadbUpsertAirline,
				a.ID(), a.Name(), a.Alias(), a.IATA(), a.ICAO(), a.Callsign(),
				a.Country(), a.Active(), a.LogoURL(),
				NewMetadataColumn(a.Metadata()),
				database.NewVectorColumn(vectors[i].Floats()),
			).Error
			if err != nil {
				return 0, fmt.Errorf("airline %d: %w", a.ID(), err)
			}
		}
		return count, nil
	})
	if err != nil {
		return catalog.UpsertReport{}, fmt.Errorf("save embedded airlines: %w", err)
	}
	return catalog.NewUpsertReport(len(airlines)-int(existing), int(existing), 0), nil
}

// Search returns the k nearest entities by cosine distance to vec.
func (s *MariaDBVectorStore) Search(ctx context.Context, kind catalog.Kind, vec search.Vector, filters search.Filters, k int) ([]search.Hit, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query, filterArgs := buildVectorQuery(t, "VEC_DISTANCE_COSINE(embedding, VEC_FromText(?))", mariadbJSON, filters, clampLimit(k))
	args := append([]any{database.NewVectorColumn(vec.Floats()).String()}, filterArgs...)

	var rows []hitRow
	if err := s.db.Session(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	return rowsToHits(rows, kind), nil
}

// SearchHybrid ranks by the weighted blend of cosine distances to the text
// and image query vectors.
func (s *MariaDBVectorStore) SearchHybrid(ctx context.Context, kind catalog.Kind, textVec, imageVec search.Vector, textWeight float64, filters search.Filters, k int) ([]search.Hit, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	w := clampWeight(textWeight)
	distanceExpr := "(? * VEC_DISTANCE_COSINE(embedding, VEC_FromText(?)) + ? * VEC_DISTANCE_COSINE(embedding, VEC_FromText(?)))"
	query, filterArgs := buildVectorQuery(t, distanceExpr, mariadbJSON, filters, clampLimit(k))
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
func (s *MariaDBVectorStore) Dimension(ctx context.Context, kind catalog.Kind) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	db := s.db.Session(ctx)

	var columnType string
	result := db.Raw(mariadbColumnTypeQuery, t.name).Scan(&columnType)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("check dimension of %s: %w", t.name, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, nil
	}
	dim := parseVectorDimension(columnType)
	if dim == 0 {
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
	return dim, nil
}

// rowsToHits converts scanned rows into domain hits.
func rowsToHits(rows []hitRow, kind catalog.Kind) []search.Hit {
	hits := make([]search.Hit, len(rows))
	for i, r := range rows {
		hits[i] = r.toHit(kind)
	}
	return hits
}
