// Package persistence provides catalog and vector storage implementations.
package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/internal/database"
)

// saveBatchSize bounds how many rows a single INSERT carries during batch
// upserts.
const saveBatchSize = 500

// metadataJSON is the wire shape of the metadata column.
type metadataJSON struct {
	Style       string   `json:"style,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	License     string   `json:"license,omitempty"`
	Attribution string   `json:"attribution,omitempty"`
}

// MetadataColumn wraps catalog.Metadata for storage as a JSON column.
// Empty metadata round-trips through NULL so rows without attributes carry
// no JSON at all.
type MetadataColumn struct {
	metadata catalog.Metadata
}

// NewMetadataColumn creates a MetadataColumn from domain metadata.
func NewMetadataColumn(m catalog.Metadata) MetadataColumn {
	return MetadataColumn{metadata: m}
}

// Metadata returns the wrapped domain metadata.
func (c MetadataColumn) Metadata() catalog.Metadata {
	return c.metadata
}

// Scan implements sql.Scanner for reading the JSON column.
func (c *MetadataColumn) Scan(value any) error {
	if value == nil {
		c.metadata = catalog.Metadata{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into MetadataColumn", value)
	}

	if len(data) == 0 {
		c.metadata = catalog.Metadata{}
		return nil
	}

	var m metadataJSON
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	c.metadata = catalog.NewMetadata(m.Style, m.Tags, m.License, m.Attribution)
	return nil
}

// Value implements driver.Valuer for writing the JSON column.
func (c MetadataColumn) Value() (driver.Value, error) {
	if c.metadata.IsZero() {
		return nil, nil
	}
	data, err := json.Marshal(metadataJSON{
		Style:       c.metadata.Style(),
		Tags:        c.metadata.Tags(),
		License:     c.metadata.License(),
		Attribution: c.metadata.Attribution(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

// AirportModel represents an airport row. The embedding column is absent on
// purpose: catalog reads and saves never touch stored vectors.
type AirportModel struct {
	ID        int64          `gorm:"column:id;primaryKey"`
	Name      string         `gorm:"column:name;size:255"`
	City      string         `gorm:"column:city;index;size:255"`
	Country   string         `gorm:"column:country;index;size:255"`
	IATA      string         `gorm:"column:iata;index;size:3"`
	ICAO      string         `gorm:"column:icao;index;size:4"`
	Latitude  *float64       `gorm:"column:latitude"`
	Longitude *float64       `gorm:"column:longitude"`
	ImageURL  string         `gorm:"column:image_url;size:1024"`
	Metadata  MetadataColumn `gorm:"column:metadata;type:json"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (AirportModel) TableName() string {
	return "airports"
}

// AirlineModel represents an airline row.
type AirlineModel struct {
	ID        int64          `gorm:"column:id;primaryKey"`
	Name      string         `gorm:"column:name;size:255"`
	Alias     string         `gorm:"column:alias;size:255"`
	IATA      string         `gorm:"column:iata;index;size:3"`
	ICAO      string         `gorm:"column:icao;index;size:4"`
	Callsign  string         `gorm:"column:callsign;size:255"`
	Country   string         `gorm:"column:country;index;size:255"`
	Active    bool           `gorm:"column:active"`
	LogoURL   string         `gorm:"column:logo_url;size:1024"`
	Metadata  MetadataColumn `gorm:"column:metadata;type:json"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (AirlineModel) TableName() string {
	return "airlines"
}

// airportVectorModel adds the embedding column for loader writes on backends
// where GORM drives the upsert (Postgres, SQLite). MariaDB writes raw SQL
// through VEC_FromText instead.
type airportVectorModel struct {
	AirportModel
	Embedding database.VectorColumn `gorm:"column:embedding"`
}

// TableName returns the table name.
func (airportVectorModel) TableName() string {
	return "airports"
}

// airlineVectorModel is the airline counterpart of airportVectorModel.
type airlineVectorModel struct {
	AirlineModel
	Embedding database.VectorColumn `gorm:"column:embedding"`
}

// TableName returns the table name.
func (airlineVectorModel) TableName() string {
	return "airlines"
}

// Non-key columns a catalog save rewrites on conflict. Vector saves extend
// these with the embedding column; catalog-only saves leave stored vectors
// untouched.
var (
	airportUpdateColumns = []string{
		"name", "city", "country", "iata", "icao",
		"latitude", "longitude", "image_url", "metadata", "updated_at",
	}
	airlineUpdateColumns = []string{
		"name", "alias", "iata", "icao", "callsign",
		"country", "active", "logo_url", "metadata", "updated_at",
	}
)

// withEmbedding returns cols plus the embedding column.
func withEmbedding(cols []string) []string {
	out := make([]string, 0, len(cols)+1)
	out = append(out, cols...)
	return append(out, "embedding")
}

// airportMapper maps between catalog.Airport and AirportModel.
type airportMapper struct{}

func (airportMapper) ToDomain(e AirportModel) catalog.Airport {
	var coords catalog.Coordinates
	if e.Latitude != nil && e.Longitude != nil {
		coords = catalog.NewCoordinates(*e.Latitude, *e.Longitude)
	}
	return catalog.ReconstructAirport(
		e.ID, e.Name, e.City, e.Country, e.IATA, e.ICAO,
		coords, e.ImageURL, e.Metadata.Metadata(),
	)
}

func (airportMapper) ToModel(a catalog.Airport) AirportModel {
	var lat, lon *float64
	if coords := a.Coordinates(); !coords.IsZero() {
		la, lo := coords.Lat(), coords.Lon()
		lat, lon = &la, &lo
	}
	return AirportModel{
		ID:        a.ID(),
		Name:      a.Name(),
		City:      a.City(),
		Country:   a.Country(),
		IATA:      a.IATA(),
		ICAO:      a.ICAO(),
		Latitude:  lat,
		Longitude: lon,
		ImageURL:  a.ImageURL(),
		Metadata:  NewMetadataColumn(a.Metadata()),
	}
}

// airlineMapper maps between catalog.Airline and AirlineModel.
type airlineMapper struct{}

func (airlineMapper) ToDomain(e AirlineModel) catalog.Airline {
	return catalog.ReconstructAirline(
		e.ID, e.Name, e.Alias, e.IATA, e.ICAO, e.Callsign, e.Country,
		e.Active, e.LogoURL, e.Metadata.Metadata(),
	)
}

func (airlineMapper) ToModel(a catalog.Airline) AirlineModel {
	return AirlineModel{
		ID:       a.ID(),
		Name:     a.Name(),
		Alias:    a.Alias(),
		IATA:     a.IATA(),
		ICAO:     a.ICAO(),
		Callsign: a.Callsign(),
		Country:  a.Country(),
		Active:   a.Active(),
		LogoURL:  a.LogoURL(),
		Metadata: NewMetadataColumn(a.Metadata()),
	}
}

// kindTable describes the per-kind table layout the vector stores query.
type kindTable struct {
	name      string
	urlColumn string
	hasCity   bool
}

var (
	airportsTable = kindTable{name: "airports", urlColumn: "image_url", hasCity: true}
	airlinesTable = kindTable{name: "airlines", urlColumn: "logo_url", hasCity: false}
)

func tableFor(kind catalog.Kind) (kindTable, error) {
	switch kind {
	case catalog.KindAirport:
		return airportsTable, nil
	case catalog.KindAirline:
		return airlinesTable, nil
	default:
		return kindTable{}, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, kind)
	}
}

// selectColumns returns the projection for search queries. Airlines have no
// city column and carry their codes for display names.
func (t kindTable) selectColumns() string {
	if t.hasCity {
		return "id, name, city, country, image_url AS url, metadata"
	}
	return "id, name, '' AS city, country, iata, icao, logo_url AS url, metadata"
}

// hitRow is the scan target shared by every backend's search query.
type hitRow struct {
	ID       int64          `gorm:"column:id"`
	Name     string         `gorm:"column:name"`
	City     string         `gorm:"column:city"`
	Country  string         `gorm:"column:country"`
	IATA     string         `gorm:"column:iata"`
	ICAO     string         `gorm:"column:icao"`
	URL      string         `gorm:"column:url"`
	Metadata MetadataColumn `gorm:"column:metadata"`
	Distance float64        `gorm:"column:distance"`
}

// toHit converts a scanned row to a domain hit. Airline names carry their
// IATA/ICAO codes so results stay readable without extra fields.
func (r hitRow) toHit(kind catalog.Kind) search.Hit {
	name := r.Name
	if kind == catalog.KindAirline && (r.IATA != "" || r.ICAO != "") {
		name = fmt.Sprintf("%s (%s/%s)", r.Name, r.IATA, r.ICAO)
	}
	return search.NewHit(r.ID, name, r.City, r.Country, r.URL, r.Metadata.Metadata(), r.Distance)
}

// clampLimit applies the default and the hard cap every backend shares.
func clampLimit(k int) int {
	switch {
	case k <= 0:
		return search.DefaultLimit
	case k > search.MaxLimit:
		return search.MaxLimit
	default:
		return k
	}
}

// clampWeight keeps the hybrid text weight inside [0, 1].
func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
