// Package openflights parses OpenFlights source data into catalog records.
// It accepts both the canonical headerless .dat exports, where `\N` marks a
// missing value, and headered CSV files with flexible column naming.
package openflights

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/pipeline"
)

// Canonical column order of the headerless .dat exports. Airport rows carry
// six more trailing columns (altitude through source) that are ignored.
var (
	airportDatColumns = []string{"id", "name", "city", "country", "iata", "icao", "latitude", "longitude"}
	airlineDatColumns = []string{"id", "name", "alias", "iata", "icao", "callsign", "country", "active"}
	imageRefColumns   = []string{"entity_type", "id", "url", "license", "attribution", "style", "tags"}
)

// Header aliases for CSV inputs, lowercased.
var (
	airportAliases = map[string]string{
		"id": "id", "airport id": "id", "airport_id": "id",
		"name": "name", "city": "city", "country": "country",
		"iata": "iata", "icao": "icao",
		"latitude": "latitude", "lat": "latitude",
		"longitude": "longitude", "lon": "longitude", "lng": "longitude",
	}
	airlineAliases = map[string]string{
		"id": "id", "airline id": "id", "airline_id": "id",
		"name": "name", "alias": "alias",
		"iata": "iata", "icao": "icao",
		"callsign": "callsign", "country": "country", "active": "active",
	}
	imageRefAliases = map[string]string{
		"entity_type": "entity_type", "entity type": "entity_type", "kind": "entity_type",
		"id": "id", "entity_id": "id",
		"url": "url", "image_url": "url",
		"license": "license", "attribution": "attribution",
		"style": "style", "tags": "tags",
	}
)

// Parser parses OpenFlights source files. The zero error limit aborts on the
// first malformed row; a positive limit skips and collects up to that many
// row errors before aborting.
type Parser struct {
	errorLimit int
	logger     *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithErrorLimit sets how many malformed rows may be skipped before the
// parse aborts. Negative values are treated as zero.
func WithErrorLimit(n int) Option {
	return func(p *Parser) {
		if n < 0 {
			n = 0
		}
		p.errorLimit = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// ParseAirports parses airport rows. It returns the parsed airports with
// duplicate IDs dropped keeping the first occurrence, the row errors skipped
// under the error limit, and a fatal error when the limit is exceeded or the
// input is unreadable.
func (p *Parser) ParseAirports(r io.Reader) ([]catalog.Airport, []error, error) {
	table, err := readTable(r, airportAliases, airportDatColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("parse airports: %w", err)
	}
	if err := table.require("id", "name"); err != nil {
		return nil, nil, fmt.Errorf("parse airports: %w", err)
	}

	collector := newRowCollector(p.errorLimit)
	seen := make(map[int64]struct{})
	duplicates := 0

	var airports []catalog.Airport
	for _, rec := range table.rows {
		airport, err := airportFromRow(rec)
		if err != nil {
			if abort := collector.add(rec.number, err); abort != nil {
				return nil, nil, abort
			}
			continue
		}
		if _, dup := seen[airport.ID()]; dup {
			duplicates++
			continue
		}
		seen[airport.ID()] = struct{}{}
		airports = append(airports, airport)
	}

	p.logger.Debug("parsed airports",
		slog.Int("rows", len(airports)),
		slog.Int("skipped", len(collector.errors)),
		slog.Int("duplicates", duplicates),
	)

	return airports, collector.errors, nil
}

// ParseAirlines parses airline rows with the same error and deduplication
// semantics as ParseAirports.
func (p *Parser) ParseAirlines(r io.Reader) ([]catalog.Airline, []error, error) {
	table, err := readTable(r, airlineAliases, airlineDatColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("parse airlines: %w", err)
	}
	if err := table.require("id", "name"); err != nil {
		return nil, nil, fmt.Errorf("parse airlines: %w", err)
	}

	collector := newRowCollector(p.errorLimit)
	seen := make(map[int64]struct{})
	duplicates := 0

	var airlines []catalog.Airline
	for _, rec := range table.rows {
		airline, err := airlineFromRow(rec)
		if err != nil {
			if abort := collector.add(rec.number, err); abort != nil {
				return nil, nil, abort
			}
			continue
		}
		if _, dup := seen[airline.ID()]; dup {
			duplicates++
			continue
		}
		seen[airline.ID()] = struct{}{}
		airlines = append(airlines, airline)
	}

	p.logger.Debug("parsed airlines",
		slog.Int("rows", len(airlines)),
		slog.Int("skipped", len(collector.errors)),
		slog.Int("duplicates", duplicates),
	)

	return airlines, collector.errors, nil
}

// ParseImageRefs parses the image URL table (entity kind, id, url, license,
// attribution, style, tags). Duplicate (kind, id) pairs keep the first row.
func (p *Parser) ParseImageRefs(r io.Reader) ([]catalog.ImageRef, []error, error) {
	table, err := readTable(r, imageRefAliases, imageRefColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("parse image refs: %w", err)
	}
	if err := table.require("entity_type", "id", "url"); err != nil {
		return nil, nil, fmt.Errorf("parse image refs: %w", err)
	}

	collector := newRowCollector(p.errorLimit)
	type refKey struct {
		kind catalog.Kind
		id   int64
	}
	seen := make(map[refKey]struct{})
	duplicates := 0

	var refs []catalog.ImageRef
	for _, rec := range table.rows {
		ref, err := imageRefFromRow(rec)
		if err != nil {
			if abort := collector.add(rec.number, err); abort != nil {
				return nil, nil, abort
			}
			continue
		}
		key := refKey{kind: ref.Kind(), id: ref.EntityID()}
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, ref)
	}

	p.logger.Debug("parsed image refs",
		slog.Int("rows", len(refs)),
		slog.Int("skipped", len(collector.errors)),
		slog.Int("duplicates", duplicates),
	)

	return refs, collector.errors, nil
}

// ParseAirportsFile opens path and parses it with ParseAirports.
func (p *Parser) ParseAirportsFile(path string) ([]catalog.Airport, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open airports file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return p.ParseAirports(f)
}

// ParseAirlinesFile opens path and parses it with ParseAirlines.
func (p *Parser) ParseAirlinesFile(path string) ([]catalog.Airline, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open airlines file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return p.ParseAirlines(f)
}

// ParseImageRefsFile opens path and parses it with ParseImageRefs.
func (p *Parser) ParseImageRefsFile(path string) ([]catalog.ImageRef, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open image refs file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return p.ParseImageRefs(f)
}

func airportFromRow(rec tableRow) (catalog.Airport, error) {
	id, err := parseID(rec.value("id"))
	if err != nil {
		return catalog.Airport{}, err
	}

	coords, err := parseCoordinates(rec.value("latitude"), rec.value("longitude"))
	if err != nil {
		return catalog.Airport{}, err
	}

	airport := catalog.NewAirport(id, rec.value("name"), rec.value("city"), rec.value("country")).
		WithCodes(rec.value("iata"), rec.value("icao")).
		WithCoordinates(coords)

	if err := airport.Validate(); err != nil {
		return catalog.Airport{}, err
	}
	return airport, nil
}

func airlineFromRow(rec tableRow) (catalog.Airline, error) {
	id, err := parseID(rec.value("id"))
	if err != nil {
		return catalog.Airline{}, err
	}

	airline := catalog.NewAirline(id, rec.value("name"), rec.value("country")).
		WithAlias(rec.value("alias")).
		WithCodes(rec.value("iata"), rec.value("icao")).
		WithCallsign(rec.value("callsign")).
		WithActive(strings.EqualFold(rec.value("active"), "y"))

	if err := airline.Validate(); err != nil {
		return catalog.Airline{}, err
	}
	return airline, nil
}

func imageRefFromRow(rec tableRow) (catalog.ImageRef, error) {
	kind, err := catalog.ParseKind(rec.value("entity_type"))
	if err != nil {
		return catalog.ImageRef{}, err
	}

	id, err := parseID(rec.value("id"))
	if err != nil {
		return catalog.ImageRef{}, err
	}

	ref := catalog.NewImageRef(kind, id, rec.value("url")).
		WithAnnotations(
			rec.value("license"),
			rec.value("attribution"),
			rec.value("style"),
			splitTags(rec.value("tags")),
		)

	if err := ref.Validate(); err != nil {
		return catalog.ImageRef{}, err
	}
	return ref, nil
}

func parseID(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: missing id", catalog.ErrInvalidID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", catalog.ErrInvalidID, raw)
	}
	return id, nil
}

// parseCoordinates returns valid coordinates only when both fields parse.
// Missing fields yield null coordinates; garbage in a present field is a row
// error.
func parseCoordinates(latRaw, lonRaw string) (catalog.Coordinates, error) {
	if latRaw == "" && lonRaw == "" {
		return catalog.Coordinates{}, nil
	}

	var lat, lon float64
	var haveLat, haveLon bool

	if latRaw != "" {
		v, err := strconv.ParseFloat(latRaw, 64)
		if err != nil {
			return catalog.Coordinates{}, fmt.Errorf("latitude %q is not a number", latRaw)
		}
		lat, haveLat = v, true
	}
	if lonRaw != "" {
		v, err := strconv.ParseFloat(lonRaw, 64)
		if err != nil {
			return catalog.Coordinates{}, fmt.Errorf("longitude %q is not a number", lonRaw)
		}
		lon, haveLon = v, true
	}

	if !haveLat || !haveLon {
		return catalog.Coordinates{}, nil
	}
	return catalog.NewCoordinates(lat, lon), nil
}

// splitTags splits a tag list on commas and pipes, trimming whitespace.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '|'
	})
	var tags []string
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// rowCollector enforces the error limit while collecting skipped-row errors.
type rowCollector struct {
	limit  int
	errors []error
}

func newRowCollector(limit int) *rowCollector {
	return &rowCollector{limit: limit}
}

// add records a row error. It returns the error that aborts the parse when
// the limit is reached, nil when the row may be skipped.
func (c *rowCollector) add(row int, cause error) error {
	perr := pipeline.NewParseError(row, cause)
	if len(c.errors) >= c.limit {
		return perr
	}
	c.errors = append(c.errors, perr)
	return nil
}

// readCSV reads all records without enforcing a fixed field count, so .dat
// exports with trailing columns and short CSV rows both reach row-level
// validation.
func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}
