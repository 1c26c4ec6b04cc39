package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors shared by catalog entities.
var (
	ErrInvalidID   = errors.New("entity id must be positive")
	ErrMissingName = errors.New("entity name is required")
)

// Airport represents one airport row of the catalog.
type Airport struct {
	id       int64
	name     string
	city     string
	country  string
	iata     string
	icao     string
	coords   Coordinates
	imageURL string
	metadata Metadata
}

// NewAirport creates a new Airport.
func NewAirport(id int64, name, city, country string) Airport {
	return Airport{
		id:      id,
		name:    name,
		city:    city,
		country: country,
	}
}

// ReconstructAirport reconstructs an Airport from persistence.
func ReconstructAirport(
	id int64,
	name, city, country, iata, icao string,
	coords Coordinates,
	imageURL string,
	metadata Metadata,
) Airport {
	return Airport{
		id:       id,
		name:     name,
		city:     city,
		country:  country,
		iata:     strings.ToUpper(iata),
		icao:     strings.ToUpper(icao),
		coords:   coords,
		imageURL: imageURL,
		metadata: metadata,
	}
}

// ID returns the airport ID.
func (a Airport) ID() int64 { return a.id }

// Name returns the airport name.
func (a Airport) Name() string { return a.name }

// City returns the city.
func (a Airport) City() string { return a.city }

// Country returns the country.
func (a Airport) Country() string { return a.country }

// IATA returns the 3-letter IATA code.
func (a Airport) IATA() string { return a.iata }

// ICAO returns the 4-letter ICAO code.
func (a Airport) ICAO() string { return a.icao }

// Coordinates returns the optional position.
func (a Airport) Coordinates() Coordinates { return a.coords }

// ImageURL returns the image location (source URL or local media path).
func (a Airport) ImageURL() string { return a.imageURL }

// Metadata returns the image metadata.
func (a Airport) Metadata() Metadata { return a.metadata }

// HasImage returns true when an image location is set.
func (a Airport) HasImage() bool { return a.imageURL != "" }

// WithCodes returns a copy with IATA/ICAO codes set (upper-cased).
func (a Airport) WithCodes(iata, icao string) Airport {
	a.iata = strings.ToUpper(iata)
	a.icao = strings.ToUpper(icao)
	return a
}

// WithCoordinates returns a copy with the position set.
func (a Airport) WithCoordinates(coords Coordinates) Airport {
	a.coords = coords
	return a
}

// WithImageURL returns a copy with the image location set.
func (a Airport) WithImageURL(url string) Airport {
	a.imageURL = url
	return a
}

// WithMetadata returns a copy with the image metadata set.
func (a Airport) WithMetadata(m Metadata) Airport {
	a.metadata = m
	return a
}

// Prompt returns the text used to embed this airport. Empty parts are
// skipped so missing cities do not produce dangling commas.
func (a Airport) Prompt() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.name, a.city, a.country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ") + ". airport, architecture, travel, terminals, runways."
}

// Validate checks required fields.
func (a Airport) Validate() error {
	if a.id <= 0 {
		return fmt.Errorf("airport: %w", ErrInvalidID)
	}
	if a.name == "" {
		return fmt.Errorf("airport %d: %w", a.id, ErrMissingName)
	}
	return nil
}
