package catalog

import (
	"fmt"
	"strings"
)

// Airline represents one airline row of the catalog.
type Airline struct {
	id       int64
	name     string
	alias    string
	iata     string
	icao     string
	callsign string
	country  string
	active   bool
	logoURL  string
	metadata Metadata
}

// NewAirline creates a new Airline.
func NewAirline(id int64, name, country string) Airline {
	return Airline{
		id:      id,
		name:    name,
		country: country,
	}
}

// ReconstructAirline reconstructs an Airline from persistence.
func ReconstructAirline(
	id int64,
	name, alias, iata, icao, callsign, country string,
	active bool,
	logoURL string,
	metadata Metadata,
) Airline {
	return Airline{
		id:       id,
		name:     name,
		alias:    alias,
		iata:     strings.ToUpper(iata),
		icao:     strings.ToUpper(icao),
		callsign: callsign,
		country:  country,
		active:   active,
		logoURL:  logoURL,
		metadata: metadata,
	}
}

// ID returns the airline ID.
func (a Airline) ID() int64 { return a.id }

// Name returns the airline name.
func (a Airline) Name() string { return a.name }

// Alias returns the airline alias.
func (a Airline) Alias() string { return a.alias }

// IATA returns the 2-letter IATA code.
func (a Airline) IATA() string { return a.iata }

// ICAO returns the 3-letter ICAO code.
func (a Airline) ICAO() string { return a.icao }

// Callsign returns the radio callsign.
func (a Airline) Callsign() string { return a.callsign }

// Country returns the country.
func (a Airline) Country() string { return a.country }

// Active returns true for operating airlines.
func (a Airline) Active() bool { return a.active }

// LogoURL returns the logo location (source URL or local media path).
func (a Airline) LogoURL() string { return a.logoURL }

// Metadata returns the logo metadata.
func (a Airline) Metadata() Metadata { return a.metadata }

// HasLogo returns true when a logo location is set.
func (a Airline) HasLogo() bool { return a.logoURL != "" }

// WithAlias returns a copy with the alias set.
func (a Airline) WithAlias(alias string) Airline {
	a.alias = alias
	return a
}

// WithCodes returns a copy with IATA/ICAO codes set (upper-cased).
func (a Airline) WithCodes(iata, icao string) Airline {
	a.iata = strings.ToUpper(iata)
	a.icao = strings.ToUpper(icao)
	return a
}

// WithCallsign returns a copy with the callsign set.
func (a Airline) WithCallsign(callsign string) Airline {
	a.callsign = callsign
	return a
}

// WithActive returns a copy with the active flag set.
func (a Airline) WithActive(active bool) Airline {
	a.active = active
	return a
}

// WithLogoURL returns a copy with the logo location set.
func (a Airline) WithLogoURL(url string) Airline {
	a.logoURL = url
	return a
}

// WithMetadata returns a copy with the logo metadata set.
func (a Airline) WithMetadata(m Metadata) Airline {
	a.metadata = m
	return a
}

// Prompt returns the text used to embed this airline. The alias is appended
// after the name when present; a trailing comma is avoided when the country
// is unknown.
func (a Airline) Prompt() string {
	name := a.name
	if a.alias != "" {
		name = fmt.Sprintf("%s (%s)", a.name, a.alias)
	}
	prompt := fmt.Sprintf("%s airline logo, brand identity, typography, colors", name)
	if a.country != "" {
		prompt += ", " + a.country
	}
	return prompt
}

// Validate checks required fields.
func (a Airline) Validate() error {
	if a.id <= 0 {
		return fmt.Errorf("airline: %w", ErrInvalidID)
	}
	if a.name == "" {
		return fmt.Errorf("airline %d: %w", a.id, ErrMissingName)
	}
	return nil
}
