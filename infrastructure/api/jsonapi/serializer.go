package jsonapi

import (
	"fmt"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

// AirportAttributes represents airport attributes in JSON:API format.
type AirportAttributes struct {
	Name      string          `json:"name"`
	City      string          `json:"city,omitempty"`
	Country   string          `json:"country"`
	IATA      string          `json:"iata,omitempty"`
	ICAO      string          `json:"icao,omitempty"`
	Latitude  *float64        `json:"latitude,omitempty"`
	Longitude *float64        `json:"longitude,omitempty"`
	ImageURL  string          `json:"image_url,omitempty"`
	Metadata  *MetadataSchema `json:"metadata,omitempty"`
}

// AirlineAttributes represents airline attributes in JSON:API format.
type AirlineAttributes struct {
	Name     string          `json:"name"`
	Alias    string          `json:"alias,omitempty"`
	Country  string          `json:"country,omitempty"`
	IATA     string          `json:"iata,omitempty"`
	ICAO     string          `json:"icao,omitempty"`
	Callsign string          `json:"callsign,omitempty"`
	Active   bool            `json:"active"`
	LogoURL  string          `json:"logo_url,omitempty"`
	Metadata *MetadataSchema `json:"metadata,omitempty"`
}

// MetadataSchema represents image metadata attached to an entity.
type MetadataSchema struct {
	Style       string   `json:"style,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	License     string   `json:"license,omitempty"`
	Attribution string   `json:"attribution,omitempty"`
}

// Serializer converts catalog entities to JSON:API resources.
type Serializer struct{}

// NewSerializer creates a new Serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// AirportResource converts an airport to a JSON:API resource.
func (s *Serializer) AirportResource(a catalog.Airport) *Resource {
	attrs := &AirportAttributes{
		Name:     a.Name(),
		City:     a.City(),
		Country:  a.Country(),
		IATA:     a.IATA(),
		ICAO:     a.ICAO(),
		ImageURL: a.ImageURL(),
		Metadata: metadataSchema(a.Metadata()),
	}

	if coords := a.Coordinates(); !coords.IsZero() {
		lat := coords.Lat()
		lon := coords.Lon()
		attrs.Latitude = &lat
		attrs.Longitude = &lon
	}

	return NewResource("airport", fmt.Sprintf("%d", a.ID()), attrs)
}

// AirportResources converts multiple airports to JSON:API resources.
func (s *Serializer) AirportResources(airports []catalog.Airport) []*Resource {
	resources := make([]*Resource, len(airports))
	for i, a := range airports {
		resources[i] = s.AirportResource(a)
	}
	return resources
}

// AirlineResource converts an airline to a JSON:API resource.
func (s *Serializer) AirlineResource(a catalog.Airline) *Resource {
	attrs := &AirlineAttributes{
		Name:     a.Name(),
		Alias:    a.Alias(),
		Country:  a.Country(),
		IATA:     a.IATA(),
		ICAO:     a.ICAO(),
		Callsign: a.Callsign(),
		Active:   a.Active(),
		LogoURL:  a.LogoURL(),
		Metadata: metadataSchema(a.Metadata()),
	}
	return NewResource("airline", fmt.Sprintf("%d", a.ID()), attrs)
}

// AirlineResources converts multiple airlines to JSON:API resources.
func (s *Serializer) AirlineResources(airlines []catalog.Airline) []*Resource {
	resources := make([]*Resource, len(airlines))
	for i, a := range airlines {
		resources[i] = s.AirlineResource(a)
	}
	return resources
}

// metadataSchema converts entity metadata, mapping the zero value to nil so
// entities without image metadata omit the field entirely.
func metadataSchema(m catalog.Metadata) *MetadataSchema {
	if m.IsZero() {
		return nil
	}
	return &MetadataSchema{
		Style:       m.Style(),
		Tags:        m.Tags(),
		License:     m.License(),
		Attribution: m.Attribution(),
	}
}
