package catalog

// Coordinates is an optional latitude/longitude pair. The zero value means
// the position is unknown and maps to NULL columns.
type Coordinates struct {
	lat   float64
	lon   float64
	valid bool
}

// NewCoordinates creates a valid Coordinates.
func NewCoordinates(lat, lon float64) Coordinates {
	return Coordinates{lat: lat, lon: lon, valid: true}
}

// Lat returns the latitude.
func (c Coordinates) Lat() float64 { return c.lat }

// Lon returns the longitude.
func (c Coordinates) Lon() float64 { return c.lon }

// IsZero returns true when the position is unknown.
func (c Coordinates) IsZero() bool { return !c.valid }

// Equal returns true if two Coordinates values are equal.
func (c Coordinates) Equal(other Coordinates) bool {
	return c.valid == other.valid && c.lat == other.lat && c.lon == other.lon
}
