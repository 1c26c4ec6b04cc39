package catalog

import "strings"

// WithID filters by the "id" column.
func WithID(id int64) Option {
	return WithCondition("id", id)
}

// WithIDIn filters by the "id" column using IN.
func WithIDIn(ids []int64) Option {
	return WithConditionIn("id", ids)
}

// WithName filters by the "name" column.
func WithName(name string) Option {
	return WithCondition("name", name)
}

// WithIATA filters by the "iata" column (stored upper-cased).
func WithIATA(code string) Option {
	return WithCondition("iata", strings.ToUpper(code))
}

// WithICAO filters by the "icao" column (stored upper-cased).
func WithICAO(code string) Option {
	return WithCondition("icao", strings.ToUpper(code))
}

// WithCountry filters by the "country" column.
func WithCountry(country string) Option {
	return WithCondition("country", country)
}

// WithCountryIn filters by the "country" column using IN.
func WithCountryIn(countries []string) Option {
	return WithConditionIn("country", countries)
}

// WithCity filters by the "city" column (airports only).
func WithCity(city string) Option {
	return WithCondition("city", city)
}

// WithActive filters by the "active" column (airlines only).
func WithActive(active bool) Option {
	return WithCondition("active", active)
}
