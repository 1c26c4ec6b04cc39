package search

import "github.com/skyvisionhq/skyvision/domain/catalog"

// Hit is one ranked search result. Distance is cosine distance: 0 means
// identical direction, 2 means opposite.
type Hit struct {
	id       int64
	name     string
	city     string
	country  string
	url      string
	metadata catalog.Metadata
	distance float64
}

// NewHit creates a new Hit.
func NewHit(id int64, name, city, country, url string, metadata catalog.Metadata, distance float64) Hit {
	return Hit{
		id:       id,
		name:     name,
		city:     city,
		country:  country,
		url:      url,
		metadata: metadata,
		distance: distance,
	}
}

// ID returns the entity ID.
func (h Hit) ID() int64 { return h.id }

// Name returns the entity display name.
func (h Hit) Name() string { return h.name }

// City returns the entity city, empty for airlines.
func (h Hit) City() string { return h.city }

// Country returns the entity country.
func (h Hit) Country() string { return h.country }

// URL returns the localized image or logo URL.
func (h Hit) URL() string { return h.url }

// HasURL reports whether the hit carries an image or logo URL.
func (h Hit) HasURL() bool { return h.url != "" }

// Metadata returns the entity metadata.
func (h Hit) Metadata() catalog.Metadata { return h.metadata }

// Distance returns the cosine distance to the query.
func (h Hit) Distance() float64 { return h.distance }

// WithDistance returns a copy with the given distance. Hybrid blending
// rewrites per-hit distances through this.
func (h Hit) WithDistance(distance float64) Hit {
	h.distance = distance
	return h
}

// Result is a ranked result set for one search operation.
type Result struct {
	mode Mode
	hits []Hit
}

// NewResult creates a new Result.
func NewResult(mode Mode, hits []Hit) Result {
	h := make([]Hit, len(hits))
	copy(h, hits)
	return Result{mode: mode, hits: h}
}

// Mode returns the search modality that produced the result.
func (r Result) Mode() Mode { return r.mode }

// Hits returns the ranked hits.
func (r Result) Hits() []Hit {
	hits := make([]Hit, len(r.hits))
	copy(hits, r.hits)
	return hits
}

// Count returns the number of hits.
func (r Result) Count() int { return len(r.hits) }
