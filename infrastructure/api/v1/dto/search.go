// Package dto defines request and response shapes for the v1 search API.
package dto

// SearchRequest is the body of POST /search/text. Filter fields restrict
// candidates before ranking; zero values mean no constraint.
type SearchRequest struct {
	Q        string `json:"q"`
	Entity   string `json:"entity,omitempty"`
	K        int    `json:"k,omitempty"`
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`
	Style    string `json:"style,omitempty"`
	HasImage *bool  `json:"has_image,omitempty"`
}

// HybridRequest is the body of POST /search/hybrid. At least one of Q and
// ImageB64 must be set; WeightText balances the two modalities and defaults
// to an even split.
type HybridRequest struct {
	Q          string   `json:"q,omitempty"`
	ImageB64   string   `json:"image_b64,omitempty"`
	WeightText *float64 `json:"weight_text,omitempty"`
	Entity     string   `json:"entity,omitempty"`
	K          int      `json:"k,omitempty"`
	Country    string   `json:"country,omitempty"`
	City       string   `json:"city,omitempty"`
	Style      string   `json:"style,omitempty"`
	HasImage   *bool    `json:"has_image,omitempty"`
}

// MetadataSchema represents image metadata attached to a hit.
type MetadataSchema struct {
	Style       string   `json:"style,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	License     string   `json:"license,omitempty"`
	Attribution string   `json:"attribution,omitempty"`
}

// Hit is one ranked search result. Distance is cosine distance, 0 identical
// to 2 opposite.
type Hit struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	City     string          `json:"city,omitempty"`
	Country  string          `json:"country"`
	URL      string          `json:"url,omitempty"`
	Metadata *MetadataSchema `json:"metadata,omitempty"`
	Distance float64         `json:"distance"`
}

// SearchResponse is the response of all three search endpoints.
type SearchResponse struct {
	Count int   `json:"count"`
	Hits  []Hit `json:"hits"`
}
