// Package jsonapi holds the JSON:API document shapes the HTTP handlers
// respond with.
package jsonapi

// Document is a JSON:API top-level document
// (https://jsonapi.org/format/#document-structure).
type Document struct {
	Data  any    `json:"data"`
	Meta  *Meta  `json:"meta,omitempty"`
	Links *Links `json:"links,omitempty"`
}

// Meta carries non-standard information such as pagination totals.
type Meta map[string]any

// Links carries the document's pagination and self links.
type Links struct {
	Self  string `json:"self,omitempty"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

// Resource is a JSON:API resource object
// (https://jsonapi.org/format/#document-resource-objects).
type Resource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes any    `json:"attributes"`
}

// NewResource creates a resource of the given type, id and attributes.
func NewResource(resourceType, id string, attrs any) *Resource {
	return &Resource{
		Type:       resourceType,
		ID:         id,
		Attributes: attrs,
	}
}

// NewSingleResponse wraps one resource in a document.
func NewSingleResponse(resource *Resource) *Document {
	return &Document{
		Data: resource,
	}
}

// NewListResponse wraps a resource list in a document.
func NewListResponse(resources []*Resource) *Document {
	return &Document{
		Data: resources,
	}
}
