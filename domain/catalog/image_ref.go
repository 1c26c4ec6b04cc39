package catalog

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidImageURL indicates a reference URL that is not http(s).
var ErrInvalidImageURL = errors.New("image url must be http or https")

// ImageRef is one row of the image reference table: it points a catalog
// entity at a source image and carries optional annotations that merge
// into the entity's metadata at load time.
type ImageRef struct {
	kind        Kind
	entityID    int64
	url         string
	license     string
	attribution string
	style       string
	tags        []string
}

// NewImageRef creates a new ImageRef.
func NewImageRef(kind Kind, entityID int64, rawURL string) ImageRef {
	return ImageRef{
		kind:     kind,
		entityID: entityID,
		url:      rawURL,
	}
}

// WithAnnotations returns a copy with the optional annotation fields set.
func (r ImageRef) WithAnnotations(license, attribution, style string, tags []string) ImageRef {
	r.license = license
	r.attribution = attribution
	r.style = style
	r.tags = normalizeTags(tags)
	return r
}

// WithURL returns a copy pointing at a different image location, typically
// the local media path after the image has been downloaded.
func (r ImageRef) WithURL(url string) ImageRef {
	r.url = url
	return r
}

// Kind returns the entity kind this reference belongs to.
func (r ImageRef) Kind() Kind { return r.kind }

// EntityID returns the referenced entity ID.
func (r ImageRef) EntityID() int64 { return r.entityID }

// URL returns the source image URL.
func (r ImageRef) URL() string { return r.url }

// License returns the image license annotation.
func (r ImageRef) License() string { return r.license }

// Attribution returns the image attribution annotation.
func (r ImageRef) Attribution() string { return r.attribution }

// Style returns the image style annotation.
func (r ImageRef) Style() string { return r.style }

// Tags returns a copy of the tag annotations.
func (r ImageRef) Tags() []string {
	if r.tags == nil {
		return nil
	}
	result := make([]string, len(r.tags))
	copy(result, r.tags)
	return result
}

// Metadata builds a Metadata from the annotation fields.
func (r ImageRef) Metadata() Metadata {
	return NewMetadata(r.style, r.tags, r.license, r.attribution)
}

// Validate checks that the reference targets a known kind, a positive
// entity ID, and an http(s) URL.
func (r ImageRef) Validate() error {
	if !r.kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.kind)
	}
	if r.entityID <= 0 {
		return fmt.Errorf("image ref for %s: %w", r.kind, ErrInvalidID)
	}
	u, err := url.Parse(r.url)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidImageURL, r.url)
	}
	return nil
}
