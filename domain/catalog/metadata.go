package catalog

import (
	"slices"
	"strings"
)

// Metadata holds descriptive attributes attached to a catalog entity's image.
type Metadata struct {
	style       string
	tags        []string
	license     string
	attribution string
}

// NewMetadata creates a new Metadata. Tags are trimmed, deduplicated, and
// stored sorted.
func NewMetadata(style string, tags []string, license, attribution string) Metadata {
	return Metadata{
		style:       style,
		tags:        normalizeTags(tags),
		license:     license,
		attribution: attribution,
	}
}

// Style returns the image style keyword.
func (m Metadata) Style() string { return m.style }

// Tags returns a copy of the sorted tag list.
func (m Metadata) Tags() []string {
	if m.tags == nil {
		return nil
	}
	result := make([]string, len(m.tags))
	copy(result, m.tags)
	return result
}

// License returns the image license.
func (m Metadata) License() string { return m.license }

// Attribution returns the image attribution.
func (m Metadata) Attribution() string { return m.attribution }

// IsZero returns true when no metadata fields are set.
func (m Metadata) IsZero() bool {
	return m.style == "" && len(m.tags) == 0 && m.license == "" && m.attribution == ""
}

// Merge returns a Metadata where non-empty fields of other replace the
// receiver's and tags are the union of both sets.
func (m Metadata) Merge(other Metadata) Metadata {
	merged := m
	if other.style != "" {
		merged.style = other.style
	}
	if other.license != "" {
		merged.license = other.license
	}
	if other.attribution != "" {
		merged.attribution = other.attribution
	}
	if len(other.tags) > 0 {
		merged.tags = normalizeTags(append(m.Tags(), other.tags...))
	}
	return merged
}

// Equal returns true if two Metadata values are equal.
func (m Metadata) Equal(other Metadata) bool {
	return m.style == other.style &&
		m.license == other.license &&
		m.attribution == other.attribution &&
		slices.Equal(m.tags, other.tags)
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	slices.Sort(cleaned)
	return slices.Compact(cleaned)
}
