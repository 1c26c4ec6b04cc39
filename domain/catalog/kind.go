// Package catalog provides airport and airline catalog domain types.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind indicates an unrecognized entity kind string.
var ErrUnknownKind = errors.New("unknown entity kind")

// Kind identifies a catalog entity kind.
type Kind string

// Kind values. The plural form is canonical and matches table names and
// API paths.
const (
	KindAirport Kind = "airports"
	KindAirline Kind = "airlines"
)

// ParseKind parses a Kind from a string, accepting singular and plural
// forms case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "airport", "airports":
		return KindAirport, nil
	case "airline", "airlines":
		return KindAirline, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Valid returns true for a recognized kind.
func (k Kind) Valid() bool {
	return k == KindAirport || k == KindAirline
}

// Singular returns the singular form used in cache file names.
func (k Kind) Singular() string {
	switch k {
	case KindAirport:
		return "airport"
	case KindAirline:
		return "airline"
	default:
		return string(k)
	}
}

// String returns the canonical plural form.
func (k Kind) String() string { return string(k) }
