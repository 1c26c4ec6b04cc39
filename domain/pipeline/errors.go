package pipeline

import (
	"fmt"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

// ParseError is a row-level failure while parsing source data. Row numbers
// are 1-based and count every line of the input, header included.
type ParseError struct {
	row   int
	cause error
}

// NewParseError creates a ParseError for the given 1-based row.
func NewParseError(row int, cause error) *ParseError {
	return &ParseError{row: row, cause: cause}
}

// Row returns the 1-based row number.
func (e *ParseError) Row() int { return e.row }

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: %v", e.row, e.cause)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.cause }

// EntityError is a per-entity failure during localize, embed or load. The
// run continues; the error is collected on the stage report.
type EntityError struct {
	kind  catalog.Kind
	id    int64
	cause error
}

// NewEntityError creates an EntityError.
func NewEntityError(kind catalog.Kind, id int64, cause error) *EntityError {
	return &EntityError{kind: kind, id: id, cause: cause}
}

// Kind returns the entity kind.
func (e *EntityError) Kind() catalog.Kind { return e.kind }

// ID returns the entity ID.
func (e *EntityError) ID() int64 { return e.id }

// Error implements error.
func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.kind.Singular(), e.id, e.cause)
}

// Unwrap returns the underlying cause.
func (e *EntityError) Unwrap() error { return e.cause }
