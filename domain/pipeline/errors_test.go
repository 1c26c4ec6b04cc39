package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

func TestParseError_RowAndMessage(t *testing.T) {
	cause := errors.New("bad id")
	err := NewParseError(17, cause)

	if err.Row() != 17 {
		t.Errorf("Row() = %d, want 17", err.Row())
	}
	if got := err.Error(); got != "row 17: bad id" {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseError_Unwrap(t *testing.T) {
	cause := strconv.ErrSyntax
	wrapped := fmt.Errorf("parse airports: %w", NewParseError(3, cause))

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should reach the cause through ParseError")
	}

	var perr *ParseError
	if !errors.As(wrapped, &perr) {
		t.Fatal("errors.As failed to find ParseError")
	}
	if perr.Row() != 3 {
		t.Errorf("Row() = %d, want 3", perr.Row())
	}
}

func TestEntityError(t *testing.T) {
	cause := errors.New("fetch failed")
	err := NewEntityError(catalog.KindAirline, 324, cause)

	if err.Kind() != catalog.KindAirline {
		t.Errorf("Kind() = %v", err.Kind())
	}
	if err.ID() != 324 {
		t.Errorf("ID() = %d, want 324", err.ID())
	}
	if got := err.Error(); got != "airline 324: fetch failed" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}
