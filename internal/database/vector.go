package database

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VectorColumn wraps a float64 slice for use as an embedding column value.
// It implements sql.Scanner and driver.Valuer for the text form
// "[1.0,2.0,3.0]", which is what MariaDB's VEC_FromText takes, what
// pgvector's VECTOR type speaks, and valid JSON for a SQLite TEXT column.
type VectorColumn struct {
	floats []float64
}

// NewVectorColumn creates a VectorColumn from a float64 slice. The input is
// defensively copied so later mutations of the source slice have no effect.
func NewVectorColumn(floats []float64) VectorColumn {
	cp := make([]float64, len(floats))
	copy(cp, floats)
	return VectorColumn{floats: cp}
}

// Floats returns a defensive copy of the underlying float64 slice.
// Returns nil if the vector was never initialized (e.g. scanned from nil).
func (v VectorColumn) Floats() []float64 {
	if v.floats == nil {
		return nil
	}
	cp := make([]float64, len(v.floats))
	copy(cp, v.floats)
	return cp
}

// Dimension returns the number of elements in the vector.
func (v VectorColumn) Dimension() int {
	return len(v.floats)
}

// Scan implements sql.Scanner. It parses the vector text format
// "[1.0,2.0,3.0]" from either a string or []byte value.
func (v *VectorColumn) Scan(value any) error {
	if value == nil {
		v.floats = nil
		return nil
	}

	var raw string
	switch val := value.(type) {
	case string:
		raw = val
	case []byte:
		raw = string(val)
	default:
		return fmt.Errorf("cannot scan %T into VectorColumn", value)
	}

	raw = strings.TrimSpace(raw)
	if raw == "[]" || raw == "" {
		v.floats = []float64{}
		return nil
	}

	// Strip surrounding brackets
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")

	parts := strings.Split(raw, ",")
	floats := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("parse element %d: %w", i, err)
		}
		floats[i] = f
	}

	v.floats = floats
	return nil
}

// Value implements driver.Valuer. It serializes the vector to the text
// format "[1.0,2.0,3.0]".
func (v VectorColumn) Value() (driver.Value, error) {
	return v.String(), nil
}

// String returns the vector literal "[1.0,2.0,3.0]". NaN and infinite
// components are written as 0 so the literal always parses on the database
// side.
func (v VectorColumn) String() string {
	// Pre-allocate: ~12 bytes per float (digits + comma) plus brackets.
	var b strings.Builder
	b.Grow(len(v.floats)*12 + 2)
	b.WriteByte('[')
	for i, f := range v.floats {
		if i > 0 {
			b.WriteByte(',')
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			b.WriteByte('0')
			continue
		}
		b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
