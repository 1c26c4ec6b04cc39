package openflights

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/skyvisionhq/skyvision/domain/pipeline"
)

// tableRow is one data row keyed by canonical column name. Row numbers are
// 1-based record ordinals; in headered files the header counts as row 1.
type tableRow struct {
	number int
	values map[string]string
}

func (r tableRow) value(name string) string {
	return r.values[name]
}

// table is a parsed input with its detected columns.
type table struct {
	columns map[string]struct{}
	rows    []tableRow
}

// require fails when a required canonical column was not detected.
func (t *table) require(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return pipeline.NewParseError(1, fmt.Errorf("header is missing required columns: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// readTable reads a CSV input and detects its layout. A first cell that
// parses as an integer marks a headerless .dat export read positionally by
// datColumns; otherwise the first record must name at least one known column
// through aliases. Empty input yields an empty table.
func readTable(r io.Reader, aliases map[string]string, datColumns []string) (*table, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	t := &table{columns: make(map[string]struct{})}
	if len(records) == 0 {
		for _, col := range datColumns {
			t.columns[col] = struct{}{}
		}
		return t, nil
	}

	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\uFEFF")
	}

	if isDatRecord(records[0]) {
		for _, col := range datColumns {
			t.columns[col] = struct{}{}
		}
		for i, rec := range records {
			t.rows = append(t.rows, positionalRow(i+1, rec, datColumns))
		}
		return t, nil
	}

	header, matched := matchHeader(records[0], aliases)
	if !matched {
		return nil, pipeline.NewParseError(1, fmt.Errorf("unrecognized header %q", strings.Join(records[0], ",")))
	}
	for _, col := range header {
		if col != "" {
			t.columns[col] = struct{}{}
		}
	}
	for i, rec := range records[1:] {
		t.rows = append(t.rows, headeredRow(i+2, rec, header))
	}
	return t, nil
}

// isDatRecord reports whether a record opens with the numeric ID column of a
// headerless .dat export.
func isDatRecord(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	return err == nil
}

// matchHeader maps header cells to canonical column names. Unknown cells map
// to "" and are ignored; matched reports whether any cell was recognized.
func matchHeader(rec []string, aliases map[string]string) ([]string, bool) {
	header := make([]string, len(rec))
	matched := false
	for i, cell := range rec {
		canonical, ok := aliases[strings.ToLower(strings.TrimSpace(cell))]
		if !ok {
			continue
		}
		header[i] = canonical
		matched = true
	}
	return header, matched
}

func positionalRow(number int, rec []string, datColumns []string) tableRow {
	values := make(map[string]string, len(datColumns))
	for i, col := range datColumns {
		if i < len(rec) {
			values[col] = cleanValue(rec[i])
		}
	}
	return tableRow{number: number, values: values}
}

func headeredRow(number int, rec []string, header []string) tableRow {
	values := make(map[string]string, len(header))
	for i, col := range header {
		if col == "" || i >= len(rec) {
			continue
		}
		values[col] = cleanValue(rec[i])
	}
	return tableRow{number: number, values: values}
}

// cleanValue trims whitespace and maps the OpenFlights null marker to the
// empty string.
func cleanValue(raw string) string {
	v := strings.TrimSpace(raw)
	if v == `\N` {
		return ""
	}
	return v
}
