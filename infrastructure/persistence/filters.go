package persistence

import (
	"fmt"
	"strings"

	"github.com/skyvisionhq/skyvision/domain/search"
)

// jsonExprs holds the dialect-specific SQL for reading metadata attributes.
// Style yields a bare string, tags a JSON array rendering that LIKE can match
// against.
type jsonExprs struct {
	style string
	tags  string
}

var (
	mariadbJSON = jsonExprs{
		style: "JSON_VALUE(metadata, '$.style')",
		tags:  "JSON_EXTRACT(metadata, '$.tags')",
	}
	postgresJSON = jsonExprs{
		style: "metadata->>'style'",
		tags:  "metadata->>'tags'",
	}
	sqliteJSON = jsonExprs{
		style: "json_extract(metadata, '$.style')",
		tags:  "json_extract(metadata, '$.tags')",
	}
)

// filterClauses translates domain filters into SQL conditions for one kind's
// table. Every clause matches case-insensitively; country sets and keywords
// match substrings so "uk" finds "United Kingdom" and "modern" finds a
// "modernist" tag. A city filter is dropped for tables without a city column
// rather than failing the query.
func filterClauses(f search.Filters, exprs jsonExprs, t kindTable) ([]string, []any) {
	var clauses []string
	var args []any

	if c := f.Country(); c != "" {
		clauses = append(clauses, "LOWER(country) = LOWER(?)")
		args = append(args, c)
	}
	if countries := f.Countries(); len(countries) > 0 {
		parts := make([]string, 0, len(countries))
		for _, c := range countries {
			parts = append(parts, "LOWER(country) LIKE LOWER(?)")
			args = append(args, "%"+c+"%")
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}
	if c := f.City(); c != "" && t.hasCity {
		clauses = append(clauses, "LOWER(city) = LOWER(?)")
		args = append(args, c)
	}
	if s := f.Style(); s != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(%s) = LOWER(?)", exprs.style))
		args = append(args, s)
	}
	if keywords := f.Keywords(); len(keywords) > 0 {
		parts := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			parts = append(parts, fmt.Sprintf(
				"(LOWER(%s) LIKE LOWER(?) OR LOWER(%s) LIKE LOWER(?))",
				exprs.style, exprs.tags,
			))
			pattern := "%" + kw + "%"
			args = append(args, pattern, pattern)
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}
	if has, ok := f.HasImage(); ok {
		if has {
			clauses = append(clauses, fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", t.urlColumn, t.urlColumn))
		} else {
			clauses = append(clauses, fmt.Sprintf("(%s IS NULL OR %s = '')", t.urlColumn, t.urlColumn))
		}
	}

	return clauses, args
}

// buildVectorQuery assembles the SELECT for a cosine search. distanceExpr
// computes the distance column; its placeholder args must precede the
// returned filter args when executing. Rows with an image or logo sort
// before rows without one, then by ascending distance.
func buildVectorQuery(t kindTable, distanceExpr string, exprs jsonExprs, filters search.Filters, limit int) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, %s AS distance FROM %s", t.selectColumns(), distanceExpr, t.name)
	b.WriteString(" WHERE embedding IS NOT NULL")
	clauses, args := filterClauses(filters, exprs, t)
	for _, c := range clauses {
		b.WriteString(" AND ")
		b.WriteString(c)
	}
	fmt.Fprintf(&b, " ORDER BY (%s IS NULL OR %s = '') ASC, distance ASC LIMIT %d", t.urlColumn, t.urlColumn, limit)
	return b.String(), args
}
