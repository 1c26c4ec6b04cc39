package catalog

import "slices"

// Option narrows or shapes a store lookup. Stores accept options rather
// than exposing per-filter methods, so callers can compose country, city,
// ordering, and pagination freely.
type Option func(Query) Query

// Query is the assembled form of a set of options. It stays SQL-agnostic:
// equality and IN conditions carry column/value pairs, raw where clauses
// carry fragments the persistence layer renders, and ordering and
// pagination are plain values.
type Query struct {
	conditions []Condition
	wheres     []Where
	orders     []Order
	limit      int
	offset     int
}

// Build folds options into a Query.
func Build(options ...Option) Query {
	q := Query{}
	for _, opt := range options {
		q = opt(q)
	}
	return q
}

// Conditions returns the equality and IN conditions.
func (q Query) Conditions() []Condition { return slices.Clone(q.conditions) }

// Wheres returns the raw SQL conditions.
func (q Query) Wheres() []Where { return slices.Clone(q.wheres) }

// Orders returns the ordering terms in the order they were added.
func (q Query) Orders() []Order { return slices.Clone(q.orders) }

// LimitValue returns the limit (0 means no limit).
func (q Query) LimitValue() int { return q.limit }

// OffsetValue returns the offset.
func (q Query) OffsetValue() int { return q.offset }

// Condition matches a column against a value, either by equality or,
// when in is set, by membership (the value is then a slice).
type Condition struct {
	field string
	value any
	in    bool
}

// Field returns the column name.
func (c Condition) Field() string { return c.field }

// Value returns the comparison value.
func (c Condition) Value() any { return c.value }

// In reports whether this is a membership condition.
func (c Condition) In() bool { return c.in }

// WithCondition adds a field = value condition. The typed builders in
// options.go (WithCountry, WithIATA, ...) are thin wrappers over this.
func WithCondition(field string, value any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, value: value})
		return q
	}
}

// WithConditionIn adds a field IN (values) condition.
func WithConditionIn(field string, values any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, value: values, in: true})
		return q
	}
}

// Where is an opaque SQL fragment with placeholder arguments, for
// filters the Condition vocabulary cannot express (JSON metadata paths,
// range comparisons).
type Where struct {
	clause string
	args   []any
}

// Clause returns the SQL fragment.
func (w Where) Clause() string { return w.clause }

// Args returns the placeholder arguments.
func (w Where) Args() []any { return slices.Clone(w.args) }

// WithWhere adds a raw SQL condition. The caller owns dialect
// compatibility of the fragment.
func WithWhere(clause string, args ...any) Option {
	return func(q Query) Query {
		q.wheres = append(q.wheres, Where{clause: clause, args: args})
		return q
	}
}

// Order is a single ORDER BY term.
type Order struct {
	field     string
	ascending bool
}

// Field returns the column name.
func (o Order) Field() string { return o.field }

// Ascending reports ASC (true) or DESC (false).
func (o Order) Ascending() bool { return o.ascending }

// WithOrderAsc appends ascending ordering on a column.
func WithOrderAsc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: true})
		return q
	}
}

// WithOrderDesc appends descending ordering on a column.
func WithOrderDesc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: false})
		return q
	}
}

// WithLimit caps the number of rows returned. Zero means no cap.
func WithLimit(n int) Option {
	return func(q Query) Query {
		q.limit = n
		return q
	}
}

// WithOffset skips the first n rows.
func WithOffset(n int) Option {
	return func(q Query) Query {
		q.offset = n
		return q
	}
}

// WithPagination combines limit and offset for a result page.
func WithPagination(limit, offset int) []Option {
	return []Option{WithLimit(limit), WithOffset(offset)}
}
