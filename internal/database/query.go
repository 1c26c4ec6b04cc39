package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

// queryClauses is the SQL-ready form of a catalog.Query: rendered WHERE
// fragments with their arguments, ORDER BY terms, and pagination bounds.
// catalog keeps the vocabulary deliberately small (equality, IN, raw
// fragments); everything dialect-specific stays on this side.
type queryClauses struct {
	wheres []whereClause
	orders []string
	limit  int
	offset int
}

type whereClause struct {
	expr string
	args []any
}

// render translates a domain query into SQL clauses. Conditions become
// placeholder comparisons; raw wheres pass through untouched.
func render(q catalog.Query) queryClauses {
	var c queryClauses
	for _, cond := range q.Conditions() {
		c.wheres = append(c.wheres, renderCondition(cond))
	}
	for _, w := range q.Wheres() {
		c.wheres = append(c.wheres, whereClause{expr: w.Clause(), args: w.Args()})
	}
	for _, ord := range q.Orders() {
		c.orders = append(c.orders, renderOrder(ord))
	}
	c.limit = q.LimitValue()
	c.offset = q.OffsetValue()
	return c
}

func renderCondition(cond catalog.Condition) whereClause {
	if cond.In() {
		return whereClause{
			expr: fmt.Sprintf("%s IN ?", cond.Field()),
			args: []any{cond.Value()},
		}
	}
	return whereClause{
		expr: fmt.Sprintf("%s = ?", cond.Field()),
		args: []any{cond.Value()},
	}
}

func renderOrder(ord catalog.Order) string {
	if ord.Ascending() {
		return ord.Field() + " ASC"
	}
	return ord.Field() + " DESC"
}

// conditions applies only the WHERE clauses. COUNT queries use this so
// pagination does not skew the total.
func (c queryClauses) conditions(db *gorm.DB) *gorm.DB {
	for _, w := range c.wheres {
		db = db.Where(w.expr, w.args...)
	}
	return db
}

// apply applies WHERE, ORDER BY, LIMIT, and OFFSET.
func (c queryClauses) apply(db *gorm.DB) *gorm.DB {
	db = c.conditions(db)
	for _, o := range c.orders {
		db = db.Order(o)
	}
	if c.limit > 0 {
		db = db.Limit(c.limit)
	}
	if c.offset > 0 {
		db = db.Offset(c.offset)
	}
	return db
}
