package database

import (
	"gorm.io/gorm"

	"github.com/skyvisionhq/skyvision/domain/catalog"
)

// ApplyOptions builds a catalog.Query from the given options and applies
// its conditions, ordering, and pagination to a GORM session.
func ApplyOptions(db *gorm.DB, options ...catalog.Option) *gorm.DB {
	return render(catalog.Build(options...)).apply(db)
}

// ApplyConditions applies only the WHERE conditions, skipping order,
// limit, and offset. Count paths use this so a paginated listing still
// reports the full match total.
func ApplyConditions(db *gorm.DB, options ...catalog.Option) *gorm.DB {
	return render(catalog.Build(options...)).conditions(db)
}
