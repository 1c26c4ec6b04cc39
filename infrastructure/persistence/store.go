package persistence

import (
	"fmt"
	"log/slog"

	"github.com/skyvisionhq/skyvision/domain/search"
	"github.com/skyvisionhq/skyvision/internal/database"
)

// Store combines similarity search with the loader's vector-bearing writes.
// Every backend implements both so the pipeline and the query service share
// one value.
type Store interface {
	search.VectorStore
	search.EmbeddingWriter
}

// NewVectorStore returns the vector store for the connected database driver.
func NewVectorStore(db database.Database, logger *slog.Logger) (Store, error) {
	switch {
	case db.IsMariaDB():
		return NewMariaDBVectorStore(db, logger), nil
	case db.IsPostgres():
		return NewPgVectorStore(db, logger), nil
	case db.IsSQLite():
		return NewSQLiteVectorStore(db, logger), nil
	default:
		return nil, fmt.Errorf("create vector store: %w", database.ErrUnsupportedDriver)
	}
}
