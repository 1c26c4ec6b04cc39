package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyvisionhq/skyvision/domain/catalog"
	"github.com/skyvisionhq/skyvision/domain/search"
)

func seedAirports(t *testing.T, store *SQLiteVectorStore) {
	t.Helper()
	ctx := context.Background()

	airports := []catalog.Airport{
		catalog.NewAirport(1, "Narita", "Tokyo", "Japan").
			WithImageURL("http://img/nrt.jpg").
			WithMetadata(catalog.NewMetadata("modern", []string{"hub", "international"}, "", "")),
		catalog.NewAirport(2, "Haneda", "Tokyo", "Japan").
			WithMetadata(catalog.NewMetadata("modern", []string{"domestic"}, "", "")),
		catalog.NewAirport(3, "Heathrow", "London", "United Kingdom").
			WithImageURL("http://img/lhr.jpg").
			WithMetadata(catalog.NewMetadata("classic", []string{"hub"}, "", "")),
	}
	vectors := []search.Vector{
		search.NewVector([]float64{1, 0, 0, 0}),
		search.NewVector([]float64{0.9, 0.1, 0, 0}),
		search.NewVector([]float64{0, 1, 0, 0}),
	}

	_, err := store.SaveEmbeddedAirports(ctx, airports, vectors)
	require.NoError(t, err)
}

func TestSQLiteVectorStoreSearch(t *testing.T) {
	ctx := context.Background()
	_, store := newTestStores(t)
	seedAirports(t, store)

	query := search.NewVector([]float64{1, 0, 0, 0})

	t.Run("orders by distance", func(t *testing.T) {
		hits, err := store.Search(ctx, catalog.KindAirport, query, search.Filters{}, 10)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		// Narita has an image, Haneda is closer than Heathrow but has none.
		assert.Equal(t, int64(1), hits[0].ID())
		assert.InDelta(t, 0, hits[0].Distance(), 0.0001)
	})

	t.Run("entities with images rank first", func(t *testing.T) {
		hits, err := store.Search(ctx, catalog.KindAirport, query, search.Filters{}, 10)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.True(t, hits[0].HasURL())
		assert.True(t, hits[1].HasURL())
		assert.False(t, hits[2].HasURL())
		// Heathrow outranks Haneda on the image tier despite larger distance.
		assert.Equal(t, int64(3), hits[1].ID())
		assert.Equal(t, int64(2), hits[2].ID())
	})

	t.Run("k truncates", func(t *testing.T) {
		hits, err := store.Search(ctx, catalog.KindAirport, query, search.Filters{}, 1)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := store.Search(ctx, catalog.Kind("runways"), query, search.Filters{}, 10)
		assert.ErrorIs(t, err, catalog.ErrUnknownKind)
	})
}

func TestSQLiteVectorStoreFilters(t *testing.T) {
	ctx := context.Background()
	_, store := newTestStores(t)
	seedAirports(t, store)

	query := search.NewVector([]float64{1, 0, 0, 0})

	t.Run("country", func(t *testing.T) {
		hits, err := store.Search(ctx, catalog.KindAirport, query, search.NewFilters(search.WithCountry("japan")), 10)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("country set matches substrings", func(t *testing.T) {
		hits, err := store.Search(ctx, catalog.KindAirport, query, search.NewFilters(search.WithCountries([]string{"kingdom"})), 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, int64(3), hits[0].ID())
	})

	t.Run("style", func(t *testing.T) {
		hits, err := store.Search(ctx, catalog.KindAirport, query, search.NewFilters(search.WithStyle("classic")), 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, int64(3), hits[0].ID())
	})

	t.Run("keywords match tags", func(t *testing.T) {
		hits, err := store.Search(ctx, catalog.KindAirport, query, search.NewFilters(search.WithKeywords([]string{"domestic"})), 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, int64(2), hits[0].ID())
	})

	t.Run("has image", func(t *testing.T) {
		hits, err := store.Search(ctx, catalog.KindAirport, query, search.NewFilters(search.WithHasImage(true)), 10)
		require.NoError(t, err)
		assert.Len(t, hits, 2)

		hits, err = store.Search(ctx, catalog.KindAirport, query, search.NewFilters(search.WithHasImage(false)), 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, int64(2), hits[0].ID())
	})
}

func TestSQLiteVectorStoreSearchHybrid(t *testing.T) {
	ctx := context.Background()
	_, store := newTestStores(t)
	seedAirports(t, store)

	textQuery := search.NewVector([]float64{1, 0, 0, 0})
	imageQuery := search.NewVector([]float64{0, 1, 0, 0})

	t.Run("full text weight matches text search", func(t *testing.T) {
		hits, err := store.SearchHybrid(ctx, catalog.KindAirport, textQuery, imageQuery, 1, search.Filters{}, 10)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, int64(1), hits[0].ID())
	})

	t.Run("zero text weight matches image search", func(t *testing.T) {
		hits, err := store.SearchHybrid(ctx, catalog.KindAirport, textQuery, imageQuery, 0, search.Filters{}, 10)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, int64(3), hits[0].ID())
	})

	t.Run("blended weight averages both distances", func(t *testing.T) {
		hits, err := store.SearchHybrid(ctx, catalog.KindAirport, textQuery, imageQuery, 0.5, search.Filters{}, 10)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		for _, h := range hits {
			assert.GreaterOrEqual(t, h.Distance(), 0.0)
			assert.LessOrEqual(t, h.Distance(), 2.0)
		}
	})

	t.Run("out-of-range weight is clamped", func(t *testing.T) {
		hits, err := store.SearchHybrid(ctx, catalog.KindAirport, textQuery, imageQuery, 3.5, search.Filters{}, 10)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, int64(1), hits[0].ID())
	})
}

func TestSQLiteVectorStoreSaveEmbedded(t *testing.T) {
	ctx := context.Background()
	_, store := newTestStores(t)

	t.Run("vector count mismatch", func(t *testing.T) {
		_, err := store.SaveEmbeddedAirports(ctx,
			[]catalog.Airport{catalog.NewAirport(1, "Narita", "Tokyo", "Japan")},
			nil,
		)
		assert.ErrorIs(t, err, search.ErrVectorCountMismatch)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		report, err := store.SaveEmbeddedAirports(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Total())
	})

	t.Run("re-save replaces the vector", func(t *testing.T) {
		airport := []catalog.Airport{catalog.NewAirport(7, "Changi", "Singapore", "Singapore")}

		report, err := store.SaveEmbeddedAirports(ctx, airport, []search.Vector{search.NewVector([]float64{0, 0, 1, 0})})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Inserted())

		report, err = store.SaveEmbeddedAirports(ctx, airport, []search.Vector{search.NewVector([]float64{0, 0, 0, 1})})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Updated())

		hits, err := store.Search(ctx, catalog.KindAirport, search.NewVector([]float64{0, 0, 0, 1}), search.Filters{}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.InDelta(t, 0, hits[0].Distance(), 0.0001)
	})
}

func TestSQLiteVectorStoreAirlines(t *testing.T) {
	ctx := context.Background()
	_, store := newTestStores(t)

	airline := catalog.NewAirline(24, "American Airlines", "United States").
		WithCodes("AA", "AAL").
		WithLogoURL("http://img/aa.png")
	_, err := store.SaveEmbeddedAirlines(ctx, []catalog.Airline{airline}, []search.Vector{search.NewVector([]float64{1, 0, 0, 0})})
	require.NoError(t, err)

	hits, err := store.Search(ctx, catalog.KindAirline, search.NewVector([]float64{1, 0, 0, 0}), search.Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "American Airlines (AA/AAL)", hits[0].Name())
	assert.Equal(t, "http://img/aa.png", hits[0].URL())
}

func TestSQLiteVectorStoreDimension(t *testing.T) {
	ctx := context.Background()
	_, store := newTestStores(t)

	dim, err := store.Dimension(ctx, catalog.KindAirport)
	require.NoError(t, err)
	assert.Equal(t, 0, dim)

	seedAirports(t, store)

	dim, err = store.Dimension(ctx, catalog.KindAirport)
	require.NoError(t, err)
	assert.Equal(t, 4, dim)

	// Airlines still have no vectors.
	dim, err = store.Dimension(ctx, catalog.KindAirline)
	require.NoError(t, err)
	assert.Equal(t, 0, dim)
}

func TestSQLiteVectorStoreEnsureSchemaDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	_, store := newTestStores(t)
	seedAirports(t, store)

	err := store.EnsureSchema(ctx, 8)
	assert.ErrorIs(t, err, search.ErrDimensionMismatch)

	assert.NoError(t, store.EnsureSchema(ctx, 4))
}

func TestNewVectorStore(t *testing.T) {
	db := newTestDB(t)
	store, err := NewVectorStore(db, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteVectorStore{}, store)
}
