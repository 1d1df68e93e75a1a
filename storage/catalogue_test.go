package storage

import (
	"context"
	"math"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/measure/errors"
	measuretest "github.com/teranos/measure/internal/testing"
	"github.com/teranos/measure/pipeline"
	"github.com/teranos/measure/types"
)

func seeded(t *testing.T) *Catalogue {
	t.Helper()
	conn := measuretest.CreateTestDB(t)
	measuretest.SeedCatalogue(t, conn, map[int64]*string{
		1: types.StringPtr("5 in"),
		2: nil,
		3: types.StringPtr("   "),
		4: types.StringPtr("3 x 4 cm"),
		5: types.StringPtr("1 in"),
		9: types.StringPtr("Overall: 2 in"),
	})
	_, err := conn.Exec(`CREATE TABLE reviewed (id INTEGER PRIMARY KEY); INSERT INTO reviewed (id) VALUES (5)`)
	require.NoError(t, err)

	cfg := DefaultCatalogueConfig()
	cfg.ExcludeTables = []string{"reviewed"}
	c, err := NewCatalogue(conn, cfg)
	require.NoError(t, err)
	return c
}

func ids(recs []types.Record) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestCataloguePage(t *testing.T) {
	ctx := context.Background()
	c := seeded(t)

	recs, err := c.Page(ctx, pipeline.AllIDs, math.MinInt64, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4, 9}, ids(recs), "NULL, blank and excluded rows are skipped")
	assert.Equal(t, "3 x 4 cm", recs[1].Text)

	recs, err = c.Page(ctx, pipeline.AllIDs, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids(recs))

	recs, err = c.Page(ctx, pipeline.Range{Min: 2, Max: 8}, math.MinInt64, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids(recs))
}

func TestCatalogueBounds(t *testing.T) {
	ctx := context.Background()
	c := seeded(t)

	bounds, err := c.Bounds(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Range{Min: 1, Max: 9}, bounds)

	empty, err := NewCatalogue(measuretest.CreateTestDB(t), DefaultCatalogueConfig())
	require.NoError(t, err)
	_, err = empty.Bounds(ctx)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestCatalogueStats(t *testing.T) {
	stats, err := seeded(t).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CatalogueStats{Table: "catalogue", Total: 6, WithText: 4, Excluded: 1, MinID: 1, MaxID: 9}, stats)
}

func TestCatalogueConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  CatalogueConfig
		ok   bool
	}{
		{"default", DefaultCatalogueConfig(), true},
		{"custom", CatalogueConfig{Table: "objects", IDColumn: "mkey", TextColumn: "dimensions"}, true},
		{"injection", CatalogueConfig{Table: "objects; DROP TABLE objects", IDColumn: "id", TextColumn: "t"}, false},
		{"empty column", CatalogueConfig{Table: "objects", IDColumn: "", TextColumn: "t"}, false},
		{"bad exclusion", CatalogueConfig{Table: "o", IDColumn: "id", TextColumn: "t", ExcludeTables: []string{"a-b"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsInvalidRequestError(err))
		})
	}
}

func TestCatalogueQueryShape_Sqlmock(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer conn.Close()

	c, err := NewCatalogue(conn, CatalogueConfig{
		Table:         "objects",
		IDColumn:      "mkey",
		TextColumn:    "dimensions",
		ExcludeTables: []string{"reviewed"},
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT mkey, dimensions FROM objects WHERE dimensions IS NOT NULL AND TRIM(dimensions) <> '' " +
		"AND mkey NOT IN (SELECT mkey FROM reviewed) AND mkey > ? AND mkey BETWEEN ? AND ? ORDER BY mkey LIMIT ?").
		WithArgs(int64(10), int64(1), int64(100), 200).
		WillReturnRows(sqlmock.NewRows([]string{"mkey", "dimensions"}).
			AddRow(11, "5 in").
			AddRow(12, "6 cm"))

	recs, err := c.Page(context.Background(), pipeline.Range{Min: 1, Max: 100}, 10, 200)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, ids(recs))
	assert.Equal(t, "sqlite:objects.dimensions", c.Name())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestCataloguePageError_Sqlmock(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	c, err := NewCatalogue(conn, DefaultCatalogueConfig())
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, measurements FROM catalogue").WillReturnError(errors.New("disk I/O error"))
	_, err = c.Page(context.Background(), pipeline.AllIDs, 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query catalogue after id 0")
	assert.Contains(t, err.Error(), "disk I/O error")
}
