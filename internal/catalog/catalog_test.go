package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/baristabot/internal/catalog"
	"github.com/edgard/baristabot/internal/database"
)

const sampleCatalog = `{
  "categories": [{"name": "Beans", "description": "Whole bean coffee"}],
  "products": [
    {"id": 1, "name": "Espresso Roast", "description": "Dark and syrupy", "price": 14.5, "category": "Beans", "is_popular": true, "in_stock": true},
    {"id": 2, "name": "Hand Grinder", "price": 39, "category": "Equipment", "in_stock": false},
    {"id": 3, "name": "Retired Blend", "price": 9, "is_active": false}
  ]
}`

func newStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func TestImportFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	stats, err := catalog.ImportFile(ctx, store, path, nil)
	require.NoError(t, err)
	assert.Equal(t, catalog.Stats{Categories: 2, Products: 3}, stats)

	p, err := store.GetProduct(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, p.CategoryName)
	assert.Equal(t, "Equipment", *p.CategoryName)
	assert.Equal(t, "/images/product_2.jpg", p.ImageURL)
	assert.True(t, p.IsActive)
	assert.False(t, p.InStock)

	retired, err := store.GetProduct(ctx, 3)
	require.NoError(t, err)
	assert.False(t, retired.IsActive)

	_, err = catalog.ImportFile(ctx, store, path, nil)
	require.NoError(t, err, "re-import is idempotent")
	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 2)

	_, err = catalog.ImportFile(ctx, store, filepath.Join(t.TempDir(), "nope.json"), nil)
	assert.Error(t, err)
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		doc  string
	}{
		{name: "malformed json", doc: `{"products": [`},
		{name: "unknown field", doc: `{"products": [{"id": 1, "name": "A", "colour": "red"}]}`},
		{name: "missing name", doc: `{"products": [{"id": 1, "price": 3}]}`},
		{name: "missing id", doc: `{"products": [{"name": "A", "price": 3}]}`},
		{name: "negative price", doc: `{"products": [{"id": 1, "name": "A", "price": -1}]}`},
		{name: "duplicate id", doc: `{"products": [{"id": 1, "name": "A"}, {"id": 1, "name": "B"}]}`},
		{name: "unnamed category", doc: `{"categories": [{"description": "x"}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := catalog.Parse(strings.NewReader(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)

	f, err := catalog.Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	_, err = catalog.Import(ctx, store, f, nil)
	require.NoError(t, err)

	lookup := catalog.Lookup{Store: store}

	d, err := lookup.LookupProduct(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Espresso Roast", d.Name)
	assert.Equal(t, "Beans", d.Category)
	assert.Equal(t, 14.5, d.Price)
	assert.True(t, d.InStock)

	_, err = lookup.LookupProduct(ctx, "abc")
	assert.ErrorIs(t, err, catalog.ErrBadProductID)

	_, err = lookup.LookupProduct(ctx, "404")
	assert.ErrorIs(t, err, database.ErrNotFound)
}
