package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/smrt/inventory"
)

func TestOpenWithMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenWithMigrations(dbPath, nil)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"schema_migrations", "customers", "orders", "details", "products"} {
		var exists int
		err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&exists)
		require.NoError(t, err)
		assert.Equal(t, 1, exists, "table %s should exist after migrations", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenWithMigrations(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db, nil))

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)
	db.Close()
}

func TestImport(t *testing.T) {
	db, err := OpenWithMigrations(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	raw := inventory.RawTables{
		"customers": {
			{"CID": "C001", "FNAME1": "Alice", "LNAME": "Smith", "CITY": "Fresno"},
			{"CID": "C002", "FNAME1": "Bob", "LNAME": "Jones"},
		},
		"pricelist": {
			{"item_id": "P1", "name": "Wool Suit", "baseprice": 15.5},
		},
	}

	written, err := Import(context.Background(), db, raw, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"customer": 2, "product": 1}, written)

	var name, price string
	require.NoError(t, db.QueryRow("SELECT name, baseprice FROM products WHERE item_id = 'P1'").Scan(&name, &price))
	assert.Equal(t, "Wool Suit", name)
	assert.Equal(t, "15.5", price)

	t.Run("re-import replaces rows", func(t *testing.T) {
		_, err := Import(context.Background(), db, inventory.RawTables{
			"customer": {{"CID": "C003", "FNAME1": "Carol"}},
		}, nil)
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&count))
		assert.Equal(t, 1, count)
	})
}
