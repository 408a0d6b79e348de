package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/smrt/db"
	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
)

func TestSQLSource_Fetch(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery("SELECT \\* FROM customers").
		WillReturnRows(sqlmock.NewRows([]string{"CID", "FNAME1", "LNAME"}).
			AddRow("C001", []byte("Alice"), "Smith"))
	mock.ExpectQuery("SELECT \\* FROM orders").
		WillReturnError(errors.New(`pq: relation "orders" does not exist`))
	mock.ExpectQuery("SELECT \\* FROM details").
		WillReturnRows(sqlmock.NewRows([]string{"Item_ID", "IID"}))
	mock.ExpectQuery("SELECT \\* FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "name", "baseprice"}).
			AddRow("P1", "Wool Suit", 15.5))
	mock.ExpectClose()

	src := NewSQLSource(conn, "postgres", zap.NewNop().Sugar())
	raw, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, raw[inventory.TableCustomer], 1)
	assert.Equal(t, "Alice", raw[inventory.TableCustomer][0]["FNAME1"], "[]byte values become strings")
	assert.NotContains(t, raw, inventory.TableOrder, "missing table is skipped")
	assert.Contains(t, raw, inventory.TableDetail, "empty table is still present")
	assert.Equal(t, 15.5, raw[inventory.TableProduct][0]["baseprice"])

	require.NoError(t, src.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_SQLiteRoundTrip(t *testing.T) {
	conn, err := db.OpenWithMigrations(filepath.Join(t.TempDir(), "smrt.db"), nil)
	require.NoError(t, err)

	_, err = db.Import(context.Background(), conn, inventory.RawTables{
		"customer": {{"CID": "C001", "FNAME1": "Alice", "LNAME": "Smith"}},
		"order":    {{"IID": "O1", "CID": "C001", "PIF": "Y", "SUBTOTAL": "20"}},
	}, nil)
	require.NoError(t, err)

	src := NewSQLSource(conn, db.DriverSQLite, zap.NewNop().Sugar())
	defer src.Close()

	raw, err := src.Fetch(context.Background())
	require.NoError(t, err)

	d, _ := inventory.Parse(raw)
	require.Len(t, d.Customers, 1)
	assert.Equal(t, "Alice Smith", d.Customers[0].Name)
	require.Len(t, d.Orders, 1)
	assert.Equal(t, inventory.StatusDelivered, d.Orders[0].Status)
	assert.True(t, d.Has(inventory.TableProduct), "migrated but empty table is present")
}
