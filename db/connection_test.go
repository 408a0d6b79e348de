package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/smrt/errors"
)

func TestOpenSQLite(t *testing.T) {
	t.Run("opens database successfully", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := OpenSQLite(dbPath, nil)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		var journalMode string
		require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
		assert.Equal(t, "wal", journalMode)

		var busyTimeout int
		require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
		assert.Equal(t, SQLiteBusyTimeoutMS, busyTimeout)
	})

	t.Run("creates database file if it doesn't exist", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "new.db")
		_, err := os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))

		db, err := OpenSQLite(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		db, err := OpenSQLite("/invalid/nonexistent/path/db.sqlite", nil)
		if err == nil && db != nil {
			err = db.Ping()
			db.Close()
		}
		assert.Error(t, err)
	})
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "user@/db", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestOpen_WithLogger(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(DriverSQLite, dbPath, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer db.Close()
}

func TestIsDatabaseClosed(t *testing.T) {
	assert.False(t, IsDatabaseClosed(nil))
	assert.True(t, IsDatabaseClosed(errors.Wrap(ErrDatabaseClosed, "query")))
	assert.True(t, IsDatabaseClosed(errors.New("sql: database is closed")))
	assert.False(t, IsDatabaseClosed(errors.New("syntax error")))
}

func TestIsMissingTable(t *testing.T) {
	assert.True(t, IsMissingTable(errors.New("no such table: orders")))
	assert.True(t, IsMissingTable(errors.New(`pq: relation "orders" does not exist`)))
	assert.False(t, IsMissingTable(errors.New("connection refused")))
	assert.False(t, IsMissingTable(nil))
}
