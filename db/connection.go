// Package db opens the SQL databases smrt can load its tables from and
// manages the SQLite dataset schema.
package db

import (
	"database/sql"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/smrt/errors"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLiteBusyTimeoutMS is how long SQLite waits on a locked database
const SQLiteBusyTimeoutMS = 5000

// Open opens a database with the given driver and DSN and verifies the connection.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(driver, dsn string, logger *zap.SugaredLogger) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(dsn, logger)
	case DriverPostgres:
	default:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "unsupported sql driver %q (valid: sqlite3, postgres)", driver)
	}

	if logger != nil {
		logger.Debugw("Opening database", "driver", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s", driver)
	}
	if logger != nil {
		logger.Infow("Database opened successfully", "driver", driver)
	}
	return db, nil
}

// OpenSQLite opens a SQLite database at path with WAL mode and a busy timeout
func OpenSQLite(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening database", "driver", DriverSQLite, "path", path)
	}
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Enable WAL mode so a refresh can read while an import writes
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	if logger != nil {
		logger.Infow("Database opened successfully",
			"driver", DriverSQLite,
			"path", path,
			"wal_mode", true,
		)
	}

	return db, nil
}

// OpenWithMigrations opens a SQLite database and applies the dataset schema
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := OpenSQLite(path, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return db, nil
}
