package db

import (
	"database/sql"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/smrt/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationDir = "sqlite/migrations"

// migration is one embedded schema step. Version is the numeric file prefix.
type migration struct {
	version string
	file    string
}

// Migrate applies the embedded dataset schema steps that are not yet recorded
// in schema_migrations. Step 000 creates that table. A nil logger is silent.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	steps, err := loadMigrations()
	if err != nil {
		return err
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	pending := 0
	for _, m := range steps {
		if applied[m.version] {
			logger.Debugw("Migration already applied", "migration", m.file)
			continue
		}
		logger.Infow("Applying migration", "migration", m.file)
		if err := apply(db, m); err != nil {
			return err
		}
		pending++
	}

	logger.Infow("Schema up to date", "applied", pending, "total_migrations", len(steps))
	return nil
}

func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrations, migrationDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var steps []migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, errors.Newf("migration %s has no version prefix", name)
		}
		steps = append(steps, migration{version: version, file: name})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

// appliedVersions returns the recorded versions, or none on a fresh database
func appliedVersions(db *sql.DB) (map[string]bool, error) {
	applied := make(map[string]bool)
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		if IsMissingTable(err) {
			return applied, nil
		}
		return nil, errors.Wrap(err, "read schema_migrations")
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan schema_migrations")
		}
		applied[v] = true
	}
	return applied, errors.Wrap(rows.Err(), "iterate schema_migrations")
}

// apply runs one step and records it in the same transaction
func apply(db *sql.DB, m migration) (err error) {
	body, err := migrations.ReadFile(path.Join(migrationDir, m.file))
	if err != nil {
		return errors.Wrapf(err, "read %s", m.file)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin %s", m.file)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(string(body)); err != nil {
		return errors.Wrapf(err, "execute %s", m.file)
	}
	if _, err = tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return errors.Wrapf(err, "record %s", m.file)
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit %s", m.file)
	}
	return nil
}
