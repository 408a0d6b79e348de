package ingest

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	smrtdb "github.com/teranos/smrt/db"
	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/logger"
)

// SQLSource reads the dataset tables (customers, orders, details, products)
// from a database/sql connection. A missing table is skipped.
type SQLSource struct {
	db     *sql.DB
	driver string
	logger *zap.SugaredLogger
}

// NewSQLSource wraps an open connection. The source owns conn and closes it on Close.
func NewSQLSource(conn *sql.DB, driver string, log *zap.SugaredLogger) *SQLSource {
	if log == nil {
		log = logger.ComponentLogger("ingest")
	}
	return &SQLSource{db: conn, driver: driver, logger: log}
}

// Name implements Source
func (s *SQLSource) Name() string { return "sql:" + s.driver }

// Close implements Source
func (s *SQLSource) Close() error { return s.db.Close() }

// Fetch implements Source
func (s *SQLSource) Fetch(ctx context.Context) (inventory.RawTables, error) {
	raw := make(inventory.RawTables, len(inventory.TableNames))
	for _, table := range inventory.TableNames {
		name := smrtdb.SQLTables[table]
		rows, err := s.readTable(ctx, name)
		if err != nil {
			if smrtdb.IsDatabaseClosed(err) || ctx.Err() != nil {
				return nil, errors.Wrapf(err, "read %s", name)
			}
			s.logger.Warnw("Skipping unreadable table",
				logger.FieldTable, name,
				"missing", smrtdb.IsMissingTable(err),
				logger.FieldError, err)
			continue
		}
		raw[table] = rows
	}
	return raw, nil
}

func (s *SQLSource) readTable(ctx context.Context, name string) ([]inventory.Row, error) {
	// name comes from the fixed SQLTables map, never from input
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "columns")
	}

	out := []inventory.Row{}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrapf(err, "scan row %d", len(out)+1)
		}
		row := make(inventory.Row, len(cols))
		for i, col := range cols {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return out, nil
}
