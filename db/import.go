package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
)

// SQLTables maps canonical table names to their SQL table names.
// "order" is a reserved word, so every table uses its plural alias.
var SQLTables = map[string]string{
	inventory.TableCustomer: "customers",
	inventory.TableOrder:    "orders",
	inventory.TableDetail:   "details",
	inventory.TableProduct:  "products",
}

// Columns lists the source columns stored per canonical table
var Columns = map[string][]string{
	inventory.TableCustomer: {"CID", "FNAME1", "LNAME", "EMAIL", "ADDRESS", "CITY", "STATE", "ZIP"},
	inventory.TableOrder:    {"IID", "CID", "INDATE", "PIF", "SUBTOTAL", "TICKETNO", "CATEGORY"},
	inventory.TableDetail: {"Item_ID", "IID", "price_table_item_id", "item_name", "item_count",
		"item_baseprice", "dept_name", "item_pickup_date", "standardSubtotal"},
	inventory.TableProduct: {"item_id", "name", "baseprice"},
}

// Import replaces the SQLite dataset tables with raw. Each table is replaced in
// its own transaction; tables absent from raw are left untouched. It returns
// the rows written per canonical table.
func Import(ctx context.Context, db *sql.DB, raw inventory.RawTables, logger *zap.SugaredLogger) (map[string]int, error) {
	raw = raw.Normalize()
	written := make(map[string]int, len(raw))

	for _, table := range inventory.TableNames {
		rows, ok := raw[table]
		if !ok {
			continue
		}
		n, err := importTable(ctx, db, table, rows)
		if err != nil {
			return written, errors.Wrapf(err, "import %s", table)
		}
		written[table] = n
		if logger != nil {
			logger.Infow("Imported table", "table", SQLTables[table], "count", n)
		}
	}
	return written, nil
}

func importTable(ctx context.Context, db *sql.DB, table string, rows []inventory.Row) (int, error) {
	name := SQLTables[table]
	cols := Columns[table]
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", name, strings.Join(cols, ", "), placeholders)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
		return 0, errors.Wrapf(err, "clear %s", name)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			args[i] = inventory.Text(row[col])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, errors.Wrapf(err, "insert into %s", name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	return len(rows), nil
}
