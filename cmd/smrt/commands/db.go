package commands

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/smrt/am"
	"github.com/teranos/smrt/db"
	"github.com/teranos/smrt/ingest"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/logger"
)

// DefaultDBPath is used by db import when neither --db nor a sqlite3 DSN is configured
const DefaultDBPath = "smrt.db"

// DbCmd groups database commands
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the SQLite copy of the dataset",
	Long: `Import CSV tables into a SQLite database that data.source = "sql" can read.

Examples:
  smrt db import ./data                 # Import into smrt.db or the configured DSN
  smrt db import ./data --db tmp/x.db`,
}

var dbImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import the CSV tables in a directory, replacing existing rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBImport,
}

var dbPath string

func init() {
	dbImportCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: data.sql_dsn or "+DefaultDBPath+")")
	DbCmd.AddCommand(dbImportCmd)
}

func runDBImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Logger.Named("db")

	path := dbPath
	if path == "" {
		path = DefaultDBPath
		if cfg, err := am.Load(); err == nil && cfg.Data.SQLDriver == "sqlite3" && cfg.Data.SQLDSN != "" {
			path = cfg.Data.SQLDSN
		}
	}

	raw, err := ingest.NewDirSource(args[0], log).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	conn, err := db.OpenWithMigrations(path, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	written, err := db.Import(ctx, conn, raw, log)
	if err != nil {
		return err
	}

	pterm.Success.Printf("Imported into %s\n", path)
	data := pterm.TableData{{"Table", "Rows"}}
	for _, table := range inventory.TableNames {
		n, ok := written[table]
		if !ok {
			continue
		}
		data = append(data, []string{db.SQLTables[table], fmt.Sprint(n)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
