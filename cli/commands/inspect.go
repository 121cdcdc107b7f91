package commands

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/querykit/cli/internal/config"
	"github.com/satishbabariya/querykit/schema"
)

var (
	inspectDriver string
	inspectDSN    string
	inspectSchema string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [table...]",
	Short: "Dump tables, columns, primary keys and foreign keys",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDriver, "driver", "", "database driver (sqlite3, postgres, mysql)")
	inspectCmd.Flags().StringVar(&inspectDSN, "dsn", "", "database connection string")
	inspectCmd.Flags().StringVar(&inspectSchema, "schema", "", "schema name (postgres/mysql)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if inspectDriver != "" {
		cfg.Driver = inspectDriver
	}
	if inspectDSN != "" {
		cfg.DSN = inspectDSN
	}
	if inspectSchema != "" {
		cfg.Schema = inspectSchema
	}
	if cfg.DSN == "" {
		return fmt.Errorf("no DSN: pass --dsn or set QUERYKIT_DSN")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	defer db.Close()

	cat, err := catalogFor(cfg, db)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	tables := args
	if len(tables) == 0 {
		tables, err = cat.Tables(ctx)
		if err != nil {
			return err
		}
	}

	for _, table := range tables {
		if err := printTable(ctx, cat, table); err != nil {
			return err
		}
	}
	return nil
}

func catalogFor(cfg *config.Config, db *sql.DB) (schema.Catalog, error) {
	switch cfg.Driver {
	case "sqlite3", "sqlite":
		return schema.NewSQLiteCatalog(db), nil
	case "postgres", "postgresql":
		return schema.NewPostgresCatalog(db, cfg.Schema), nil
	case "mysql":
		return schema.NewMySQLCatalog(db, cfg.Schema), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

func printTable(ctx context.Context, cat schema.Catalog, table string) error {
	columns, err := cat.Columns(ctx, table)
	if err != nil {
		return err
	}
	pk, err := cat.PrimaryKey(ctx, table)
	if err != nil {
		return err
	}
	fks, err := cat.ForeignKeys(ctx, table)
	if err != nil {
		return err
	}

	color.New(color.Bold).Println(table)
	pkSet := make(map[string]bool, len(pk.Columns))
	for _, name := range pk.Columns {
		pkSet[name] = true
	}
	for _, col := range columns {
		marker := "  "
		if pkSet[col.Name] {
			marker = color.YellowString("pk")
		}
		nullable := ""
		if col.Nullable {
			nullable = " null"
		}
		fmt.Printf("  %s %-24s %s%s\n", marker, col.Name, col.Type, nullable)
	}
	if pk.HasRowID {
		fmt.Printf("  %s\n", color.HiBlackString("implicit rowid"))
	}
	for _, fk := range fks {
		fmt.Printf("  %s (%s) -> %s (%s)\n",
			color.CyanString("fk"),
			strings.Join(fk.Columns, ", "),
			fk.ReferencedTable,
			strings.Join(fk.ReferencedColumns, ", "))
	}
	fmt.Println()
	return nil
}
