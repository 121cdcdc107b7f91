package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// MySQLCatalog reads schema metadata from a MySQL database through
// information_schema. MySQL tables have no implicit row identifier, so
// PrimaryKey always reports HasRowID false.
type MySQLCatalog struct {
	db         *sql.DB
	schemaName string
}

// NewMySQLCatalog wraps an open MySQL connection. An empty schema name
// defaults to the connection's current database.
func NewMySQLCatalog(db *sql.DB, schemaName string) *MySQLCatalog {
	return &MySQLCatalog{db: db, schemaName: schemaName}
}

func (c *MySQLCatalog) schema(ctx context.Context) (string, error) {
	if c.schemaName != "" {
		return c.schemaName, nil
	}
	var name string
	if err := c.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&name); err != nil {
		return "", fmt.Errorf("failed to resolve current database: %w", err)
	}
	return name, nil
}

func (c *MySQLCatalog) Tables(ctx context.Context) ([]string, error) {
	schemaName, err := c.schema(ctx)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := c.db.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (c *MySQLCatalog) Columns(ctx context.Context, table string) ([]Column, error) {
	schemaName, err := c.schema(ctx)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name = ?
		ORDER BY ordinal_position
	`
	rows, err := c.db.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	return columns, nil
}

func (c *MySQLCatalog) PrimaryKey(ctx context.Context, table string) (PrimaryKey, error) {
	schemaName, err := c.schema(ctx)
	if err != nil {
		return PrimaryKey{}, err
	}
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		  AND table_name = ?
		  AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`
	rows, err := c.db.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return PrimaryKey{}, fmt.Errorf("failed to query primary key of %s: %w", table, err)
	}
	defer rows.Close()

	var pk PrimaryKey
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return PrimaryKey{}, fmt.Errorf("failed to scan primary key column: %w", err)
		}
		pk.Columns = append(pk.Columns, name)
	}
	return pk, rows.Err()
}

func (c *MySQLCatalog) ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	schemaName, err := c.schema(ctx)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT
			constraint_name,
			GROUP_CONCAT(column_name ORDER BY ordinal_position) AS columns,
			referenced_table_name,
			GROUP_CONCAT(referenced_column_name ORDER BY ordinal_position) AS referenced_columns
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		  AND table_name = ?
		  AND referenced_table_name IS NOT NULL
		GROUP BY constraint_name, referenced_table_name
		ORDER BY constraint_name
	`
	rows, err := c.db.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys of %s: %w", table, err)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		var columns, refColumns string
		if err := rows.Scan(&fk.Name, &columns, &fk.ReferencedTable, &refColumns); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fk.Columns = strings.Split(columns, ",")
		fk.ReferencedColumns = strings.Split(refColumns, ",")
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}
