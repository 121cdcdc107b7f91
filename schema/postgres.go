package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresCatalog reads schema metadata from a PostgreSQL database through
// information_schema. Postgres tables have no implicit row identifier, so
// PrimaryKey always reports HasRowID false.
type PostgresCatalog struct {
	db         *sql.DB
	schemaName string
}

// NewPostgresCatalog wraps an open PostgreSQL connection. An empty schema
// name defaults to "public".
func NewPostgresCatalog(db *sql.DB, schemaName string) *PostgresCatalog {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresCatalog{db: db, schemaName: schemaName}
}

func (c *PostgresCatalog) Tables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := c.db.QueryContext(ctx, query, c.schemaName)
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

func (c *PostgresCatalog) Columns(ctx context.Context, table string) ([]Column, error) {
	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position
	`
	rows, err := c.db.QueryContext(ctx, query, c.schemaName, table)
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
		return nil, fmt.Errorf("no such table: %s.%s", c.schemaName, table)
	}
	return columns, nil
}

func (c *PostgresCatalog) PrimaryKey(ctx context.Context, table string) (PrimaryKey, error) {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`
	rows, err := c.db.QueryContext(ctx, query, c.schemaName, table)
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

func (c *PostgresCatalog) ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			string_agg(kcu.column_name, ',' ORDER BY kcu.ordinal_position) AS columns,
			ccu.table_name AS referenced_table,
			string_agg(ccu.column_name, ',' ORDER BY kcu.ordinal_position) AS referenced_columns
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = $2
		GROUP BY tc.constraint_name, ccu.table_name
		ORDER BY tc.constraint_name
	`
	rows, err := c.db.QueryContext(ctx, query, c.schemaName, table)
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
