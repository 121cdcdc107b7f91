package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteCatalog reads schema metadata from a SQLite database through its
// PRAGMA interface.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog wraps an open SQLite connection.
func NewSQLiteCatalog(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

func (c *SQLiteCatalog) Tables(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`
	rows, err := c.db.QueryContext(ctx, query)
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

func (c *SQLiteCatalog) Columns(ctx context.Context, table string) ([]Column, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT name, type, \"notnull\" FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		var notNull int
		if err := rows.Scan(&col.Name, &col.Type, &notNull); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = notNull == 0
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

func (c *SQLiteCatalog) PrimaryKey(ctx context.Context, table string) (PrimaryKey, error) {
	// pk gives the 1-based position of the column within the primary key.
	rows, err := c.db.QueryContext(ctx,
		"SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk", table)
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
	if err := rows.Err(); err != nil {
		return PrimaryKey{}, err
	}

	hasRowID, err := c.hasRowID(ctx, table)
	if err != nil {
		return PrimaryKey{}, err
	}
	pk.HasRowID = hasRowID
	if len(pk.Columns) == 0 && hasRowID {
		pk.Columns = []string{"rowid"}
	}
	return pk, nil
}

func (c *SQLiteCatalog) hasRowID(ctx context.Context, table string) (bool, error) {
	// pragma_table_list is available since SQLite 3.37; older versions
	// only create rowid tables through the SQL covered here, so default
	// to true when the pragma is missing.
	var withoutRowID int
	err := c.db.QueryRowContext(ctx,
		"SELECT wr FROM pragma_table_list WHERE name = ?", table).Scan(&withoutRowID)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return true, nil
	}
	return withoutRowID == 0, nil
}

func (c *SQLiteCatalog) ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, \"table\", \"from\", \"to\" FROM pragma_foreign_key_list(?) ORDER BY id, seq", table)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys of %s: %w", table, err)
	}
	defer rows.Close()

	var fks []ForeignKey
	byID := make(map[int]int)
	for rows.Next() {
		var id int
		var dest string
		var from string
		var to sql.NullString
		if err := rows.Scan(&id, &dest, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		idx, ok := byID[id]
		if !ok {
			idx = len(fks)
			byID[id] = idx
			fks = append(fks, ForeignKey{
				Name:            fmt.Sprintf("fk_%s_%d", table, id),
				ReferencedTable: dest,
			})
		}
		fks[idx].Columns = append(fks[idx].Columns, from)
		if to.Valid {
			fks[idx].ReferencedColumns = append(fks[idx].ReferencedColumns, to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// A foreign key declared without target columns points at the
	// referenced table's primary key.
	for i := range fks {
		if len(fks[i].ReferencedColumns) > 0 {
			continue
		}
		pk, err := c.PrimaryKey(ctx, fks[i].ReferencedTable)
		if err != nil {
			return nil, err
		}
		fks[i].ReferencedColumns = pk.Columns
	}
	return fks, nil
}
