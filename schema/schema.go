// Package schema reads live database catalogs: tables, columns, primary
// keys and declared foreign keys. It is the schema collaborator the query
// layers resolve against; every lookup runs against the live connection so
// schema changes between two compiles are honored.
package schema

import "context"

// Column describes one table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// PrimaryKey describes a table's primary key. HasRowID reports whether the
// engine backs the table with an implicit row identifier (SQLite rowid
// tables); engines without that concept always report false.
type PrimaryKey struct {
	Columns  []string
	HasRowID bool
}

// ForeignKey is one declared foreign-key constraint.
type ForeignKey struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
}

// Catalog reads schema metadata over a live connection. Calls are
// synchronous and connection-scoped: resolve against the same connection or
// transaction the compiled SQL will execute on.
type Catalog interface {
	// Tables lists the user tables, sorted by name.
	Tables(ctx context.Context) ([]string, error)
	// Columns lists a table's columns in declaration order.
	Columns(ctx context.Context, table string) ([]Column, error)
	// PrimaryKey describes a table's primary key.
	PrimaryKey(ctx context.Context, table string) (PrimaryKey, error)
	// ForeignKeys lists the foreign keys declared on a table, in
	// declaration order.
	ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error)
}
