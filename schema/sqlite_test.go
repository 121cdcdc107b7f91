package schema

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	statements := []string{
		`CREATE TABLE country (
			code TEXT NOT NULL PRIMARY KEY,
			name TEXT NOT NULL
		) WITHOUT ROWID`,
		`CREATE TABLE team (
			id INTEGER PRIMARY KEY,
			countryCode TEXT REFERENCES country,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE player (
			id INTEGER PRIMARY KEY,
			teamId INTEGER REFERENCES team(id),
			name TEXT NOT NULL,
			score INTEGER
		)`,
		`CREATE TABLE pairing (
			a INTEGER NOT NULL,
			b INTEGER NOT NULL,
			PRIMARY KEY (a, b)
		)`,
		`CREATE TABLE note (
			body TEXT
		)`,
	}
	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func TestSQLiteCatalogTables(t *testing.T) {
	cat := NewSQLiteCatalog(openTestDB(t))

	tables, err := cat.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "note", "pairing", "player", "team"}, tables)
}

func TestSQLiteCatalogColumns(t *testing.T) {
	cat := NewSQLiteCatalog(openTestDB(t))

	columns, err := cat.Columns(context.Background(), "player")
	require.NoError(t, err)
	require.Len(t, columns, 4)

	assert.Equal(t, "id", columns[0].Name)
	assert.Equal(t, "INTEGER", columns[0].Type)
	assert.Equal(t, "teamId", columns[1].Name)
	assert.True(t, columns[1].Nullable)
	assert.Equal(t, "name", columns[2].Name)
	assert.False(t, columns[2].Nullable)
	assert.Equal(t, "score", columns[3].Name)
}

func TestSQLiteCatalogColumnsUnknownTable(t *testing.T) {
	cat := NewSQLiteCatalog(openTestDB(t))

	_, err := cat.Columns(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestSQLiteCatalogPrimaryKey(t *testing.T) {
	cat := NewSQLiteCatalog(openTestDB(t))
	ctx := context.Background()

	pk, err := cat.PrimaryKey(ctx, "player")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, pk.Columns)
	assert.True(t, pk.HasRowID)

	pk, err = cat.PrimaryKey(ctx, "pairing")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, pk.Columns)

	// A WITHOUT ROWID table has no implicit row identifier.
	pk, err = cat.PrimaryKey(ctx, "country")
	require.NoError(t, err)
	assert.Equal(t, []string{"code"}, pk.Columns)
	assert.False(t, pk.HasRowID)

	// A table with no declared primary key falls back to the hidden rowid.
	pk, err = cat.PrimaryKey(ctx, "note")
	require.NoError(t, err)
	assert.Equal(t, []string{"rowid"}, pk.Columns)
	assert.True(t, pk.HasRowID)
}

func TestSQLiteCatalogForeignKeys(t *testing.T) {
	cat := NewSQLiteCatalog(openTestDB(t))
	ctx := context.Background()

	fks, err := cat.ForeignKeys(ctx, "player")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "team", fks[0].ReferencedTable)
	assert.Equal(t, []string{"teamId"}, fks[0].Columns)
	assert.Equal(t, []string{"id"}, fks[0].ReferencedColumns)

	// REFERENCES without a column list targets the referenced table's
	// primary key.
	fks, err = cat.ForeignKeys(ctx, "team")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "country", fks[0].ReferencedTable)
	assert.Equal(t, []string{"countryCode"}, fks[0].Columns)
	assert.Equal(t, []string{"code"}, fks[0].ReferencedColumns)

	fks, err = cat.ForeignKeys(ctx, "note")
	require.NoError(t, err)
	assert.Empty(t, fks)
}

func TestSQLiteCatalogCompositeForeignKey(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE pairing_note (
		a INTEGER NOT NULL,
		b INTEGER NOT NULL,
		body TEXT,
		FOREIGN KEY (a, b) REFERENCES pairing(a, b)
	)`)
	require.NoError(t, err)

	cat := NewSQLiteCatalog(db)
	fks, err := cat.ForeignKeys(context.Background(), "pairing_note")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "pairing", fks[0].ReferencedTable)
	assert.Equal(t, []string{"a", "b"}, fks[0].Columns)
	assert.Equal(t, []string{"a", "b"}, fks[0].ReferencedColumns)
}
