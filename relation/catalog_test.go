package relation

import (
	"context"
	"fmt"
	"sort"

	"github.com/satishbabariya/querykit/schema"
)

// memoryCatalog is a schema.Catalog backed by fixture maps.
type memoryCatalog struct {
	columns map[string][]schema.Column
	pks     map[string]schema.PrimaryKey
	fks     map[string][]schema.ForeignKey
}

func (c *memoryCatalog) Tables(ctx context.Context) ([]string, error) {
	var tables []string
	for name := range c.columns {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables, nil
}

func (c *memoryCatalog) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	columns, ok := c.columns[table]
	if !ok {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	return columns, nil
}

func (c *memoryCatalog) PrimaryKey(ctx context.Context, table string) (schema.PrimaryKey, error) {
	if _, ok := c.columns[table]; !ok {
		return schema.PrimaryKey{}, fmt.Errorf("no such table: %s", table)
	}
	return c.pks[table], nil
}

func (c *memoryCatalog) ForeignKeys(ctx context.Context, table string) ([]schema.ForeignKey, error) {
	if _, ok := c.columns[table]; !ok {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	return c.fks[table], nil
}

func cols(names ...string) []schema.Column {
	out := make([]schema.Column, len(names))
	for i, name := range names {
		out[i] = schema.Column{Name: name, Type: "TEXT", Nullable: true}
	}
	return out
}

// testCatalog is the fixture the relation tests resolve against:
// player belongs to team, team belongs to country, book references person
// twice, comment declares no foreign keys at all.
func testCatalog() *memoryCatalog {
	return &memoryCatalog{
		columns: map[string][]schema.Column{
			"player":  cols("id", "teamId", "name", "score"),
			"team":    cols("id", "countryId", "name", "color"),
			"country": cols("id", "name"),
			"book":    cols("id", "authorId", "translatorId", "title"),
			"person":  cols("id", "name"),
			"comment": cols("id", "playerRef", "body"),
		},
		pks: map[string]schema.PrimaryKey{
			"player":  {Columns: []string{"id"}, HasRowID: true},
			"team":    {Columns: []string{"id"}, HasRowID: true},
			"country": {Columns: []string{"id"}, HasRowID: true},
			"book":    {Columns: []string{"id"}, HasRowID: true},
			"person":  {Columns: []string{"id"}, HasRowID: true},
			"comment": {Columns: []string{"id"}, HasRowID: true},
		},
		fks: map[string][]schema.ForeignKey{
			"player": {{
				Name:              "fk_player_team",
				Columns:           []string{"teamId"},
				ReferencedTable:   "team",
				ReferencedColumns: []string{"id"},
			}},
			"team": {{
				Name:              "fk_team_country",
				Columns:           []string{"countryId"},
				ReferencedTable:   "country",
				ReferencedColumns: []string{"id"},
			}},
			"book": {
				{
					Name:              "fk_book_author",
					Columns:           []string{"authorId"},
					ReferencedTable:   "person",
					ReferencedColumns: []string{"id"},
				},
				{
					Name:              "fk_book_translator",
					Columns:           []string{"translatorId"},
					ReferencedTable:   "person",
					ReferencedColumns: []string{"id"},
				},
			},
		},
	}
}
