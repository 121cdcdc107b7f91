// Package relation describes how one query's rows relate to another's:
// associations with resolvable join conditions, their composition onto a
// base query, and the merging of same-keyed join subtrees.
package relation

import "github.com/satishbabariya/querykit/query"

// Kind is the direction and cardinality of an association.
type Kind int

const (
	// BelongsTo: the origin table carries the foreign key to the
	// destination (player.teamId -> team.id). To-one.
	BelongsTo Kind = iota
	// HasOne: the destination table carries the foreign key back to the
	// origin. To-one.
	HasOne
	// HasMany: like HasOne, to-many.
	HasMany
)

// Discipline selects the join semantics used when an association is
// attached.
type Discipline int

const (
	// Required uses inner-join semantics: rows without a match drop out.
	Required Discipline = iota
	// Optional uses left-join semantics: rows without a match keep NULLs.
	Optional
)

// Association describes a relationship to another table's rows. The decode
// key defaults to the destination table name; rename it with ForKey when
// the same table is reached twice. Associations compose exactly like
// queries before being attached: Select, Where, OrderBy, Reverse and
// Aliased forward to the nested query.
type Association struct {
	Key           string
	Kind          Kind
	Table         string
	OriginColumns []string
	DestColumns   []string
	Query         query.SelectQuery
	Children      []childJoin
}

type childJoin struct {
	assoc      Association
	discipline Discipline
	selects    bool
}

// NewBelongsTo declares that the current table carries a foreign key to the
// given table.
func NewBelongsTo(table string) Association {
	return Association{Key: table, Kind: BelongsTo, Table: table, Query: query.Table(table)}
}

// NewHasOne declares that the given table carries a foreign key back to the
// current table, with at most one matching row.
func NewHasOne(table string) Association {
	return Association{Key: table, Kind: HasOne, Table: table, Query: query.Table(table)}
}

// NewHasMany declares that the given table carries a foreign key back to
// the current table.
func NewHasMany(table string) Association {
	return Association{Key: table, Kind: HasMany, Table: table, Query: query.Table(table)}
}

// ForKey renames the decode key under which this association's columns are
// grouped. Required when two sibling associations would otherwise collide.
func (a Association) ForKey(key string) Association {
	a.Key = key
	return a
}

// Using pins the foreign-key columns instead of resolving them from the
// schema. Either list may be nil: a partial list filters the declared
// foreign keys; a full pair of lists bypasses the catalog entirely.
func (a Association) Using(originColumns, destColumns []string) Association {
	a.OriginColumns = originColumns
	a.DestColumns = destColumns
	return a
}

// Select replaces the columns the association contributes.
func (a Association) Select(selection ...query.Selectable) Association {
	a.Query = a.Query.Select(selection...)
	return a
}

// SelectColumns replaces the contributed columns by name.
func (a Association) SelectColumns(names ...string) Association {
	a.Query = a.Query.SelectColumns(names...)
	return a
}

// Where filters the associated rows. The condition moves into the join's ON
// clause so optional joins keep their left-join semantics.
func (a Association) Where(e query.Expr) Association {
	a.Query = a.Query.Where(e)
	return a
}

// OrderBy orders the associated rows; the terms are appended after the base
// query's ordering.
func (a Association) OrderBy(terms ...query.OrderingTerm) Association {
	a.Query = a.Query.OrderBy(terms...)
	return a
}

// Reverse flips the association's ordering.
func (a Association) Reverse() Association {
	a.Query = a.Query.Reverse()
	return a
}

// Aliased names the association's table occurrence so filters can be
// written against it before it is attached.
func (a Association) Aliased(name string) Association {
	a.Query = a.Query.Aliased(name)
	return a
}

// Including attaches a nested association whose columns are selected.
func (a Association) Including(d Discipline, child Association) Association {
	a.Children = append(append([]childJoin(nil), a.Children...), childJoin{assoc: child, discipline: d, selects: true})
	return a
}

// Joining attaches a nested association used only for filtering and
// ordering; it contributes no columns and is invisible to decoding.
func (a Association) Joining(d Discipline, child Association) Association {
	a.Children = append(append([]childJoin(nil), a.Children...), childJoin{assoc: child, discipline: d, selects: false})
	return a
}
