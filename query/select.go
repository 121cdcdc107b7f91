package query

// Source is the FROM clause of a select query: one named table occurrence
// or one nested subquery occurrence, each with an optional alias.
//
// This is a sealed interface - only types in this package implement it.
type Source interface {
	sourceNode()
}

// TableSource is a named table occurrence.
type TableSource struct {
	Name  string
	Alias *TableAlias
}

func (*TableSource) sourceNode() {}

// SubquerySource is a nested query occurrence. ColumnCount, when positive,
// declares how many columns the subquery produces; zero means "derive it
// from the subquery's own selection".
type SubquerySource struct {
	Query       *SelectQuery
	Alias       *TableAlias
	ColumnCount int
}

func (*SubquerySource) sourceNode() {}

// OrderingTerm is one ORDER BY term.
type OrderingTerm struct {
	Expr Expr
	Desc bool
}

// Asc orders ascending on an expression.
func Asc(e Expr) OrderingTerm { return OrderingTerm{Expr: e} }

// Desc orders descending on an expression.
func Desc(e Expr) OrderingTerm { return OrderingTerm{Expr: e, Desc: true} }

// LimitSpec is a LIMIT clause with an optional OFFSET.
type LimitSpec struct {
	Limit     int
	Offset    int
	HasOffset bool
}

// JoinClause is one mechanical join attached to a select query: an operator,
// a source occurrence, an ON condition and the columns the joined source
// contributes to the SELECT list. The relation package flattens association
// trees into these.
type JoinClause struct {
	Operator  string // "JOIN" or "LEFT JOIN"
	Source    Source
	On        Expr
	Selection []Selectable
}

// SelectQuery is an immutable select statement under construction.
// A nil Selection compiles as *; the compiled selection is never empty.
type SelectQuery struct {
	Selection  []Selectable
	IsDistinct bool
	From       Source
	Filter     Expr
	Grouping   []Expr
	Ordering   []OrderingTerm
	// Reversed flips the ordering lazily at compile time instead of
	// rewriting Ordering eagerly.
	Reversed   bool
	HavingExpr Expr
	Limit      *LimitSpec
	Joins      []JoinClause
}

// Table starts a query selecting all columns from a named table.
func Table(name string) SelectQuery {
	return SelectQuery{From: &TableSource{Name: name}}
}

// FromSubquery starts a query selecting all columns from a nested query.
func FromSubquery(inner SelectQuery) SelectQuery {
	return SelectQuery{From: &SubquerySource{Query: &inner}}
}

// Select replaces the selection.
func (q SelectQuery) Select(selection ...Selectable) SelectQuery {
	q.Selection = selection
	return q
}

// SelectColumns replaces the selection with named columns of the query's
// own source.
func (q SelectQuery) SelectColumns(names ...string) SelectQuery {
	selection := make([]Selectable, len(names))
	for i, name := range names {
		selection[i] = Column{Name: name}
	}
	q.Selection = selection
	return q
}

// Distinct marks the query DISTINCT.
func (q SelectQuery) Distinct() SelectQuery {
	q.IsDistinct = true
	return q
}

// Where conjoins a filter with any existing one.
func (q SelectQuery) Where(e Expr) SelectQuery {
	if q.Filter == nil {
		q.Filter = e
	} else {
		q.Filter = Infix{Op: "AND", Left: q.Filter, Right: e}
	}
	return q
}

// GroupBy replaces the grouping expressions.
func (q SelectQuery) GroupBy(exprs ...Expr) SelectQuery {
	q.Grouping = exprs
	return q
}

// Having conjoins a HAVING condition with any existing one.
func (q SelectQuery) Having(e Expr) SelectQuery {
	if q.HavingExpr == nil {
		q.HavingExpr = e
	} else {
		q.HavingExpr = Infix{Op: "AND", Left: q.HavingExpr, Right: e}
	}
	return q
}

// OrderBy replaces the ordering and clears any pending reversal.
func (q SelectQuery) OrderBy(terms ...OrderingTerm) SelectQuery {
	q.Ordering = terms
	q.Reversed = false
	return q
}

// Reverse flips the ordering at compile time. With no explicit ordering
// over a named table, a descending ordering on the implicit row identifier
// is synthesized.
func (q SelectQuery) Reverse() SelectQuery {
	q.Reversed = !q.Reversed
	return q
}

// Take limits the number of fetched rows.
func (q SelectQuery) Take(n int) SelectQuery {
	limit := LimitSpec{Limit: n}
	if q.Limit != nil {
		limit.Offset = q.Limit.Offset
		limit.HasOffset = q.Limit.HasOffset
	}
	q.Limit = &limit
	return q
}

// Skip offsets the fetched rows. A query with an offset but no limit
// compiles with LIMIT -1, which SQLite treats as unbounded.
func (q SelectQuery) Skip(n int) SelectQuery {
	limit := LimitSpec{Limit: -1, Offset: n, HasOffset: true}
	if q.Limit != nil {
		limit.Limit = q.Limit.Limit
	}
	q.Limit = &limit
	return q
}

// Aliased names the query's source occurrence. The name is the caller's
// choice and is never renamed by finalization; a collision between two
// caller-chosen names is reported by Finalize.
func (q SelectQuery) Aliased(name string) SelectQuery {
	alias := &TableAlias{userName: name}
	switch src := q.From.(type) {
	case *TableSource:
		q.From = &TableSource{Name: src.Name, Alias: alias}
	case *SubquerySource:
		q.From = &SubquerySource{Query: src.Query, Alias: alias, ColumnCount: src.ColumnCount}
	}
	return q
}

// SourceAlias returns the alias handle of the query's source, if any.
func (q SelectQuery) SourceAlias() *TableAlias {
	switch src := q.From.(type) {
	case *TableSource:
		return src.Alias
	case *SubquerySource:
		return src.Alias
	}
	return nil
}

// Build finalizes the query and compiles it to SQL text plus the ordered
// argument list matching its ?-style placeholders.
func (q SelectQuery) Build() (string, []any, error) {
	finalized, err := q.Finalize()
	if err != nil {
		return "", nil, err
	}
	ctx := &genContext{}
	sql := ctx.selectSQL(finalized)
	return sql, ctx.args, nil
}
