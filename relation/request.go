package relation

import (
	"context"

	"github.com/satishbabariya/querykit/query"
	"github.com/satishbabariya/querykit/schema"
)

// Join is one association attached to a request: a decode key, a join
// discipline, the destination table with its nested query, and nested child
// joins. Joins are created by attaching an association and merged - not
// stacked - when a second association is attached under the same key.
type Join struct {
	Key           string
	Kind          Kind
	Discipline    Discipline
	Table         string
	OriginColumns []string
	DestColumns   []string
	Query         query.SelectQuery
	// Selects reports whether the join contributes columns to the SELECT
	// list. A join that selects nothing exists only for filtering and
	// ordering and is invisible to decoding.
	Selects  bool
	Children []*Join
}

// Request is a base select query plus the association joins attached to it.
// Like queries, requests are immutable values: attaching returns a copy.
type Request struct {
	Base  query.SelectQuery
	Joins []*Join
}

// NewRequest wraps a base query.
func NewRequest(base query.SelectQuery) Request {
	return Request{Base: base}
}

// Including attaches an association whose columns are selected alongside
// the base query's. Attaching under an already-used key merges the two
// joins; an incompatible merge is a configuration error.
func (r Request) Including(d Discipline, a Association) (Request, error) {
	return r.attach(joinFromAssociation(a, d, true))
}

// Joining attaches an association used only for filtering and ordering.
func (r Request) Joining(d Discipline, a Association) (Request, error) {
	return r.attach(joinFromAssociation(a, d, false))
}

// Where filters the base query.
func (r Request) Where(e query.Expr) Request {
	r.Base = r.Base.Where(e)
	return r
}

// Select replaces the base query's selection.
func (r Request) Select(selection ...query.Selectable) Request {
	r.Base = r.Base.Select(selection...)
	return r
}

// OrderBy replaces the base query's ordering.
func (r Request) OrderBy(terms ...query.OrderingTerm) Request {
	r.Base = r.Base.OrderBy(terms...)
	return r
}

// Reverse flips the base query's ordering.
func (r Request) Reverse() Request {
	r.Base = r.Base.Reverse()
	return r
}

func (r Request) attach(join *Join) (Request, error) {
	joins := make([]*Join, len(r.Joins))
	copy(joins, r.Joins)
	merged, err := mergeInto(joins, join)
	if err != nil {
		return r, err
	}
	r.Joins = merged
	return r, nil
}

func joinFromAssociation(a Association, d Discipline, selects bool) *Join {
	join := &Join{
		Key:           a.Key,
		Kind:          a.Kind,
		Discipline:    d,
		Table:         a.Table,
		OriginColumns: a.OriginColumns,
		DestColumns:   a.DestColumns,
		Query:         a.Query,
		Selects:       selects,
	}
	for _, child := range a.Children {
		join.Children = append(join.Children, joinFromAssociation(child.assoc, child.discipline, child.selects))
	}
	return join
}

// Query resolves the request against the live catalog and flattens the join
// tree into a single compilable select query: join clauses in depth-first
// attachment order, child filters folded into their ON conditions, child
// orderings appended after the base ordering.
func (r Request) Query(ctx context.Context, cat schema.Catalog) (query.SelectQuery, error) {
	q := r.Base
	if len(r.Joins) == 0 {
		return q, nil
	}

	parentAlias, parentTable := ensureSourceAlias(&q)
	fl := &flattener{ctx: ctx, cat: cat}
	if err := fl.flatten(parentAlias, parentTable, r.Joins); err != nil {
		return q, err
	}
	q.Joins = append(append([]query.JoinClause(nil), q.Joins...), fl.clauses...)
	if len(fl.ordering) > 0 {
		base, err := materializedOrdering(q, parentAlias)
		if err != nil {
			return q, err
		}
		q.Ordering = append(base, fl.ordering...)
		q.Reversed = false
	}
	return q, nil
}

// Build resolves and compiles the request.
func (r Request) Build(ctx context.Context, cat schema.Catalog) (string, []any, error) {
	q, err := r.Query(ctx, cat)
	if err != nil {
		return "", nil, err
	}
	return q.Build()
}

// BuildCount resolves the request and compiles its derived count query.
func (r Request) BuildCount(ctx context.Context, cat schema.Catalog) (string, []any, error) {
	q, err := r.Query(ctx, cat)
	if err != nil {
		return "", nil, err
	}
	return q.CountQuery().Build()
}

// ensureSourceAlias gives the query's source an alias handle so join
// conditions can reference it, and returns it with the source table name.
func ensureSourceAlias(q *query.SelectQuery) (*query.TableAlias, string) {
	switch src := q.From.(type) {
	case *query.TableSource:
		alias := src.Alias
		if alias == nil {
			alias = &query.TableAlias{}
			q.From = &query.TableSource{Name: src.Name, Alias: alias}
		}
		return alias, src.Name
	case *query.SubquerySource:
		alias := src.Alias
		if alias == nil {
			alias = &query.TableAlias{}
			q.From = &query.SubquerySource{Query: src.Query, Alias: alias, ColumnCount: src.ColumnCount}
		}
		return alias, ""
	}
	return nil, ""
}

type flattener struct {
	ctx      context.Context
	cat      schema.Catalog
	clauses  []query.JoinClause
	ordering []query.OrderingTerm
}

func (fl *flattener) flatten(parentAlias *query.TableAlias, parentTable string, joins []*Join) error {
	for _, join := range joins {
		childQuery := join.Query
		childAlias, _ := ensureSourceAlias(&childQuery)

		condition, err := fl.condition(join, parentAlias, parentTable, childAlias)
		if err != nil {
			return err
		}
		if childQuery.Filter != nil {
			filter, err := query.QualifyExpr(childQuery.Filter, childAlias)
			if err != nil {
				return err
			}
			condition = query.Infix{Op: "AND", Left: condition, Right: filter}
		}

		var selection []query.Selectable
		if join.Selects {
			selection = childQuery.Selection
			if len(selection) == 0 {
				selection = []query.Selectable{childAlias.All()}
			}
		}

		operator := "JOIN"
		if join.Discipline == Optional {
			operator = "LEFT JOIN"
		}
		fl.clauses = append(fl.clauses, query.JoinClause{
			Operator:  operator,
			Source:    &query.TableSource{Name: join.Table, Alias: childAlias},
			On:        condition,
			Selection: selection,
		})

		ordering, err := materializedOrdering(childQuery, childAlias)
		if err != nil {
			return err
		}
		fl.ordering = append(fl.ordering, ordering...)

		if err := fl.flatten(childAlias, join.Table, join.Children); err != nil {
			return err
		}
	}
	return nil
}

// condition builds the equality condition joining a child occurrence to its
// parent. BelongsTo resolves the foreign key held by the parent; HasOne and
// HasMany resolve the one held by the child.
func (fl *flattener) condition(join *Join, parentAlias *query.TableAlias, parentTable string, childAlias *query.TableAlias) (query.Expr, error) {
	var conds []query.Expr
	switch join.Kind {
	case BelongsTo:
		mapping, err := ResolveForeignKey(fl.ctx, fl.cat, parentTable, join.Table, join.OriginColumns, join.DestColumns)
		if err != nil {
			return nil, err
		}
		for _, pair := range mapping.Pairs {
			conds = append(conds, query.Eq(childAlias.Col(pair.Destination), parentAlias.Col(pair.Origin)))
		}
	default:
		mapping, err := ResolveForeignKey(fl.ctx, fl.cat, join.Table, parentTable, join.OriginColumns, join.DestColumns)
		if err != nil {
			return nil, err
		}
		for _, pair := range mapping.Pairs {
			conds = append(conds, query.Eq(childAlias.Col(pair.Origin), parentAlias.Col(pair.Destination)))
		}
	}
	return query.And(conds...), nil
}

// materializedOrdering applies a query's pending reversal eagerly and
// qualifies the terms, so they can be appended to a combined ORDER BY.
func materializedOrdering(q query.SelectQuery, alias *query.TableAlias) ([]query.OrderingTerm, error) {
	terms := q.Ordering
	if q.Reversed {
		if len(terms) == 0 {
			if _, ok := q.From.(*query.TableSource); ok {
				terms = []query.OrderingTerm{{Expr: alias.Col("rowid"), Desc: true}}
			}
		} else {
			flipped := make([]query.OrderingTerm, len(terms))
			for i, term := range terms {
				flipped[i] = query.OrderingTerm{Expr: term.Expr, Desc: !term.Desc}
			}
			terms = flipped
		}
	}
	if len(terms) == 0 {
		return nil, nil
	}
	out := make([]query.OrderingTerm, len(terms))
	for i, term := range terms {
		e, err := query.QualifyExpr(term.Expr, alias)
		if err != nil {
			return nil, err
		}
		out[i] = query.OrderingTerm{Expr: e, Desc: term.Desc}
	}
	return out, nil
}
