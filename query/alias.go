package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrAliasCollision reports two caller-chosen alias names that clash within
// one query.
var ErrAliasCollision = errors.New("alias name used twice")

// TableAlias identifies one particular occurrence of a table or subquery.
// Aliases have reference identity: expressions hold the handle, not a name,
// so a filter can be written against an alias before the query that owns it
// is attached anywhere. Finalization never writes to the caller's handle: it
// resolves names into fresh copies held by the finalized query, so one query
// value can be built from any number of goroutines at once.
type TableAlias struct {
	userName string // caller-chosen, never renamed
	name     string // resolved at finalization
}

// NewAlias creates an alias with a caller-chosen name.
func NewAlias(name string) *TableAlias {
	return &TableAlias{userName: name}
}

// Name returns the caller-chosen name, if any.
func (a *TableAlias) Name() string { return a.userName }

// identifier is the name compiled SQL uses for this occurrence: the
// resolved name once finalization ran, the caller's name before that.
func (a *TableAlias) identifier() string {
	if a.name != "" {
		return a.name
	}
	return a.userName
}

// Col references a column of this occurrence.
func (a *TableAlias) Col(name string) Column {
	return Column{Name: name, Alias: a}
}

// All selects every column of this occurrence.
func (a *TableAlias) All() AllColumns {
	return AllColumns{Alias: a}
}

// Finalize resolves every alias to a unique name and qualifies bare column
// references against their owning source. It recurses into join clauses and
// nested subqueries; the whole tree shares one namespace, so a correlated
// reference to an outer occurrence of the same table stays unambiguous.
// Finalizing an already-finalized query is a no-op at the SQL level.
func (q SelectQuery) Finalize() (SelectQuery, error) {
	return newFinalizer().finalizeQuery(q)
}

// finalizer resolves names copy-on-write: every alias handle reachable from
// the query is replaced by a fresh copy before any name is assigned, so the
// caller's handles are never written to.
type finalizer struct {
	taken map[string]bool
	remap map[*TableAlias]*TableAlias
}

func newFinalizer() *finalizer {
	return &finalizer{
		taken: make(map[string]bool),
		remap: make(map[*TableAlias]*TableAlias),
	}
}

// remapAlias returns the finalized copy of a handle, creating it on first
// sight. A nil handle gets a fresh anonymous one.
func (f *finalizer) remapAlias(alias *TableAlias) *TableAlias {
	if alias == nil {
		return &TableAlias{}
	}
	if mapped, ok := f.remap[alias]; ok {
		return mapped
	}
	mapped := &TableAlias{userName: alias.userName, name: alias.name}
	f.remap[alias] = mapped
	return mapped
}

func (f *finalizer) finalizeQuery(q SelectQuery) (SelectQuery, error) {
	out := q

	src, err := f.finalizeSource(q.From)
	if err != nil {
		return out, err
	}
	out.From = src

	if len(q.Joins) > 0 {
		joins := make([]JoinClause, len(q.Joins))
		copy(joins, q.Joins)
		for i := range joins {
			joins[i].Source, err = f.finalizeSource(joins[i].Source)
			if err != nil {
				return out, err
			}
		}
		out.Joins = joins
	}

	if err := f.resolveNames(out); err != nil {
		return out, err
	}

	own := sourceAliasOf(out.From)
	if out.Selection, err = f.qualifySelection(q.Selection, own); err != nil {
		return out, err
	}
	if out.Filter, err = f.qualifyExpr(q.Filter, own); err != nil {
		return out, err
	}
	if out.Grouping, err = f.qualifyExprs(q.Grouping, own); err != nil {
		return out, err
	}
	if out.HavingExpr, err = f.qualifyExpr(q.HavingExpr, own); err != nil {
		return out, err
	}
	if len(q.Ordering) > 0 {
		ordering := make([]OrderingTerm, len(q.Ordering))
		for i, term := range q.Ordering {
			e, err := f.qualifyExpr(term.Expr, own)
			if err != nil {
				return out, err
			}
			ordering[i] = OrderingTerm{Expr: e, Desc: term.Desc}
		}
		out.Ordering = ordering
	}

	for i := range out.Joins {
		joinAlias := sourceAliasOf(out.Joins[i].Source)
		if out.Joins[i].Selection, err = f.qualifySelection(out.Joins[i].Selection, joinAlias); err != nil {
			return out, err
		}
		if out.Joins[i].On, err = f.qualifyExpr(out.Joins[i].On, joinAlias); err != nil {
			return out, err
		}
	}

	return out, nil
}

// finalizeSource copies a source, ensures the copy carries its own alias
// handle, and finalizes nested subqueries within the shared namespace.
func (f *finalizer) finalizeSource(src Source) (Source, error) {
	switch t := src.(type) {
	case nil:
		return nil, nil
	case *TableSource:
		return &TableSource{Name: t.Name, Alias: f.remapAlias(t.Alias)}, nil
	case *SubquerySource:
		inner, err := f.finalizeQuery(*t.Query)
		if err != nil {
			return nil, err
		}
		return &SubquerySource{Query: &inner, Alias: f.remapAlias(t.Alias), ColumnCount: t.ColumnCount}, nil
	}
	return src, nil
}

func sourceAliasOf(src Source) *TableAlias {
	switch t := src.(type) {
	case *TableSource:
		return t.Alias
	case *SubquerySource:
		return t.Alias
	}
	return nil
}

func sourceBaseName(src Source) string {
	if t, ok := src.(*TableSource); ok {
		return strings.ToLower(t.Name)
	}
	return "subquery"
}

// resolveNames assigns every alias its final name: already-resolved names
// are kept, caller-chosen names win next (a clash between two of them is a
// configuration error), and the rest receive the lowercase table name with
// a numeric suffix on collision.
func (f *finalizer) resolveNames(q SelectQuery) error {
	type entry struct {
		alias *TableAlias
		base  string
	}
	var entries []entry
	seen := make(map[*TableAlias]bool)
	add := func(src Source) {
		alias := sourceAliasOf(src)
		if alias == nil || seen[alias] {
			return
		}
		seen[alias] = true
		entries = append(entries, entry{alias: alias, base: sourceBaseName(src)})
	}
	add(q.From)
	for _, join := range q.Joins {
		add(join.Source)
	}

	for _, e := range entries {
		if e.alias.name != "" {
			f.taken[strings.ToLower(e.alias.name)] = true
		}
	}
	for _, e := range entries {
		if e.alias.name != "" || e.alias.userName == "" {
			continue
		}
		key := strings.ToLower(e.alias.userName)
		if f.taken[key] {
			return fmt.Errorf("%w: %q", ErrAliasCollision, e.alias.userName)
		}
		e.alias.name = e.alias.userName
		f.taken[key] = true
	}
	for _, e := range entries {
		if e.alias.name != "" {
			continue
		}
		name := e.base
		for i := 1; f.taken[strings.ToLower(name)]; i++ {
			name = e.base + strconv.Itoa(i)
		}
		e.alias.name = name
		f.taken[strings.ToLower(name)] = true
	}
	return nil
}

func (f *finalizer) qualifySelection(selection []Selectable, alias *TableAlias) ([]Selectable, error) {
	if len(selection) == 0 {
		return selection, nil
	}
	out := make([]Selectable, len(selection))
	for i, s := range selection {
		if star, ok := s.(AllColumns); ok {
			if star.Alias == nil {
				star.Alias = alias
			} else if mapped, ok := f.remap[star.Alias]; ok {
				star.Alias = mapped
			}
			out[i] = star
			continue
		}
		e, err := f.qualifyExpr(s.(Expr), alias)
		if err != nil {
			return nil, err
		}
		out[i] = e.(Selectable)
	}
	return out, nil
}

func (f *finalizer) qualifyExprs(exprs []Expr, alias *TableAlias) ([]Expr, error) {
	if len(exprs) == 0 {
		return exprs, nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		q, err := f.qualifyExpr(e, alias)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// qualifyExpr rewrites bare column references to reference the given alias
// and finalizes subqueries embedded in the tree.
func (f *finalizer) qualifyExpr(e Expr, alias *TableAlias) (Expr, error) {
	switch t := e.(type) {
	case nil:
		return nil, nil
	case Column:
		if t.Alias == nil {
			t.Alias = alias
		} else if mapped, ok := f.remap[t.Alias]; ok {
			t.Alias = mapped
		}
		return t, nil
	case Collated:
		operand, err := f.qualifyExpr(t.Operand, alias)
		if err != nil {
			return nil, err
		}
		return Collated{Operand: operand, Collation: t.Collation}, nil
	case Not:
		operand, err := f.qualifyExpr(t.Operand, alias)
		if err != nil {
			return nil, err
		}
		return Not{Operand: operand}, nil
	case Comparison:
		left, err := f.qualifyExpr(t.Left, alias)
		if err != nil {
			return nil, err
		}
		right, err := f.qualifyExpr(t.Right, alias)
		if err != nil {
			return nil, err
		}
		return Comparison{Op: t.Op, Left: left, Right: right}, nil
	case Infix:
		left, err := f.qualifyExpr(t.Left, alias)
		if err != nil {
			return nil, err
		}
		right, err := f.qualifyExpr(t.Right, alias)
		if err != nil {
			return nil, err
		}
		return Infix{Op: t.Op, Left: left, Right: right}, nil
	case Between:
		operand, err := f.qualifyExpr(t.Operand, alias)
		if err != nil {
			return nil, err
		}
		lower, err := f.qualifyExpr(t.Lower, alias)
		if err != nil {
			return nil, err
		}
		upper, err := f.qualifyExpr(t.Upper, alias)
		if err != nil {
			return nil, err
		}
		return Between{Operand: operand, Lower: lower, Upper: upper}, nil
	case InList:
		operand, err := f.qualifyExpr(t.Operand, alias)
		if err != nil {
			return nil, err
		}
		list, err := f.qualifyExprs(t.List, alias)
		if err != nil {
			return nil, err
		}
		return InList{Operand: operand, List: list}, nil
	case InQuery:
		operand, err := f.qualifyExpr(t.Operand, alias)
		if err != nil {
			return nil, err
		}
		inner, err := f.finalizeQuery(*t.Query)
		if err != nil {
			return nil, err
		}
		return InQuery{Operand: operand, Query: &inner}, nil
	case Exists:
		inner, err := f.finalizeQuery(*t.Query)
		if err != nil {
			return nil, err
		}
		return Exists{Query: &inner}, nil
	case Func:
		args, err := f.qualifyExprs(t.Args, alias)
		if err != nil {
			return nil, err
		}
		return Func{Name: t.Name, Args: args}, nil
	case Count:
		operand, err := f.qualifyExpr(t.Operand, alias)
		if err != nil {
			return nil, err
		}
		return Count{Operand: operand}, nil
	case CountDistinct:
		operand, err := f.qualifyExpr(t.Operand, alias)
		if err != nil {
			return nil, err
		}
		return CountDistinct{Operand: operand}, nil
	default:
		// Literal, Value, CountAll carry no column references.
		return e, nil
	}
}

// QualifyExpr rewrites bare column references in an expression tree so they
// reference the given occurrence. Columns already qualified are untouched.
func QualifyExpr(e Expr, alias *TableAlias) (Expr, error) {
	return newFinalizer().qualifyExpr(e, alias)
}
