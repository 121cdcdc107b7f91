package query

// CountQuery derives the query answering "how many rows would this query
// return" without fetching them. First matching rule wins:
//
//  1. Grouping, a limit, joins, or an aggregate selection: wrap the whole
//     unordered query as a subquery and select COUNT(*) from it.
//  2. Source is not a plain named table: wrap as in rule 1.
//  3. Star selection, not distinct: SELECT COUNT(*) from the same source.
//  4. Single-expression selection, distinct: SELECT COUNT(DISTINCT expr).
//  5. Single-expression selection, not distinct: SELECT COUNT(*) (a single
//     non-star expression does not change the row count).
//  6. Multi-column selection, not distinct: SELECT COUNT(*).
//  7. Multi-column selection, distinct: wrap as in rule 1 (no single
//     COUNT(DISTINCT) can express multi-column distinctness).
//
// The derived query always drops the ordering. Deriving the count of a
// count query is always the wrapped form.
func (q SelectQuery) CountQuery() SelectQuery {
	if len(q.Grouping) > 0 || q.Limit != nil || len(q.Joins) > 0 || hasAggregate(q.Selection) {
		return q.wrappedCount()
	}
	if _, ok := q.From.(*TableSource); !ok {
		return q.wrappedCount()
	}

	counted := q
	counted.Ordering = nil
	counted.Reversed = false

	switch {
	case isStarSelection(q.Selection):
		if q.IsDistinct {
			return q.wrappedCount()
		}
		counted.Selection = []Selectable{CountAll{}}
		return counted
	case len(q.Selection) == 1:
		if q.IsDistinct {
			counted.IsDistinct = false
			counted.Selection = []Selectable{CountDistinct{Operand: q.Selection[0].(Expr)}}
			return counted
		}
		counted.Selection = []Selectable{CountAll{}}
		return counted
	default:
		if q.IsDistinct {
			return q.wrappedCount()
		}
		counted.Selection = []Selectable{CountAll{}}
		return counted
	}
}

// wrappedCount counts the rows of the whole query by wrapping its unordered
// form as a subquery source.
func (q SelectQuery) wrappedCount() SelectQuery {
	inner := q
	inner.Ordering = nil
	inner.Reversed = false
	return SelectQuery{
		Selection: []Selectable{CountAll{}},
		From:      &SubquerySource{Query: &inner, ColumnCount: selectionLen(inner)},
	}
}

func selectionLen(q SelectQuery) int {
	if len(q.Selection) == 0 {
		return 0 // star: unknown without the schema
	}
	for _, s := range q.Selection {
		if _, ok := s.(AllColumns); ok {
			return 0
		}
	}
	return len(q.Selection)
}

// isStarSelection reports whether the selection is "*", optionally
// qualified. An empty selection compiles as star.
func isStarSelection(selection []Selectable) bool {
	if len(selection) == 0 {
		return true
	}
	if len(selection) == 1 {
		_, ok := selection[0].(AllColumns)
		return ok
	}
	return false
}

// hasAggregate reports whether the selection contains a counting aggregate.
// An ungrouped aggregate collapses the result to a single row, so counting
// its rows needs the wrapped form.
func hasAggregate(selection []Selectable) bool {
	for _, s := range selection {
		switch s.(type) {
		case CountAll, Count, CountDistinct:
			return true
		}
	}
	return false
}
