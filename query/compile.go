package query

import (
	"strconv"
	"strings"
)

// genContext accumulates bound arguments while SQL text is produced.
// Arguments are appended in the order their placeholders appear in the
// generated text, left to right. suppress is the one alias whose qualifier
// is omitted: a query referencing a single table occurrence prints bare
// column names, but references to any other occurrence (a second table, a
// correlated outer query) always stay qualified.
type genContext struct {
	args     []any
	suppress *TableAlias
}

// CompileExpr compiles an expression tree to SQL text and its ordered
// argument list. It is pure and total over well-formed trees.
func CompileExpr(e Expr) (string, []any) {
	ctx := &genContext{}
	sql := ctx.exprSQL(e)
	return sql, ctx.args
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (ctx *genContext) exprSQL(e Expr) string {
	switch t := e.(type) {
	case Literal:
		ctx.args = append(ctx.args, t.Args...)
		return t.SQL
	case Value:
		if t.V == nil {
			return "NULL"
		}
		ctx.args = append(ctx.args, t.V)
		return "?"
	case Column:
		return ctx.columnSQL(t)
	case Collated:
		return spliceCollation(ctx.exprSQL(t.Operand), t.Collation)
	case Not:
		return ctx.negatedSQL(t.Operand)
	case Comparison:
		return ctx.comparisonSQL(t, false)
	case Infix:
		left := ctx.exprSQL(t.Left)
		right := ctx.exprSQL(t.Right)
		return "(" + left + " " + t.Op + " " + right + ")"
	case Between:
		operand := ctx.exprSQL(t.Operand)
		lower := ctx.exprSQL(t.Lower)
		upper := ctx.exprSQL(t.Upper)
		return operand + " BETWEEN " + lower + " AND " + upper
	case InList:
		if len(t.List) == 0 {
			// x IN () is not valid SQL; an empty list matches nothing.
			return "0"
		}
		return ctx.exprSQL(t.Operand) + " IN (" + ctx.listSQL(t.List) + ")"
	case InQuery:
		operand := ctx.exprSQL(t.Operand)
		return operand + " IN (" + ctx.subquerySQL(t.Query) + ")"
	case Exists:
		return "EXISTS (" + ctx.subquerySQL(t.Query) + ")"
	case Func:
		return t.Name + "(" + ctx.listSQL(t.Args) + ")"
	case CountAll:
		return "COUNT(*)"
	case Count:
		return "COUNT(" + ctx.exprSQL(t.Operand) + ")"
	case CountDistinct:
		return "COUNT(DISTINCT " + ctx.exprSQL(t.Operand) + ")"
	}
	// Unreachable: Expr is sealed.
	return ""
}

func (ctx *genContext) listSQL(list []Expr) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = ctx.exprSQL(e)
	}
	return strings.Join(parts, ", ")
}

func (ctx *genContext) columnSQL(c Column) string {
	if c.Alias != nil && c.Alias != ctx.suppress && c.Alias.identifier() != "" {
		return quote(c.Alias.identifier()) + "." + quote(c.Name)
	}
	return quote(c.Name)
}

// negatedSQL compiles NOT e with local rewrites instead of a NOT (...) wrap.
func (ctx *genContext) negatedSQL(e Expr) string {
	switch t := e.(type) {
	case Not:
		// Double negation cancels.
		return ctx.exprSQL(t.Operand)
	case Comparison:
		return ctx.comparisonSQL(t, true)
	case InList:
		if len(t.List) == 0 {
			return "1"
		}
		return ctx.exprSQL(t.Operand) + " NOT IN (" + ctx.listSQL(t.List) + ")"
	case InQuery:
		operand := ctx.exprSQL(t.Operand)
		return operand + " NOT IN (" + ctx.subquerySQL(t.Query) + ")"
	case Exists:
		return "NOT EXISTS (" + ctx.subquerySQL(t.Query) + ")"
	default:
		return "NOT (" + ctx.exprSQL(e) + ")"
	}
}

func (op CompareOp) negated() CompareOp {
	switch op {
	case OpEqual:
		return OpNotEqual
	case OpNotEqual:
		return OpEqual
	case OpIs:
		return OpIsNot
	default:
		return OpIs
	}
}

// comparisonSQL compiles a binary comparison. `=` and `<>` against a NULL
// operand rewrite to IS NULL / IS NOT NULL: x = NULL is always unknown in
// three-valued logic, and callers comparing to an absent value mean an
// identity check.
func (ctx *genContext) comparisonSQL(c Comparison, negated bool) string {
	op := c.Op
	if negated {
		op = op.negated()
	}
	if operand, ok := nullComparisonOperand(c); ok {
		switch op {
		case OpEqual, OpIs:
			return ctx.exprSQL(operand) + " IS NULL"
		default:
			return ctx.exprSQL(operand) + " IS NOT NULL"
		}
	}
	left := ctx.exprSQL(c.Left)
	right := ctx.exprSQL(c.Right)
	return left + " " + string(op) + " " + right
}

// nullComparisonOperand returns the non-NULL side of a comparison against a
// bound NULL, if there is one.
func nullComparisonOperand(c Comparison) (Expr, bool) {
	if v, ok := c.Right.(Value); ok && v.V == nil {
		return c.Left, true
	}
	if v, ok := c.Left.(Value); ok && v.V == nil {
		return c.Right, true
	}
	return nil, false
}

// spliceCollation inserts a COLLATE clause into compiled text. When the
// operand's text ends with a closing parenthesis the clause goes just before
// it, so the collation binds to the parenthesized sub-expression.
func spliceCollation(sql, collation string) string {
	if strings.HasSuffix(sql, ")") {
		return sql[:len(sql)-1] + " COLLATE " + collation + ")"
	}
	return sql + " COLLATE " + collation
}

// subquerySQL compiles a nested query inside the current context, with its
// own qualification decision. The outer suppression does not extend into the
// subquery, so correlated references to the outer source stay qualified.
func (ctx *genContext) subquerySQL(q *SelectQuery) string {
	saved := ctx.suppress
	sql := ctx.selectSQL(*q)
	ctx.suppress = saved
	return sql
}

// needsQualification reports whether compiled columns must carry their
// table qualifier: required as soon as more than one table occurrence is in
// scope, or the caller explicitly named the source.
func (q SelectQuery) needsQualification() bool {
	if len(q.Joins) > 0 {
		return true
	}
	if alias := q.SourceAlias(); alias != nil && alias.userName != "" {
		return true
	}
	return false
}

// selectSQL assembles the clauses in fixed order:
// SELECT [DISTINCT] selection [FROM source] [WHERE] [GROUP BY] [HAVING]
// [ORDER BY] [LIMIT].
func (ctx *genContext) selectSQL(q SelectQuery) string {
	if q.needsQualification() {
		ctx.suppress = nil
	} else {
		ctx.suppress = q.SourceAlias()
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.IsDistinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(ctx.selectionSQL(q))

	if q.From != nil {
		sb.WriteString(" FROM ")
		sb.WriteString(ctx.sourceSQL(q.From))
	}
	for _, join := range q.Joins {
		sb.WriteString(" ")
		sb.WriteString(join.Operator)
		sb.WriteString(" ")
		sb.WriteString(ctx.sourceSQL(join.Source))
		if join.On != nil {
			sb.WriteString(" ON ")
			sb.WriteString(ctx.exprSQL(join.On))
		}
	}

	if q.Filter != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(ctx.exprSQL(q.Filter))
	}
	if len(q.Grouping) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(ctx.listSQL(q.Grouping))
	}
	if q.HavingExpr != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(ctx.exprSQL(q.HavingExpr))
	}

	if ordering := q.effectiveOrdering(); len(ordering) > 0 {
		sb.WriteString(" ORDER BY ")
		parts := make([]string, len(ordering))
		for i, term := range ordering {
			parts[i] = ctx.exprSQL(term.Expr)
			if term.Desc {
				parts[i] += " DESC"
			}
		}
		sb.WriteString(strings.Join(parts, ", "))
	}

	if q.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.Limit.Limit))
		if q.Limit.HasOffset {
			sb.WriteString(" OFFSET ")
			sb.WriteString(strconv.Itoa(q.Limit.Offset))
		}
	}

	return sb.String()
}

// effectiveOrdering applies the lazy reversal: with explicit terms every
// direction flips; with none, a named table falls back to its implicit row
// identifier, descending.
func (q SelectQuery) effectiveOrdering() []OrderingTerm {
	if !q.Reversed {
		return q.Ordering
	}
	if len(q.Ordering) == 0 {
		if _, ok := q.From.(*TableSource); ok {
			return []OrderingTerm{{Expr: Column{Name: "rowid"}, Desc: true}}
		}
		return nil
	}
	flipped := make([]OrderingTerm, len(q.Ordering))
	for i, term := range q.Ordering {
		flipped[i] = OrderingTerm{Expr: term.Expr, Desc: !term.Desc}
	}
	return flipped
}

func (ctx *genContext) selectionSQL(q SelectQuery) string {
	selection := q.Selection
	if len(selection) == 0 {
		selection = []Selectable{AllColumns{Alias: q.SourceAlias()}}
	}
	var parts []string
	for _, s := range selection {
		parts = append(parts, ctx.selectableSQL(s))
	}
	for _, join := range q.Joins {
		for _, s := range join.Selection {
			parts = append(parts, ctx.selectableSQL(s))
		}
	}
	return strings.Join(parts, ", ")
}

func (ctx *genContext) selectableSQL(s Selectable) string {
	if star, ok := s.(AllColumns); ok {
		if star.Alias != nil && star.Alias != ctx.suppress && star.Alias.identifier() != "" {
			return quote(star.Alias.identifier()) + ".*"
		}
		return "*"
	}
	return ctx.exprSQL(s.(Expr))
}

func (ctx *genContext) sourceSQL(src Source) string {
	switch t := src.(type) {
	case *TableSource:
		sql := quote(t.Name)
		if t.Alias != nil {
			if name := t.Alias.identifier(); name != "" && name != t.Name {
				sql += " " + quote(name)
			}
		}
		return sql
	case *SubquerySource:
		sql := "(" + ctx.subquerySQL(t.Query) + ")"
		if t.Alias != nil && t.Alias != ctx.suppress {
			if name := t.Alias.identifier(); name != "" {
				sql += " " + quote(name)
			}
		}
		return sql
	}
	return ""
}
