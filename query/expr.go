// Package query provides the SQL expression model, the select-query model,
// and their compiler. Queries are immutable values: every derivation method
// returns a copy, and compiling the same value twice yields the same
// (SQL, arguments) pair.
package query

// Expr represents one SQL value-producing term.
//
// This is a sealed interface - only types in this package implement it.
// Expressions are immutable trees with value semantics: two structurally
// identical trees are interchangeable.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Selectable is a term of a SELECT list. It produces zero or more output
// columns: every Expr produces exactly one, AllColumns produces all columns
// of one table or subquery occurrence.
type Selectable interface {
	selectableNode()
}

// Literal is opaque, already-valid SQL text with optional bound arguments.
type Literal struct {
	SQL  string
	Args []any
}

// Value is a bound scalar. A nil V compiles to the NULL token and
// contributes no argument; anything else compiles to a placeholder.
type Value struct {
	V any
}

// Column references a column by name, optionally qualified by a table
// occurrence. A nil Alias means the column belongs to the enclosing query's
// own source; finalization resolves it.
type Column struct {
	Name  string
	Alias *TableAlias
}

// Collated wraps an expression with a named collation.
type Collated struct {
	Operand   Expr
	Collation string
}

// Not negates an expression. Compilation rewrites negations of compound
// nodes locally (NOT IN, IS NOT NULL, NOT EXISTS, swapped comparison
// operators) instead of wrapping in NOT (...).
type Not struct {
	Operand Expr
}

// CompareOp is a NULL-aware binary comparison operator.
type CompareOp string

const (
	OpEqual    CompareOp = "="
	OpNotEqual CompareOp = "<>"
	OpIs       CompareOp = "IS"
	OpIsNot    CompareOp = "IS NOT"
)

// Comparison compares two expressions with a NULL-aware operator: `=` and
// `<>` against a NULL operand compile to IS NULL / IS NOT NULL.
type Comparison struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

// Infix applies a fixed operator token to two operands. The compiled form
// is always parenthesized, so no precedence table is needed.
type Infix struct {
	Op    string
	Left  Expr
	Right Expr
}

// Between is the ternary BETWEEN operator.
type Between struct {
	Operand Expr
	Lower   Expr
	Upper   Expr
}

// InList tests membership in an explicit list. An empty list compiles to
// the constant false (0); its negation compiles to the constant true (1).
type InList struct {
	Operand Expr
	List    []Expr
}

// InQuery tests membership in a subquery.
type InQuery struct {
	Operand Expr
	Query   *SelectQuery
}

// Exists tests whether a subquery returns at least one row.
type Exists struct {
	Query *SelectQuery
}

// Func is a function call with ordered arguments.
type Func struct {
	Name string
	Args []Expr
}

// CountAll is COUNT(*).
type CountAll struct{}

// Count is COUNT(expr).
type Count struct {
	Operand Expr
}

// CountDistinct is COUNT(DISTINCT expr).
type CountDistinct struct {
	Operand Expr
}

// AllColumns selects every column of one table or subquery occurrence.
// A nil Alias means the enclosing query's own source.
type AllColumns struct {
	Alias *TableAlias
}

func (Literal) exprNode()       {}
func (Value) exprNode()         {}
func (Column) exprNode()        {}
func (Collated) exprNode()      {}
func (Not) exprNode()           {}
func (Comparison) exprNode()    {}
func (Infix) exprNode()         {}
func (Between) exprNode()       {}
func (InList) exprNode()        {}
func (InQuery) exprNode()       {}
func (Exists) exprNode()        {}
func (Func) exprNode()          {}
func (CountAll) exprNode()      {}
func (Count) exprNode()         {}
func (CountDistinct) exprNode() {}

func (Literal) selectableNode()       {}
func (Value) selectableNode()         {}
func (Column) selectableNode()        {}
func (Collated) selectableNode()      {}
func (Not) selectableNode()           {}
func (Comparison) selectableNode()    {}
func (Infix) selectableNode()         {}
func (Between) selectableNode()       {}
func (InList) selectableNode()        {}
func (InQuery) selectableNode()       {}
func (Exists) selectableNode()        {}
func (Func) selectableNode()          {}
func (CountAll) selectableNode()      {}
func (Count) selectableNode()         {}
func (CountDistinct) selectableNode() {}
func (AllColumns) selectableNode()    {}

// Col references a column of the enclosing query's own source.
func Col(name string) Column { return Column{Name: name} }

// Val binds a scalar value. Val(nil) is SQL NULL.
func Val(v any) Value { return Value{V: v} }

// Raw embeds already-valid SQL text with optional bound arguments.
func Raw(sql string, args ...any) Literal { return Literal{SQL: sql, Args: args} }

// Eq builds a NULL-aware equality comparison.
func Eq(left, right Expr) Comparison { return Comparison{Op: OpEqual, Left: left, Right: right} }

// Neq builds a NULL-aware inequality comparison.
func Neq(left, right Expr) Comparison { return Comparison{Op: OpNotEqual, Left: left, Right: right} }

// Is builds an IS comparison.
func Is(left, right Expr) Comparison { return Comparison{Op: OpIs, Left: left, Right: right} }

// IsNot builds an IS NOT comparison.
func IsNot(left, right Expr) Comparison { return Comparison{Op: OpIsNot, Left: left, Right: right} }

// And conjoins expressions left to right.
func And(exprs ...Expr) Expr { return fold("AND", exprs) }

// Or disjoins expressions left to right.
func Or(exprs ...Expr) Expr { return fold("OR", exprs) }

func fold(op string, exprs []Expr) Expr {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	}
	acc := exprs[0]
	for _, e := range exprs[1:] {
		acc = Infix{Op: op, Left: acc, Right: e}
	}
	return acc
}

// Gt, Gte, Lt and Lte build ordering comparisons.
func Gt(left, right Expr) Infix  { return Infix{Op: ">", Left: left, Right: right} }
func Gte(left, right Expr) Infix { return Infix{Op: ">=", Left: left, Right: right} }
func Lt(left, right Expr) Infix  { return Infix{Op: "<", Left: left, Right: right} }
func Lte(left, right Expr) Infix { return Infix{Op: "<=", Left: left, Right: right} }

// Like builds a LIKE pattern match.
func Like(left, right Expr) Infix { return Infix{Op: "LIKE", Left: left, Right: right} }

// In tests membership in an explicit expression list.
func In(operand Expr, list ...Expr) InList { return InList{Operand: operand, List: list} }

// InValues tests membership in a list of bound scalars.
func InValues(operand Expr, values ...any) InList {
	list := make([]Expr, len(values))
	for i, v := range values {
		list[i] = Value{V: v}
	}
	return InList{Operand: operand, List: list}
}

// NotExpr negates an expression.
func NotExpr(e Expr) Not { return Not{Operand: e} }

// Call builds a function call.
func Call(name string, args ...Expr) Func { return Func{Name: name, Args: args} }

// Collate wraps an expression with a named collation.
func Collate(e Expr, collation string) Collated {
	return Collated{Operand: e, Collation: collation}
}
