// Package rowmap computes decode scopes: the column-index ranges that map
// one flat result row of a compiled request back onto its tree of related
// objects. The computation mirrors the compiled SELECT list exactly - same
// selection, same join order - so a scope tree and a fetched row pair 1:1.
package rowmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/satishbabariya/querykit/query"
	"github.com/satishbabariya/querykit/relation"
	"github.com/satishbabariya/querykit/schema"
)

// ErrAmbiguousKey reports two sibling joins contributing columns under the
// same decode key; one must be renamed with ForKey.
var ErrAmbiguousKey = errors.New("ambiguous decode key")

// UnknownWidthError reports a source whose column count cannot be
// determined from the catalog. It is recoverable: declare an explicit
// column list on the source and recompute.
type UnknownWidthError struct {
	Source string
}

func (e *UnknownWidthError) Error() string {
	return fmt.Sprintf("cannot determine the column count of %q; declare an explicit column list", e.Source)
}

// DecodeScope is a half-open column index range [Start, End) holding one
// node's own columns, plus the scopes of its contributing joins keyed by
// decode key.
type DecodeScope struct {
	Start    int
	End      int
	Children map[string]DecodeScope
}

// Width is the number of columns the node itself owns.
func (s DecodeScope) Width() int { return s.End - s.Start }

// Scopes walks a request and computes the decode scope of every node,
// consulting the live catalog for "all columns" widths. Like foreign-key
// resolution, the widths are re-read on every call so schema changes
// between two executions are honored.
func Scopes(ctx context.Context, cat schema.Catalog, r relation.Request) (DecodeScope, error) {
	scope, _, err := scopesAt(ctx, cat, r.Base, true, r.Joins, 0)
	return scope, err
}

func scopesAt(ctx context.Context, cat schema.Catalog, q query.SelectQuery, selects bool, joins []*relation.Join, start int) (DecodeScope, int, error) {
	width := 0
	if selects {
		var err error
		width, err = queryWidth(ctx, cat, q)
		if err != nil {
			return DecodeScope{}, 0, err
		}
	}
	scope := DecodeScope{Start: start, End: start + width}
	next := scope.End

	for _, join := range joins {
		// A join that selects nothing consumes no columns; its descendants
		// may still contribute.
		child, after, err := scopesAt(ctx, cat, join.Query, join.Selects, join.Children, next)
		if err != nil {
			return DecodeScope{}, 0, err
		}
		next = after
		if child.Width() == 0 && len(child.Children) == 0 {
			continue
		}
		if scope.Children == nil {
			scope.Children = make(map[string]DecodeScope)
		}
		if _, dup := scope.Children[join.Key]; dup {
			return DecodeScope{}, 0, fmt.Errorf("%w: %q appears twice among sibling joins; rename one with ForKey",
				ErrAmbiguousKey, join.Key)
		}
		scope.Children[join.Key] = child
	}
	return scope, next, nil
}

// queryWidth is the number of columns the query's own selection produces:
// one per expression, the live column count of the source for a star term.
// An empty selection compiles as star, so it counts as one.
func queryWidth(ctx context.Context, cat schema.Catalog, q query.SelectQuery) (int, error) {
	if len(q.Selection) == 0 {
		return sourceWidth(ctx, cat, q.From)
	}
	total := 0
	for _, s := range q.Selection {
		if _, ok := s.(query.AllColumns); ok {
			w, err := sourceWidth(ctx, cat, q.From)
			if err != nil {
				return 0, err
			}
			total += w
			continue
		}
		total++
	}
	return total, nil
}

func sourceWidth(ctx context.Context, cat schema.Catalog, src query.Source) (int, error) {
	switch t := src.(type) {
	case *query.TableSource:
		columns, err := cat.Columns(ctx, t.Name)
		if err != nil {
			return 0, fmt.Errorf("column count of table %q: %w", t.Name, err)
		}
		return len(columns), nil
	case *query.SubquerySource:
		if t.ColumnCount > 0 {
			return t.ColumnCount, nil
		}
		if t.Query == nil {
			name := "subquery"
			if t.Alias != nil && t.Alias.Name() != "" {
				name = t.Alias.Name()
			}
			return 0, &UnknownWidthError{Source: name}
		}
		return queryWidth(ctx, cat, *t.Query)
	}
	return 0, &UnknownWidthError{Source: "query without a source"}
}
