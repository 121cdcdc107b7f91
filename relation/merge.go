package relation

import (
	"fmt"

	"github.com/satishbabariya/querykit/query"
)

// mergeInto merges a new join into a sibling list. A sibling under the same
// key is merged in place of stacking a second join; keys unique to one side
// carry over unchanged.
func mergeInto(siblings []*Join, join *Join) ([]*Join, error) {
	for i, existing := range siblings {
		if existing.Key != join.Key {
			continue
		}
		merged, err := mergeJoins(existing, join)
		if err != nil {
			return nil, err
		}
		out := make([]*Join, len(siblings))
		copy(out, siblings)
		out[i] = merged
		return out, nil
	}
	return append(siblings, join), nil
}

// mergeJoins combines two joins attached under one key: filters are AND-ed,
// a non-empty selection or ordering on the new join replaces the old one,
// and child joins merge recursively by the same rule. The two sources must
// have the same shape, or the key is ambiguous.
func mergeJoins(old, new *Join) (*Join, error) {
	if err := checkCompatible(old, new); err != nil {
		return nil, err
	}

	merged := &Join{
		Key:           old.Key,
		Kind:          old.Kind,
		Discipline:    old.Discipline,
		Table:         old.Table,
		OriginColumns: old.OriginColumns,
		DestColumns:   old.DestColumns,
		Query:         old.Query,
		Selects:       old.Selects || new.Selects,
	}
	// A required join stays required: inner-join semantics are the
	// stronger constraint.
	if new.Discipline == Required {
		merged.Discipline = Required
	}
	if len(new.OriginColumns) > 0 {
		merged.OriginColumns = new.OriginColumns
	}
	if len(new.DestColumns) > 0 {
		merged.DestColumns = new.DestColumns
	}

	if new.Query.Filter != nil {
		merged.Query = merged.Query.Where(new.Query.Filter)
	}
	if len(new.Query.Selection) > 0 {
		merged.Query.Selection = new.Query.Selection
	}
	if len(new.Query.Ordering) > 0 || new.Query.Reversed {
		merged.Query.Ordering = new.Query.Ordering
		merged.Query.Reversed = new.Query.Reversed
	}
	if merged.Query.SourceAlias() == nil && new.Query.SourceAlias() != nil {
		merged.Query.From = new.Query.From
	}

	children := make([]*Join, len(old.Children))
	copy(children, old.Children)
	for _, child := range new.Children {
		var err error
		children, err = mergeInto(children, child)
		if err != nil {
			return nil, err
		}
	}
	merged.Children = children
	return merged, nil
}

func checkCompatible(old, new *Join) error {
	if old.Table != new.Table {
		return fmt.Errorf("%w: key %q joins table %q and table %q; rename one with ForKey",
			ErrIncompatibleMerge, old.Key, old.Table, new.Table)
	}
	oldSub, oldIsSub := old.Query.From.(*query.SubquerySource)
	newSub, newIsSub := new.Query.From.(*query.SubquerySource)
	if oldIsSub != newIsSub {
		return fmt.Errorf("%w: key %q joins a table and a subquery; rename one with ForKey",
			ErrIncompatibleMerge, old.Key)
	}
	if oldIsSub && newIsSub {
		if oldSub.ColumnCount != newSub.ColumnCount {
			return fmt.Errorf("%w: key %q joins subqueries of different widths; rename one with ForKey",
				ErrIncompatibleMerge, old.Key)
		}
		if !sameSourceShape(old.Query.From, new.Query.From) {
			return fmt.Errorf("%w: key %q joins two different subqueries; rename one with ForKey",
				ErrIncompatibleMerge, old.Key)
		}
	}
	return nil
}

// sameSourceShape reports whether two sources read from the same table, or
// from subqueries that recursively do.
func sameSourceShape(a, b query.Source) bool {
	switch at := a.(type) {
	case *query.TableSource:
		bt, ok := b.(*query.TableSource)
		return ok && at.Name == bt.Name
	case *query.SubquerySource:
		bt, ok := b.(*query.SubquerySource)
		if !ok || at.ColumnCount != bt.ColumnCount {
			return false
		}
		if at.Query == nil || bt.Query == nil {
			return at.Query == bt.Query
		}
		return sameSourceShape(at.Query.From, bt.Query.From)
	}
	return a == nil && b == nil
}
