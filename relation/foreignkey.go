package relation

import (
	"context"
	"fmt"
	"strings"

	"github.com/satishbabariya/querykit/schema"
)

// ColumnPair maps one origin column onto one destination column.
type ColumnPair struct {
	Origin      string
	Destination string
}

// ForeignKeyMapping is a resolved join mapping: ordered column pairs from
// the origin table onto the destination table. Mappings are resolved
// against the live catalog on every compile and never cached, so schema
// changes between two runs are honored.
type ForeignKeyMapping struct {
	DestinationTable string
	Pairs            []ColumnPair
}

// ResolveForeignKey resolves the join mapping from origin to destination:
//
//  1. Both column lists explicit: zip them directly; a length mismatch is a
//     configuration error.
//  2. Otherwise, the catalog's declared foreign keys from origin to
//     destination, filtered case-insensitively by any partially-explicit
//     list. Exactly one candidate must remain: several is a fatal
//     ambiguity; none falls through to (3).
//  3. An explicit origin list pairs positionally with destination's primary
//     key; anything else fails.
func ResolveForeignKey(ctx context.Context, cat schema.Catalog, origin, destination string, originColumns, destColumns []string) (ForeignKeyMapping, error) {
	if len(originColumns) > 0 && len(destColumns) > 0 {
		if len(originColumns) != len(destColumns) {
			return ForeignKeyMapping{}, fmt.Errorf(
				"%w: %d origin columns against %d destination columns from %q to %q",
				ErrColumnCountMismatch, len(originColumns), len(destColumns), origin, destination)
		}
		return zipMapping(destination, originColumns, destColumns), nil
	}

	if origin == "" {
		return ForeignKeyMapping{}, fmt.Errorf(
			"%w: association to %q needs explicit origin and destination columns because its origin is not a named table",
			ErrNoForeignKey, destination)
	}

	declared, err := cat.ForeignKeys(ctx, origin)
	if err != nil {
		return ForeignKeyMapping{}, fmt.Errorf("resolve foreign key from %q to %q: %w", origin, destination, err)
	}
	var candidates []schema.ForeignKey
	for _, fk := range declared {
		if !strings.EqualFold(fk.ReferencedTable, destination) {
			continue
		}
		if len(originColumns) > 0 && !sameColumnsFold(fk.Columns, originColumns) {
			continue
		}
		if len(destColumns) > 0 && !sameColumnsFold(fk.ReferencedColumns, destColumns) {
			continue
		}
		candidates = append(candidates, fk)
	}
	switch len(candidates) {
	case 1:
		return zipMapping(destination, candidates[0].Columns, candidates[0].ReferencedColumns), nil
	case 0:
		// Fall through to the primary-key convention.
	default:
		return ForeignKeyMapping{}, fmt.Errorf(
			"%w: %d foreign keys from %q to %q; disambiguate with explicit columns",
			ErrAmbiguousForeignKey, len(candidates), origin, destination)
	}

	if len(originColumns) > 0 {
		pk, err := cat.PrimaryKey(ctx, destination)
		if err != nil {
			return ForeignKeyMapping{}, fmt.Errorf("resolve foreign key from %q to %q: %w", origin, destination, err)
		}
		if len(pk.Columns) != len(originColumns) {
			return ForeignKeyMapping{}, fmt.Errorf(
				"%w: %d origin columns against the %d primary key columns of %q",
				ErrColumnCountMismatch, len(originColumns), len(pk.Columns), destination)
		}
		return zipMapping(destination, originColumns, pk.Columns), nil
	}

	return ForeignKeyMapping{}, fmt.Errorf(
		"%w: no declared foreign key from %q to %q and no explicit columns to fall back on",
		ErrNoForeignKey, origin, destination)
}

func zipMapping(destination string, originColumns, destColumns []string) ForeignKeyMapping {
	mapping := ForeignKeyMapping{DestinationTable: destination}
	for i := range originColumns {
		mapping.Pairs = append(mapping.Pairs, ColumnPair{
			Origin:      originColumns[i],
			Destination: destColumns[i],
		})
	}
	return mapping
}

func sameColumnsFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
