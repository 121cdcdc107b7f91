package relation

import "errors"

// Fatal configuration errors: they mean the data model is mis-specified and
// the request must not be compiled, rather than errors a caller handles at
// runtime.
var (
	// ErrAmbiguousForeignKey reports several declared foreign keys between
	// two tables; the caller must disambiguate with explicit columns.
	ErrAmbiguousForeignKey = errors.New("ambiguous foreign key")
	// ErrNoForeignKey reports that no declared foreign key matched and no
	// usable fallback existed.
	ErrNoForeignKey = errors.New("no foreign key")
	// ErrColumnCountMismatch reports explicit column lists of unequal
	// lengths.
	ErrColumnCountMismatch = errors.New("mismatched column counts")
	// ErrIncompatibleMerge reports two joins attached under the same key
	// whose sources do not have the same shape.
	ErrIncompatibleMerge = errors.New("incompatible joins under the same key")
)
