package models

import "errors"

// Sentinel errors shared by the store and service layers. Callers match
// them with errors.Is; the wrapped message carries the detail.
var (
	// ErrNotFound is returned when a lookup misses, including lookups of
	// published posts that exist only as drafts.
	ErrNotFound = errors.New("not found")

	// ErrInvalidValue is returned when an input is outside its domain.
	ErrInvalidValue = errors.New("invalid value")

	// ErrReferenced is returned when a deletion is blocked because other
	// records still point at the entity.
	ErrReferenced = errors.New("entity is referenced")

	// ErrDuplicate is returned when a unique constraint other than a slug
	// constraint rejects a write.
	ErrDuplicate = errors.New("duplicate value")

	// ErrForbidden is returned when the acting user may not perform the
	// operation on the entity.
	ErrForbidden = errors.New("forbidden")

	// ErrConcurrentModification is returned when the database aborts a
	// transaction because of a conflicting concurrent one.
	ErrConcurrentModification = errors.New("concurrent modification")
)
