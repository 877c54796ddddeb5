package catalog

import "errors"

var (
	// ErrNotFound is returned when a slice id does not exist in the catalog.
	ErrNotFound = errors.New("slice not found")
	// ErrConflict is returned when a rename or update would reuse a filename
	// already held by a different slice. Both records are left unchanged.
	ErrConflict = errors.New("filename already in use")
)
