package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a cache key has no entry.
	ErrNotFound = errors.New("entry not found")
)
