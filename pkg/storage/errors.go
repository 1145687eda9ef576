package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a pipeline does not exist.
	ErrNotFound = errors.New("pipeline not found")

	// ErrConflict is returned when a pipeline with the given ID already exists.
	ErrConflict = errors.New("pipeline already exists")
)
