package storage

import "errors"

var (
	// ErrNotFound is returned by updates that address a missing document
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken
	ErrConflict = errors.New("conflict")
)
