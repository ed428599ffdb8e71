package store

import "errors"

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict indicates a document with the same id already exists.
	ErrConflict = errors.New("document conflict")
)
