package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrIndexUnavailable is returned when hybrid search is attempted on a
	// backend without pgvector.
	ErrIndexUnavailable = errors.New("search index unavailable")
)
