package storage

import "errors"

// Repository errors.
var (
	// ErrNotFound is returned when a fragment id is not in the index.
	ErrNotFound = errors.New("fragment not found")

	// ErrStorageClosed is returned for operations on a closed index.
	ErrStorageClosed = errors.New("index is closed")

	// ErrInvalidQuery is returned for a non-positive page size.
	ErrInvalidQuery = errors.New("invalid page size")

	// ErrSerializationFailed wraps MUS encoding and decoding failures.
	ErrSerializationFailed = errors.New("record serialization failed")
)
