package localstore

import "errors"

var (
	// ErrStoreUnavailable indicates the persistence medium rejected a write
	// or delete. Reads never return it: a broken slot degrades to absent.
	ErrStoreUnavailable = errors.New("localstore: storage unavailable")

	// ErrNotFound indicates no record exists for the given identifier.
	ErrNotFound = errors.New("localstore: record not found")

	// ErrMissingIdentifier indicates a manifest record with an empty identifier.
	ErrMissingIdentifier = errors.New("localstore: record identifier must not be empty")

	// ErrInvalidPath indicates the database path is empty.
	ErrInvalidPath = errors.New("localstore: invalid database path")
)
