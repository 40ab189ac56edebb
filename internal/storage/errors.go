package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert violates a uniqueness
	// constraint. The entry store surfaces it for payment-reference
	// replays; it is the race-safe exactly-once mechanism.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConflict is returned when a compare-and-set update matched no
	// rows because the guarded precondition no longer holds.
	ErrConflict = errors.New("conditional update matched no rows")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
