package store

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist within the
	// caller's tenant. Cross-tenant reads surface as not-found, never as
	// permission errors.
	ErrNotFound = errors.New("not found")

	// ErrIdempotencyConflict is returned when an idempotency key is reused
	// with a different request hash.
	ErrIdempotencyConflict = errors.New("idempotency key conflict")

	// ErrDuplicate is returned on unique-constraint violations other than
	// idempotency replays.
	ErrDuplicate = errors.New("duplicate")
)
