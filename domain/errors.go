package domain

import "errors"

var (
	// ErrNotFound indicates the entity does not exist or is not owned by the
	// caller. Ownership misses are deliberately indistinguishable from missing
	// records: every store query is scoped by owner.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a request value failed validation before any
	// state was mutated.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict indicates the entity already exists.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable indicates the server could not be reached. It only
	// occurs on the client side and triggers optimistic rollback, never a
	// validation failure.
	ErrUnavailable = errors.New("unavailable")
)
