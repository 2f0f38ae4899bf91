// Package store defines the narrow capability surface of the assignment
// backing store. Backends offer no transactions and no server-side uniqueness
// unless noted; callers must treat every read as possibly stale.
package store

import (
	"context"
	"errors"

	"topicspin-api/internal/models"
)

var (
	// ErrUnavailable wraps any transport-level failure of a store call,
	// including timeouts.
	ErrUnavailable = errors.New("store unavailable")

	// ErrUnsupported is returned when a backend cannot perform an optional
	// operation. It is never swallowed.
	ErrUnsupported = errors.New("operation not supported by store")

	// ErrConflict is returned by backends with uniqueness constraints when an
	// append was rejected because a conflicting record exists.
	ErrConflict = errors.New("conflicting record exists")

	// ErrNotFound is returned by Delete when no record has the given id.
	ErrNotFound = errors.New("record not found")
)

// Store is the mandatory capability set.
type Store interface {
	FetchAll(ctx context.Context) ([]models.Assignment, error)
	// Append persists a record and returns its id. The returned id may differ
	// from a.ID when the backend assigns its own.
	Append(ctx context.Context, a models.Assignment) (string, error)
}

// Querier is implemented by backends with server-side equality filtering.
type Querier interface {
	QueryEqual(ctx context.Context, field, value string) ([]models.Assignment, error)
}

// Deleter is implemented by backends that can remove records.
type Deleter interface {
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Full is the surface exposed by Instrument regardless of the backend.
type Full interface {
	Store
	Querier
	Deleter
}
