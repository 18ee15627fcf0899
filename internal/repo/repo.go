// Package repo defines the contract both contact stores implement: the
// file-backed single-user store and the per-user sqlite store. Callers
// program against Repository and never care which backend is configured.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/lazypower/tether/internal/model"
)

// ErrNotAuthorized is returned when an operation targets a contact that
// exists but is owned by a different scope.
var ErrNotAuthorized = errors.New("not authorized")

// TransportError wraps a backend/storage failure (as opposed to a
// validation or authorization failure, which are the caller's to fix).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Repository is the aggregate store for contacts. Every returned Contact is
// fully hydrated: child collections are present even when empty.
//
// scope identifies the owning user. The local store has exactly one
// implicit scope and ignores the argument; the sqlite store enforces
// per-user row scoping with it.
type Repository interface {
	// List returns all contacts in the scope, most recently updated first
	// where the backend supports ordering, insertion order otherwise.
	List(ctx context.Context, scope string) ([]model.Contact, error)

	// Get returns the hydrated aggregate, or (nil, nil) when the id is
	// merely absent. Errors are reserved for transport failures.
	Get(ctx context.Context, id, scope string) (*model.Contact, error)

	// Save upserts the aggregate: top-level fields are replaced, children
	// are upserted by their own ids, and children omitted from the payload
	// are never implicitly deleted. It assigns ids where missing, refreshes
	// updatedAt monotonically, and returns the stored aggregate.
	//
	// Returns *model.ValidationError for a missing name (or invalid child),
	// ErrNotAuthorized when the id exists under another scope.
	Save(ctx context.Context, contact *model.Contact, scope string) (*model.Contact, error)

	// Delete removes the contact and cascades to all of its children.
	// Deleting a nonexistent id is a no-op.
	Delete(ctx context.Context, id, scope string) error

	// Search returns contacts where the query is a case-insensitive
	// substring of the name, any tag, notes, whereWeMet or howWeMet.
	// An empty query returns the full list.
	Search(ctx context.Context, query, scope string) ([]model.Contact, error)
}
