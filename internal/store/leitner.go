package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/tactics-api/internal/domain/leitner"
)

// LeitnerStore defines the interface for Leitner state persistence.
// Each user has at most one state record, keyed by username.
//
// Answer recording is a read-modify-write of the whole record; callers
// must run Get and Update within one transaction (WithTx together with
// store.RunInTransaction) so concurrent answers for the same user do
// not silently lose box transitions.
type LeitnerStore interface {
	// Get retrieves the user's Leitner state.
	// Returns ErrLeitnerNotFound if the user has no state yet.
	Get(ctx context.Context, username string) (*leitner.Instance, error)

	// GetForUpdate retrieves the user's Leitner state and locks the row
	// for the duration of the surrounding transaction. Must be called on
	// a transaction-bound store.
	// Returns ErrLeitnerNotFound if the user has no state yet.
	GetForUpdate(ctx context.Context, username string) (*leitner.Instance, error)

	// Create saves a freshly initialized state for the user.
	// Returns ErrDuplicate if the user already has one.
	Create(ctx context.Context, username string, instance *leitner.Instance) error

	// Update replaces the user's existing state.
	// Returns ErrLeitnerNotFound if the user has no state.
	Update(ctx context.Context, username string, instance *leitner.Instance) error

	// WithTx returns a LeitnerStore bound to the given transaction.
	WithTx(tx *sql.Tx) LeitnerStore
}
