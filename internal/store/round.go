package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/tactics-api/internal/domain"
)

// RoundStore defines the interface for per-user training round records:
// the ordered solved history and the most recent batch.
//
// Batch generation reads both records, makes its choices, then writes
// both back; the write must not clobber a concurrent request's update
// for the same user. Callers therefore run the final persistence inside
// store.RunInTransaction with WithTx, where GetSolvedForUpdate takes the
// per-user row lock.
type RoundStore interface {
	// GetSolved returns the user's solved puzzle IDs, oldest first.
	// Users with no record get an empty slice, not an error.
	GetSolved(ctx context.Context, username string) ([]string, error)

	// GetSolvedForUpdate is GetSolved acquiring the user's row lock.
	// Only valid on a transaction-bound store.
	GetSolvedForUpdate(ctx context.Context, username string) ([]string, error)

	// SetSolved replaces the user's solved history wholesale
	// (upsert: created if absent).
	SetSolved(ctx context.Context, username string, solved []string) error

	// AppendSolved appends one puzzle ID to the user's solved history
	// (upsert: created if absent).
	AppendSolved(ctx context.Context, username string, puzzleID string) error

	// GetLastBatch returns the batch most recently persisted for the user.
	// Users with no batch history get an empty slice, not an error.
	GetLastBatch(ctx context.Context, username string) ([]domain.Puzzle, error)

	// UpsertLastBatch overwrites the user's last batch wholesale
	// (upsert: created if absent).
	UpsertLastBatch(ctx context.Context, username string, batch []domain.Puzzle) error

	// WithTx returns a RoundStore bound to the given transaction.
	WithTx(tx *sql.Tx) RoundStore
}
