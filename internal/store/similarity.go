package store

import (
	"context"

	"github.com/phrazzld/tactics-api/internal/domain"
)

// SimilarityStore defines the interface for persisted similarity cache
// entries, keyed by puzzle ID.
//
// The store enforces the engine's sharpest invariant: at most one
// persisted entry per puzzle ID, even under concurrent first-time
// requests. InsertIfAbsent is the only write path; there is no separate
// existence check followed by an insert.
type SimilarityStore interface {
	// Get retrieves the cache entry for a puzzle.
	// Returns ErrSimilarityNotFound if no entry exists.
	Get(ctx context.Context, puzzleID string) (*domain.SimilarityCache, error)

	// InsertIfAbsent atomically persists the entry unless one already
	// exists for its puzzle ID, and returns the entry that is persisted
	// afterwards (the existing one on conflict). Losing a race is not an
	// error: the computation is deterministic, so the discarded result
	// matches the stored one.
	InsertIfAbsent(ctx context.Context, entry *domain.SimilarityCache) (*domain.SimilarityCache, error)
}
