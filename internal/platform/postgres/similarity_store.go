package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/store"
)

// PostgresSimilarityStore implements the store.SimilarityStore interface
// using a PostgreSQL database as the storage backend. The primary key on
// puzzle_id is what turns concurrent first-time computations into a
// harmless redundant write instead of duplicate cache entries.
type PostgresSimilarityStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSimilarityStore creates a new PostgreSQL implementation of the SimilarityStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresSimilarityStore(db store.DBTX, logger *slog.Logger) *PostgresSimilarityStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSimilarityStore{
		db:     db,
		logger: logger.With(slog.String("component", "similarity_store")),
	}
}

// Ensure PostgresSimilarityStore implements store.SimilarityStore interface
var _ store.SimilarityStore = (*PostgresSimilarityStore)(nil)

// Get implements store.SimilarityStore.Get
func (s *PostgresSimilarityStore) Get(
	ctx context.Context,
	puzzleID string,
) (*domain.SimilarityCache, error) {
	query := `SELECT puzzle_id, candidates FROM similarity_caches WHERE puzzle_id = $1`

	var entry domain.SimilarityCache
	var candidates []byte
	err := s.db.QueryRowContext(ctx, query, puzzleID).Scan(&entry.PuzzleID, &candidates)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrSimilarityNotFound
		}
		return nil, fmt.Errorf("failed to get similarity cache: %w", MapError(err))
	}

	if err := json.Unmarshal(candidates, &entry.Candidates); err != nil {
		return nil, fmt.Errorf("failed to decode similarity candidates: %w", err)
	}

	return &entry, nil
}

// InsertIfAbsent implements store.SimilarityStore.InsertIfAbsent
// The insert and the conflict check are a single statement, so two
// concurrent callers computing the same puzzle can never both persist;
// both get the one entry that won.
func (s *PostgresSimilarityStore) InsertIfAbsent(
	ctx context.Context,
	entry *domain.SimilarityCache,
) (*domain.SimilarityCache, error) {
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	candidates, err := json.Marshal(entry.Candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to encode similarity candidates: %w", err)
	}

	insert := `
		INSERT INTO similarity_caches (puzzle_id, candidates)
		VALUES ($1, $2)
		ON CONFLICT (puzzle_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, insert, entry.PuzzleID, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to insert similarity cache: %w", MapError(err))
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 1 {
		return entry, nil
	}

	// Lost the race (or the entry already existed): return the winner.
	s.logger.Debug("similarity cache already present",
		slog.String("puzzle_id", entry.PuzzleID))
	return s.Get(ctx, entry.PuzzleID)
}
