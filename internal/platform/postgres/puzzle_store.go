package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/store"
)

// PostgresPuzzleStore implements the store.PuzzleStore interface
// using a PostgreSQL database as the storage backend. The catalog is
// read-only from the application's point of view; rows are loaded by a
// separate import step.
type PostgresPuzzleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPuzzleStore creates a new PostgreSQL implementation of the PuzzleStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresPuzzleStore(db store.DBTX, logger *slog.Logger) *PostgresPuzzleStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPuzzleStore{
		db:     db,
		logger: logger.With(slog.String("component", "puzzle_store")),
	}
}

// Ensure PostgresPuzzleStore implements store.PuzzleStore interface
var _ store.PuzzleStore = (*PostgresPuzzleStore)(nil)

const puzzleColumns = `puzzle_id, fen, moves, rating, rating_deviation, play_count, themes, hierarchy_tags`

// scanPuzzle reads one puzzle row, decoding the JSONB tag columns.
func scanPuzzle(scan func(dest ...any) error) (*domain.Puzzle, error) {
	var p domain.Puzzle
	var themes, tags []byte

	if err := scan(
		&p.PuzzleID,
		&p.FEN,
		&p.Moves,
		&p.Rating,
		&p.RatingDeviation,
		&p.PlayCount,
		&themes,
		&tags,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(themes, &p.Themes); err != nil {
		return nil, fmt.Errorf("failed to decode puzzle themes: %w", err)
	}
	if err := json.Unmarshal(tags, &p.HierarchyTags); err != nil {
		return nil, fmt.Errorf("failed to decode puzzle hierarchy tags: %w", err)
	}

	return &p, nil
}

// GetByID implements store.PuzzleStore.GetByID
func (s *PostgresPuzzleStore) GetByID(ctx context.Context, id string) (*domain.Puzzle, error) {
	query := `SELECT ` + puzzleColumns + ` FROM puzzles WHERE puzzle_id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	puzzle, err := scanPuzzle(row.Scan)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrPuzzleNotFound
		}
		return nil, fmt.Errorf("failed to get puzzle by id: %w", MapError(err))
	}

	return puzzle, nil
}

// FindInRatingWindow implements store.PuzzleStore.FindInRatingWindow
// The exclusion set is applied while scanning rather than in SQL so the
// query needs no array binding; exclusion lists are solved histories,
// which stay small relative to the catalog.
func (s *PostgresPuzzleStore) FindInRatingWindow(
	ctx context.Context,
	lo, hi float64,
	excludeIDs []string,
) ([]domain.Puzzle, error) {
	query := `
		SELECT ` + puzzleColumns + `
		FROM puzzles
		WHERE rating > $1 AND rating < $2
		ORDER BY puzzle_id
	`

	rows, err := s.db.QueryContext(ctx, query, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating window: %w", MapError(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var puzzles []domain.Puzzle
	for rows.Next() {
		puzzle, err := scanPuzzle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan puzzle row: %w", err)
		}
		if excluded[puzzle.PuzzleID] {
			continue
		}
		puzzles = append(puzzles, *puzzle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rating window: %w", MapError(err))
	}

	return puzzles, nil
}
