package store

import (
	"context"

	"github.com/phrazzld/tactics-api/internal/domain"
)

// PuzzleStore defines read access to the immutable puzzle catalog.
type PuzzleStore interface {
	// GetByID retrieves a puzzle by its catalog ID.
	// Returns ErrPuzzleNotFound if the puzzle does not exist.
	GetByID(ctx context.Context, id string) (*domain.Puzzle, error)

	// FindInRatingWindow returns catalog puzzles whose rating lies strictly
	// between lo and hi, excluding the given puzzle IDs. Results are ordered
	// by catalog ID so repeated queries over the same window are stable.
	FindInRatingWindow(
		ctx context.Context,
		lo, hi float64,
		excludeIDs []string,
	) ([]domain.Puzzle, error)
}
