package domain

import "errors"

// Puzzle-specific validation errors
var (
	// ErrPuzzleIDEmpty is returned when a puzzle ID is empty.
	ErrPuzzleIDEmpty = errors.New("puzzle ID cannot be empty")

	// ErrPuzzleRatingInvalid is returned when a puzzle's rating is not positive.
	ErrPuzzleRatingInvalid = errors.New("puzzle rating must be positive")
)

// Puzzle is an immutable reference item from the tactics catalog.
// Puzzles are never mutated by the engine; they are looked up by ID and
// copied into per-user records (Leitner boxes, batches) as needed.
//
// HierarchyTags carries the hierarchical topic labels used by the
// similarity metric, each label being a slash-separated path such as
// "endgame/rookEndgame". The position and solution fields (FEN, Moves)
// are presentation data and play no part in recommendation decisions.
type Puzzle struct {
	PuzzleID        string   `json:"puzzle_id"`
	FEN             string   `json:"fen"`
	Moves           string   `json:"moves"`
	Rating          float64  `json:"rating"`
	RatingDeviation float64  `json:"rating_deviation"`
	PlayCount       int      `json:"play_count"`
	Themes          []string `json:"themes"`
	HierarchyTags   []string `json:"hierarchy_tags"`
}

// Validate checks if the Puzzle has valid data.
// Returns an error if any field fails validation.
func (p *Puzzle) Validate() error {
	if p.PuzzleID == "" {
		return ErrPuzzleIDEmpty
	}

	if p.Rating <= 0 {
		return ErrPuzzleRatingInvalid
	}

	return nil
}

// SimilarityCache is the persisted set of topically similar alternates
// for one puzzle. It is computed once, keyed by puzzle ID, and logically
// immutable thereafter. Candidates are ordered most-similar-first and
// always include the source puzzle itself.
type SimilarityCache struct {
	PuzzleID   string   `json:"puzzle_id"`
	Candidates []string `json:"candidates"`
}

// Validate checks if the SimilarityCache has valid data.
func (c *SimilarityCache) Validate() error {
	if c.PuzzleID == "" {
		return ErrPuzzleIDEmpty
	}

	return nil
}
