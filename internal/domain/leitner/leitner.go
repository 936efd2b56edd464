package leitner

import (
	"github.com/phrazzld/tactics-api/internal/domain"
)

// Box bounds and sampling bias for the two-box scheduler.
const (
	// BoxLimit is the maximum number of puzzles held in either box.
	// The oldest (back) entries are dropped when the bound is exceeded.
	BoxLimit = 50

	// BoxAProbability is the bias of the review draw toward Box A.
	// Box A holds puzzles that still need practice, so it is sampled
	// far more often than the provisionally mastered Box B.
	BoxAProbability = 0.8
)

// Instance is one user's two-box spaced-repetition state.
//
// Box A holds newly missed or demoted puzzles; Box B holds puzzles
// answered correctly once and pending mastery confirmation. Both boxes
// are ordered most-recent-first. A puzzle ID appears in at most one of
// the two boxes at any time.
type Instance struct {
	BoxA []domain.Puzzle `json:"box_a"`
	BoxB []domain.Puzzle `json:"box_b"`
}

// NewInstance creates a Leitner instance seeded with a single missed
// puzzle in Box A. State is only ever created lazily, on a user's first
// incorrect answer.
func NewInstance(puzzle domain.Puzzle) *Instance {
	return &Instance{
		BoxA: []domain.Puzzle{puzzle},
		BoxB: []domain.Puzzle{},
	}
}

// filterOut returns box without any entry matching the puzzle's ID.
// Comparison is by ID only; a puzzle fetched independently may differ
// in incidental fields, so structural equality must not be used.
func filterOut(box []domain.Puzzle, puzzle domain.Puzzle) []domain.Puzzle {
	out := make([]domain.Puzzle, 0, len(box))
	for _, boxed := range box {
		if boxed.PuzzleID != puzzle.PuzzleID {
			out = append(out, boxed)
		}
	}
	return out
}

// contains reports whether the box holds an entry with the puzzle's ID.
func contains(box []domain.Puzzle, puzzle domain.Puzzle) bool {
	return len(filterOut(box, puzzle)) < len(box)
}

// truncate bounds a box to BoxLimit, dropping the oldest entries first.
func truncate(box []domain.Puzzle) []domain.Puzzle {
	if len(box) > BoxLimit {
		return box[:BoxLimit]
	}
	return box
}

// RecordIncorrect applies the incorrect-answer transition: the puzzle
// moves to the front of Box A regardless of where (or whether) it was
// boxed before. Box B is filtered independently so the single-box
// invariant holds even if the two boxes ever disagreed.
func (l *Instance) RecordIncorrect(puzzle domain.Puzzle) {
	l.BoxA = truncate(append([]domain.Puzzle{puzzle}, filterOut(l.BoxA, puzzle)...))
	l.BoxB = truncate(filterOut(l.BoxB, puzzle))
}

// RecordCorrect applies the correct-answer transition: a Box A member is
// promoted to the front of Box B; a Box B member is retired entirely
// (mastered); an untracked puzzle leaves the state unchanged.
func (l *Instance) RecordCorrect(puzzle domain.Puzzle) {
	if contains(l.BoxA, puzzle) {
		l.BoxA = truncate(filterOut(l.BoxA, puzzle))
		l.BoxB = truncate(append([]domain.Puzzle{puzzle}, l.BoxB...))
	} else if contains(l.BoxB, puzzle) {
		l.BoxB = truncate(filterOut(l.BoxB, puzzle))
	}
	// Not present in either box: nothing to do.
}

// NextReview samples the next review candidate using the given random
// draw, which must return a value in [0, 1). The draw is biased
// BoxAProbability toward Box A; when the favored box is empty the other
// box is used, preferring Box A. Returns nil when both boxes are empty.
//
// This is a sampling read, not a queue pop: the returned puzzle stays in
// its box until an answer is recorded for it.
func (l *Instance) NextReview(draw func() float64) *domain.Puzzle {
	tryBoxA := draw() < BoxAProbability

	if tryBoxA && len(l.BoxA) > 0 {
		return &l.BoxA[0]
	}
	if !tryBoxA && len(l.BoxB) > 0 {
		return &l.BoxB[0]
	}

	// The favored box was empty; at most one box is non-empty now.
	if len(l.BoxA) > 0 {
		return &l.BoxA[0]
	}
	if len(l.BoxB) > 0 {
		return &l.BoxB[0]
	}
	return nil
}
