package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/similarity"
)

// rankedCandidates finds catalog puzzles whose rating lies within
// radiusForRating(clampedRating, compromise) of clampedRating,
// excluding the given IDs. If fewer than target puzzles are found the
// window widens one compromise level at a time up to MaxCompromise,
// after which whatever was found is returned. Best effort with bounded
// retries, not a guarantee of sufficiency.
func (s *serviceImpl) rankedCandidates(
	ctx context.Context,
	log *slog.Logger,
	clampedRating float64,
	excludeIDs []string,
	target int,
) ([]domain.Puzzle, error) {
	ratingParams := s.ratings.Params()

	compromise := s.params.InitialCompromise
	for {
		radius := ratingParams.RadiusForRating(clampedRating, compromise)
		candidates, err := s.puzzles.FindInRatingWindow(
			ctx, clampedRating-radius, clampedRating+radius, excludeIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to find candidates in rating window: %w", err)
		}

		if len(candidates) >= target || compromise >= s.params.MaxCompromise {
			if compromise >= s.params.MaxCompromise && len(candidates) < target {
				log.Debug("maximum compromise reached in candidate search",
					slog.Float64("rating", clampedRating),
					slog.Int("found", len(candidates)),
					slog.Int("target", target))
			}
			return candidates, nil
		}

		compromise++
	}
}

// nearestCandidate returns the candidate topically closest to the
// reference puzzle, skipping IDs in taken. Ties keep the first seen
// minimum; the running minimum doubles as the distance early-exit
// bound. Returns false when every candidate is taken or none is
// measurably close (candidates without usable tags never qualify).
func nearestCandidate(
	reference domain.Puzzle,
	candidates []domain.Puzzle,
	taken map[string]struct{},
) (domain.Puzzle, bool) {
	minDistance := similarity.MaxDistance
	var closest domain.Puzzle
	found := false

	for _, candidate := range candidates {
		if _, ok := taken[candidate.PuzzleID]; ok {
			continue
		}
		distance := similarity.Distance(
			reference.HierarchyTags, candidate.HierarchyTags, minDistance)
		if distance < minDistance {
			minDistance = distance
			closest = candidate
			found = true
		}
	}

	return closest, found
}

// computeCandidates builds the ordered candidate sequence for one
// puzzle's similarity cache entry: the puzzle's own ID first, then
// catalog puzzles from its rating window, most similar first. The
// result depends only on the puzzle and the immutable catalog, so
// concurrent computations for the same puzzle agree.
func (s *serviceImpl) computeCandidates(
	ctx context.Context,
	log *slog.Logger,
	puzzle domain.Puzzle,
) ([]string, error) {
	clamped := s.ratings.Params().ClampRating(puzzle.Rating)

	pool, err := s.rankedCandidates(
		ctx, log, clamped,
		[]string{puzzle.PuzzleID},
		s.params.MinBatchFactor*s.params.CacheSize,
	)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, s.params.CacheSize)
	ids = append(ids, puzzle.PuzzleID)
	taken := map[string]struct{}{puzzle.PuzzleID: {}}

	for len(ids) < s.params.CacheSize {
		closest, ok := nearestCandidate(puzzle, pool, taken)
		if !ok {
			break
		}
		taken[closest.PuzzleID] = struct{}{}
		ids = append(ids, closest.PuzzleID)
	}

	return ids, nil
}
