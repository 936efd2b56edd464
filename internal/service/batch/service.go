// Package batch generates a user's next training batch by replacing
// each puzzle of the previous batch with an unsolved similar one, and
// maintains the similarity cache and solved history that selection
// runs on.
package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/platform/logger"
	"github.com/phrazzld/tactics-api/internal/service/rating"
	"github.com/phrazzld/tactics-api/internal/store"
)

// ServiceError is a custom error type for batch service errors.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batch service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("batch service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// Service provides batch generation operations.
type Service interface {
	// NextBatch returns the user's most recently persisted batch.
	// Users with no batch history get an empty slice, not an error.
	NextBatch(ctx context.Context, username string) ([]domain.Puzzle, error)

	// SimilarBatch replaces each puzzle of the user's last batch with an
	// unsolved similar one, position by position, then persists the new
	// batch and the grown solved history atomically. Requires a
	// provisioned rating record; any failed item fails the whole batch.
	SimilarBatch(ctx context.Context, username string) ([]domain.Puzzle, error)
}

// serviceImpl implements the Service interface.
type serviceImpl struct {
	db           *sql.DB
	puzzles      store.PuzzleStore
	similarities store.SimilarityStore
	rounds       store.RoundStore
	ratings      rating.Service
	params       Params
	logger       *slog.Logger

	// transact runs fn inside a database transaction. Injectable so
	// tests can run the persistence path against in-memory stores.
	transact func(ctx context.Context, fn store.TxFn) error
}

// Ensure serviceImpl implements Service interface
var _ Service = (*serviceImpl)(nil)

// NewService creates a new batch Service.
// It returns an error if any of the required dependencies are nil.
func NewService(
	db *sql.DB,
	puzzles store.PuzzleStore,
	similarities store.SimilarityStore,
	rounds store.RoundStore,
	ratings rating.Service,
	params Params,
	logger *slog.Logger,
) (Service, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if puzzles == nil {
		return nil, domain.NewValidationError("puzzles", "cannot be nil", domain.ErrValidation)
	}
	if similarities == nil {
		return nil, domain.NewValidationError("similarities", "cannot be nil", domain.ErrValidation)
	}
	if rounds == nil {
		return nil, domain.NewValidationError("rounds", "cannot be nil", domain.ErrValidation)
	}
	if ratings == nil {
		return nil, domain.NewValidationError("ratings", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &serviceImpl{
		db:           db,
		puzzles:      puzzles,
		similarities: similarities,
		rounds:       rounds,
		ratings:      ratings,
		params:       params,
		logger:       logger.With(slog.String("component", "batch_service")),
	}
	s.transact = func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, s.db, fn)
	}
	return s, nil
}

// NextBatch implements Service.NextBatch
func (s *serviceImpl) NextBatch(ctx context.Context, username string) ([]domain.Puzzle, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	batch, err := s.rounds.GetLastBatch(ctx, username)
	if err != nil {
		log.Error("failed to load last batch",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return nil, NewServiceError("next_batch", "failed to load last batch", err)
	}

	return batch, nil
}

// SimilarBatch implements Service.SimilarBatch
func (s *serviceImpl) SimilarBatch(ctx context.Context, username string) ([]domain.Puzzle, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	lastBatch, err := s.rounds.GetLastBatch(ctx, username)
	if err != nil {
		log.Error("failed to load last batch",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return nil, NewServiceError("similar_batch", "failed to load last batch", err)
	}
	if len(lastBatch) == 0 {
		return []domain.Puzzle{}, nil
	}

	// An unprovisioned rating record is a precondition failure; it is
	// surfaced, never defaulted.
	if _, err := s.ratings.GetUserRating(ctx, username); err != nil {
		if errors.Is(err, store.ErrRatingNotFound) {
			return nil, err
		}
		return nil, NewServiceError("similar_batch", "failed to load rating", err)
	}

	solved, err := s.rounds.GetSolved(ctx, username)
	if err != nil {
		return nil, NewServiceError("similar_batch", "failed to load solved history", err)
	}

	tracker := newHistoryTracker(solved)
	results := make([]domain.Puzzle, len(lastBatch))

	// Fan out one lookup per batch item. results[i] replaces
	// lastBatch[i]; any failed item fails the whole batch.
	g, gctx := errgroup.WithContext(ctx)
	for i, puzzle := range lastBatch {
		g.Go(func() error {
			replacement, err := s.similarPuzzle(gctx, log, puzzle, tracker)
			if err != nil {
				return err
			}
			results[i] = *replacement
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("similar batch generation failed",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return nil, NewServiceError("similar_batch", "failed to resolve batch item", err)
	}

	if err := s.persistRound(ctx, username, tracker, results); err != nil {
		log.Error("failed to persist round",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return nil, NewServiceError("similar_batch", "failed to persist round", err)
	}

	log.Debug("generated similar batch",
		slog.String("username", username),
		slog.Int("size", len(results)))

	return results, nil
}

// similarPuzzle chooses the replacement for one batch item: first
// unsolved candidate from the puzzle's similarity cache, else the
// oldest solved candidate recycled out of the history, else the puzzle
// itself.
func (s *serviceImpl) similarPuzzle(
	ctx context.Context,
	log *slog.Logger,
	puzzle domain.Puzzle,
	tracker *historyTracker,
) (*domain.Puzzle, error) {
	entry, err := s.getOrCompute(ctx, log, puzzle)
	if err != nil {
		return nil, err
	}

	id, ok := tracker.Claim(entry.Candidates)
	if !ok {
		// The whole cache has been solved. Re-surface the oldest solved
		// puzzle that the cache considers topically relevant.
		cacheSet := make(map[string]struct{}, len(entry.Candidates))
		for _, candidateID := range entry.Candidates {
			cacheSet[candidateID] = struct{}{}
		}
		id, ok = tracker.RecycleOldest(cacheSet)
	}
	if !ok {
		// No overlap between solved history and the cache either; keep
		// the original puzzle rather than inventing a substitute.
		log.Debug("cache exhausted with no recyclable candidate",
			slog.String("puzzle_id", puzzle.PuzzleID))
		return &puzzle, nil
	}

	return s.puzzles.GetByID(ctx, id)
}

// getOrCompute returns the puzzle's similarity cache entry, computing
// and persisting it on first sight. InsertIfAbsent keeps the entry
// unique per puzzle ID under concurrent misses.
func (s *serviceImpl) getOrCompute(
	ctx context.Context,
	log *slog.Logger,
	puzzle domain.Puzzle,
) (*domain.SimilarityCache, error) {
	entry, err := s.similarities.Get(ctx, puzzle.PuzzleID)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, store.ErrSimilarityNotFound) {
		return nil, fmt.Errorf("failed to load similarity cache: %w", err)
	}

	computeCtx, cancel := context.WithTimeout(ctx, s.params.ComputeTimeout)
	defer cancel()

	candidates, err := s.computeCandidates(computeCtx, log, puzzle)
	if err != nil {
		return nil, fmt.Errorf("failed to compute similarity candidates: %w", err)
	}

	return s.similarities.InsertIfAbsent(ctx, &domain.SimilarityCache{
		PuzzleID:   puzzle.PuzzleID,
		Candidates: candidates,
	})
}

// persistRound writes the grown solved history and the new batch in one
// transaction under the user's row lock, merging this request's changes
// into the history as currently stored so a concurrent request's
// appends survive.
func (s *serviceImpl) persistRound(
	ctx context.Context,
	username string,
	tracker *historyTracker,
	results []domain.Puzzle,
) error {
	return s.transact(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return persistRoundTx(ctx, s.rounds.WithTx(tx), username, tracker, results)
	})
}

// persistRoundTx runs the locked merge-and-write against a
// transaction-bound store.
func persistRoundTx(
	ctx context.Context,
	txRounds store.RoundStore,
	username string,
	tracker *historyTracker,
	results []domain.Puzzle,
) error {
	added, removed := tracker.Changes()

	current, err := txRounds.GetSolvedForUpdate(ctx, username)
	if err != nil {
		return err
	}

	if err := txRounds.SetSolved(ctx, username, mergeHistory(current, added, removed)); err != nil {
		return err
	}

	return txRounds.UpsertLastBatch(ctx, username, results)
}
