// Package review persists per-user spaced repetition state and serves
// due reviews from it. Box transitions themselves live in
// internal/domain/leitner; this service owns loading, locking, and
// saving the state around them.
package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/domain/leitner"
	"github.com/phrazzld/tactics-api/internal/platform/logger"
	"github.com/phrazzld/tactics-api/internal/store"
)

// ErrNoReviewDue indicates the user has nothing queued for review,
// either because they have no state yet or both boxes are empty.
var ErrNoReviewDue = errors.New("no review due")

// ServiceError is a custom error type for review service errors.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("review service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("review service %s failed: %s", e.Operation, e.Message)
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

// Service provides review scheduling operations.
type Service interface {
	// NextReview returns a due puzzle drawn from the user's boxes.
	// Returns ErrNoReviewDue when nothing is queued. The read does not
	// consume the puzzle; only RecordAnswer moves it.
	NextReview(ctx context.Context, username string) (*domain.Puzzle, error)

	// RecordAnswer applies one answer to the user's state. Incorrect
	// answers queue the puzzle for review; correct answers promote it
	// through the boxes (and out of them). Users with no state get one
	// created lazily on their first incorrect answer.
	RecordAnswer(ctx context.Context, username string, puzzle domain.Puzzle, correct bool) error
}

// serviceImpl implements the Service interface.
type serviceImpl struct {
	db     *sql.DB
	states store.LeitnerStore
	draw   func() float64
	logger *slog.Logger
}

// Ensure serviceImpl implements Service interface
var _ Service = (*serviceImpl)(nil)

// NewService creates a new review Service.
// The draw function controls box sampling and is injectable for tests;
// nil means rand.Float64. It returns an error if db or states is nil.
func NewService(
	db *sql.DB,
	states store.LeitnerStore,
	draw func() float64,
	logger *slog.Logger,
) (Service, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if states == nil {
		return nil, domain.NewValidationError("states", "cannot be nil", domain.ErrValidation)
	}
	if draw == nil {
		draw = rand.Float64
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &serviceImpl{
		db:     db,
		states: states,
		draw:   draw,
		logger: logger.With(slog.String("component", "review_service")),
	}, nil
}

// NextReview implements Service.NextReview
func (s *serviceImpl) NextReview(ctx context.Context, username string) (*domain.Puzzle, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	instance, err := s.states.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrLeitnerNotFound) {
			return nil, ErrNoReviewDue
		}
		log.Error("failed to load review state",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return nil, NewServiceError("next_review", "failed to load state", err)
	}

	puzzle := instance.NextReview(s.draw)
	if puzzle == nil {
		return nil, ErrNoReviewDue
	}

	log.Debug("serving review",
		slog.String("username", username),
		slog.String("puzzle_id", puzzle.PuzzleID))

	return puzzle, nil
}

// RecordAnswer implements Service.RecordAnswer
// The read-modify-write runs under the user's row lock so concurrent
// answers never lose box transitions.
func (s *serviceImpl) RecordAnswer(
	ctx context.Context,
	username string,
	puzzle domain.Puzzle,
	correct bool,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.applyAnswer(ctx, log, s.states.WithTx(tx), username, puzzle, correct)
	})
}

// applyAnswer runs the locked read-modify-write against a
// transaction-bound store.
func (s *serviceImpl) applyAnswer(
	ctx context.Context,
	log *slog.Logger,
	txStates store.LeitnerStore,
	username string,
	puzzle domain.Puzzle,
	correct bool,
) error {
	instance, err := txStates.GetForUpdate(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrLeitnerNotFound) {
			log.Error("failed to lock review state",
				slog.String("username", username),
				slog.String("error", err.Error()))
			return NewServiceError("record_answer", "failed to load state", err)
		}

		// Correct answers on puzzles outside the boxes are no-ops;
		// don't create state just to record nothing.
		if correct {
			return nil
		}

		if err := txStates.Create(ctx, username, leitner.NewInstance(puzzle)); err != nil {
			log.Error("failed to create review state",
				slog.String("username", username),
				slog.String("error", err.Error()))
			return NewServiceError("record_answer", "failed to create state", err)
		}

		log.Debug("created review state",
			slog.String("username", username),
			slog.String("puzzle_id", puzzle.PuzzleID))
		return nil
	}

	if correct {
		instance.RecordCorrect(puzzle)
	} else {
		instance.RecordIncorrect(puzzle)
	}

	if err := txStates.Update(ctx, username, instance); err != nil {
		log.Error("failed to save review state",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return NewServiceError("record_answer", "failed to save state", err)
	}

	return nil
}
