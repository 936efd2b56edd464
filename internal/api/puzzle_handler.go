package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/tactics-api/internal/api/shared"
	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/service/batch"
	"github.com/phrazzld/tactics-api/internal/service/review"
	"github.com/phrazzld/tactics-api/internal/store"
)

// PuzzleHandler handles puzzle delivery and answer recording.
type PuzzleHandler struct {
	batchService  batch.Service
	reviewService review.Service
	puzzleStore   store.PuzzleStore
	roundStore    store.RoundStore
}

// NewPuzzleHandler creates a new PuzzleHandler with the given dependencies.
func NewPuzzleHandler(
	batchService batch.Service,
	reviewService review.Service,
	puzzleStore store.PuzzleStore,
	roundStore store.RoundStore,
) *PuzzleHandler {
	return &PuzzleHandler{
		batchService:  batchService,
		reviewService: reviewService,
		puzzleStore:   puzzleStore,
		roundStore:    roundStore,
	}
}

// NextBatch handles GET /puzzle/batch. Users with no batch history get
// an empty batch, not an error.
func (h *PuzzleHandler) NextBatch(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsernameFromContext(w, r)
	if !ok {
		return
	}

	puzzles, err := h.batchService.NextBatch(r.Context(), username)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load batch")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toBatchResponse(puzzles))
}

// SimilarBatch handles GET /puzzle/batch/similar.
func (h *PuzzleHandler) SimilarBatch(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsernameFromContext(w, r)
	if !ok {
		return
	}

	puzzles, err := h.batchService.SimilarBatch(r.Context(), username)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate batch")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toBatchResponse(puzzles))
}

// NextReview handles GET /puzzle/review. Responds 204 when nothing is
// due for review.
func (h *PuzzleHandler) NextReview(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsernameFromContext(w, r)
	if !ok {
		return
	}

	puzzle, err := h.reviewService.NextReview(r.Context(), username)
	if err != nil {
		if errors.Is(err, review.ErrNoReviewDue) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		HandleAPIError(w, r, err, "Failed to load review")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toPuzzleResponse(*puzzle))
}

// RecordAnswer handles POST /puzzle/answer. A correct answer is also
// appended to the user's solved history, so batch generation stops
// offering the puzzle. The response carries the puzzle's own rating
// record, which the client-side rating update needs as the opponent.
func (h *PuzzleHandler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsernameFromContext(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	puzzle, err := h.puzzleStore.GetByID(r.Context(), req.PuzzleID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load puzzle")
		return
	}

	if err := h.reviewService.RecordAnswer(r.Context(), username, *puzzle, req.Correct); err != nil {
		HandleAPIError(w, r, err, "Failed to record answer")
		return
	}

	if req.Correct {
		if err := h.roundStore.AppendSolved(r.Context(), username, puzzle.PuzzleID); err != nil {
			HandleAPIError(w, r, err, "Failed to record solved puzzle")
			return
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AnswerResponse{
		Status:       "recorded",
		PuzzleRating: toRatingResponse(domain.PuzzleRating(puzzle)),
	})
}
