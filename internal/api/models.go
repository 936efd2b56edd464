package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/tactics-api/internal/domain"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// Username the token was issued for
	Username string `json:"username"`

	// Token is the JWT used for API authorization
	Token string `json:"token"`
}

// AnswerRequest defines the payload for the answer recording endpoint.
type AnswerRequest struct {
	PuzzleID string `json:"puzzle_id" validate:"required"`
	Correct  bool   `json:"correct"`
}

// AnswerResponse acknowledges a recorded answer. PuzzleRating is the
// puzzle's own rating record, derived from the catalog entry; the
// client's rating update uses it as the opponent rating.
type AnswerResponse struct {
	Status       string         `json:"status"`
	PuzzleRating RatingResponse `json:"puzzle_rating"`
}

// PuzzleResponse is the wire form of one catalog puzzle.
type PuzzleResponse struct {
	PuzzleID        string   `json:"puzzle_id"`
	FEN             string   `json:"fen"`
	Moves           string   `json:"moves"`
	Rating          float64  `json:"rating"`
	RatingDeviation float64  `json:"rating_deviation"`
	PlayCount       int      `json:"play_count"`
	Themes          []string `json:"themes"`
	HierarchyTags   []string `json:"hierarchy_tags"`
}

// BatchResponse wraps a generated batch.
type BatchResponse struct {
	Puzzles []PuzzleResponse `json:"puzzles"`
}

// RatingPayload is the wire form of a submitted rating record.
type RatingPayload struct {
	Rating          float64 `json:"rating"            validate:"required,gt=0"`
	RatingDeviation float64 `json:"rating_deviation"  validate:"required,gt=0"`
	Volatility      float64 `json:"volatility"        validate:"required,gt=0"`
	NumberOfResults int     `json:"number_of_results" validate:"gte=0"`
}

// UpdateRatingRequest defines the payload for the rating update
// endpoint. The engine stores submitted records; the rating formula
// runs outside it.
type UpdateRatingRequest struct {
	Rating *RatingPayload           `json:"rating" validate:"required"`
	Themes map[string]RatingPayload `json:"themes" validate:"omitempty,dive"`
}

// RatingResponse is the wire form of one rating record.
type RatingResponse struct {
	Rating          float64 `json:"rating"`
	RatingDeviation float64 `json:"rating_deviation"`
	Volatility      float64 `json:"volatility"`
	NumberOfResults int     `json:"number_of_results"`
}

// ThemeRatingsResponse maps theme names to rating records.
type ThemeRatingsResponse struct {
	Themes map[string]RatingResponse `json:"themes"`
}

func toPuzzleResponse(p domain.Puzzle) PuzzleResponse {
	return PuzzleResponse{
		PuzzleID:        p.PuzzleID,
		FEN:             p.FEN,
		Moves:           p.Moves,
		Rating:          p.Rating,
		RatingDeviation: p.RatingDeviation,
		PlayCount:       p.PlayCount,
		Themes:          p.Themes,
		HierarchyTags:   p.HierarchyTags,
	}
}

func toBatchResponse(puzzles []domain.Puzzle) BatchResponse {
	out := BatchResponse{Puzzles: make([]PuzzleResponse, 0, len(puzzles))}
	for _, p := range puzzles {
		out.Puzzles = append(out.Puzzles, toPuzzleResponse(p))
	}
	return out
}

func toDomainRating(p RatingPayload) domain.Rating {
	return domain.Rating{
		Rating:          p.Rating,
		RatingDeviation: p.RatingDeviation,
		Volatility:      p.Volatility,
		NumberOfResults: p.NumberOfResults,
	}
}

func toRatingResponse(r domain.Rating) RatingResponse {
	return RatingResponse{
		Rating:          r.Rating,
		RatingDeviation: r.RatingDeviation,
		Volatility:      r.Volatility,
		NumberOfResults: r.NumberOfResults,
	}
}
