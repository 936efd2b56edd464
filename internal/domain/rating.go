package domain

import "errors"

// Rating-specific validation errors
var (
	// ErrRatingOutOfRange is returned when a rating value is not positive.
	ErrRatingOutOfRange = errors.New("rating must be positive")

	// ErrDeviationOutOfRange is returned when a rating deviation is not positive.
	ErrDeviationOutOfRange = errors.New("rating deviation must be positive")

	// ErrNegativeResults is returned when the result counter is negative.
	ErrNegativeResults = errors.New("number of results cannot be negative")
)

// Default provisional rating values for entities with no recorded results.
const (
	DefaultRatingValue     = 1500.0
	DefaultRatingDeviation = 350.0
	DefaultVolatility      = 0.09
)

// Rating is a Glicko-2 style skill estimate for a subject: a user, a
// puzzle, or a per-user theme. The update formula itself lives outside
// the engine; the engine only stores, retrieves and compares records.
type Rating struct {
	Rating          float64 `json:"rating"`
	RatingDeviation float64 `json:"rating_deviation"`
	Volatility      float64 `json:"volatility"`
	NumberOfResults int     `json:"number_of_results"`
}

// DefaultRating returns the fixed provisional rating assigned to any
// subject before it has recorded results.
func DefaultRating() Rating {
	return Rating{
		Rating:          DefaultRatingValue,
		RatingDeviation: DefaultRatingDeviation,
		Volatility:      DefaultVolatility,
		NumberOfResults: 0,
	}
}

// PuzzleRating derives a rating record from a catalog puzzle. The
// catalog does not publish volatility, so the default is substituted.
func PuzzleRating(p *Puzzle) Rating {
	return Rating{
		Rating:          p.Rating,
		RatingDeviation: p.RatingDeviation,
		Volatility:      DefaultVolatility,
		NumberOfResults: p.PlayCount,
	}
}

// Validate checks if the Rating has valid data.
// Returns an error if any field fails validation.
func (r *Rating) Validate() error {
	if r.Rating <= 0 {
		return ErrRatingOutOfRange
	}

	if r.RatingDeviation <= 0 {
		return ErrDeviationOutOfRange
	}

	if r.NumberOfResults < 0 {
		return ErrNegativeResults
	}

	return nil
}
