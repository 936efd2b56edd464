package store

import (
	"context"

	"github.com/phrazzld/tactics-api/internal/domain"
)

// RatingStore defines the interface for rating record persistence.
//
// User rating records are provisioned explicitly (at registration);
// a missing record is a precondition failure, never silently defaulted.
type RatingStore interface {
	// GetUserRating retrieves a user's overall rating record.
	// Returns ErrRatingNotFound if no record has been provisioned.
	GetUserRating(ctx context.Context, username string) (domain.Rating, error)

	// CreateUserRating provisions a user's overall rating record.
	// Returns ErrDuplicate if a record already exists for the username.
	CreateUserRating(ctx context.Context, username string, rating domain.Rating) error

	// UpdateUserRating replaces a user's overall rating record.
	// Returns ErrRatingNotFound if no record exists.
	UpdateUserRating(ctx context.Context, username string, rating domain.Rating) error

	// GetThemeRatings returns all per-theme rating records for the user,
	// keyed by theme name. Users with no theme records get an empty map.
	GetThemeRatings(ctx context.Context, username string) (map[string]domain.Rating, error)

	// UpsertThemeRating creates or replaces one per-theme rating record.
	UpsertThemeRating(ctx context.Context, username, theme string, rating domain.Rating) error
}
