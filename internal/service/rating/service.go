package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/platform/logger"
	"github.com/phrazzld/tactics-api/internal/similarity"
	"github.com/phrazzld/tactics-api/internal/store"
)

// ServiceError is a custom error type for rating service errors.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rating service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("rating service %s failed: %s", e.Operation, e.Message)
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

// Source fetches a user's provisional rating from an external platform.
type Source interface {
	FetchRating(ctx context.Context, username string) (domain.Rating, error)
}

// Service provides rating-related operations.
type Service interface {
	// GetUserRating retrieves a user's overall rating record.
	// Returns store.ErrRatingNotFound if the user was never provisioned;
	// a missing record is a precondition failure, never defaulted.
	GetUserRating(ctx context.Context, username string) (domain.Rating, error)

	// GetThemeRatings returns the user's per-theme rating records.
	// With filterIrrelevant set, themes that carry no tactical signal
	// (length and phase buckets and the like) are dropped.
	GetThemeRatings(
		ctx context.Context,
		username string,
		filterIrrelevant bool,
	) (map[string]domain.Rating, error)

	// ProvisionUser creates the user's initial rating record from the
	// external rating source. Source failures are propagated, not
	// papered over with a default. Safe to race with itself: a
	// concurrent provision of the same user is not an error.
	ProvisionUser(ctx context.Context, username string) (domain.Rating, error)

	// UpdateUserRating replaces the user's overall rating record. The
	// update formula itself lives outside the engine; callers submit
	// already computed records. Returns store.ErrRatingNotFound if the
	// user was never provisioned.
	UpdateUserRating(ctx context.Context, username string, record domain.Rating) error

	// UpdateThemeRatings creates or replaces per-theme rating records.
	UpdateThemeRatings(ctx context.Context, username string, themes map[string]domain.Rating) error

	// Params returns the search window policy for candidate search.
	Params() Params
}

// serviceImpl implements the Service interface.
type serviceImpl struct {
	ratings store.RatingStore
	source  Source
	params  Params
	logger  *slog.Logger
}

// Ensure serviceImpl implements Service interface
var _ Service = (*serviceImpl)(nil)

// NewService creates a new rating Service.
// It returns an error if any of the required dependencies are nil.
func NewService(
	ratings store.RatingStore,
	source Source,
	params Params,
	logger *slog.Logger,
) (Service, error) {
	if ratings == nil {
		return nil, domain.NewValidationError("ratings", "cannot be nil", domain.ErrValidation)
	}
	if source == nil {
		return nil, domain.NewValidationError("source", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &serviceImpl{
		ratings: ratings,
		source:  source,
		params:  params,
		logger:  logger.With(slog.String("component", "rating_service")),
	}, nil
}

// GetUserRating implements Service.GetUserRating
func (s *serviceImpl) GetUserRating(ctx context.Context, username string) (domain.Rating, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	r, err := s.ratings.GetUserRating(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrRatingNotFound) {
			return domain.Rating{}, err
		}
		log.Error("failed to get user rating",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return domain.Rating{}, NewServiceError("get_user_rating", "failed to load rating", err)
	}

	return r, nil
}

// GetThemeRatings implements Service.GetThemeRatings
func (s *serviceImpl) GetThemeRatings(
	ctx context.Context,
	username string,
	filterIrrelevant bool,
) (map[string]domain.Rating, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	themes, err := s.ratings.GetThemeRatings(ctx, username)
	if err != nil {
		log.Error("failed to get theme ratings",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return nil, NewServiceError("get_theme_ratings", "failed to load theme ratings", err)
	}

	if !filterIrrelevant {
		return themes, nil
	}

	filtered := make(map[string]domain.Rating, len(themes))
	for theme, r := range themes {
		if similarity.IsIrrelevantTheme(theme) {
			continue
		}
		filtered[theme] = r
	}

	return filtered, nil
}

// ProvisionUser implements Service.ProvisionUser
func (s *serviceImpl) ProvisionUser(ctx context.Context, username string) (domain.Rating, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	r, err := s.source.FetchRating(ctx, username)
	if err != nil {
		// The source already maps unknown users and empty puzzle
		// history to the default record, so anything arriving here is
		// a genuine lookup failure and must reach the caller.
		log.Error("external rating fetch failed",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return domain.Rating{}, NewServiceError("provision_user", "failed to fetch external rating", err)
	}

	if err := s.ratings.CreateUserRating(ctx, username, r); err != nil {
		// A concurrent registration already provisioned this user;
		// the stored record wins.
		if store.IsDuplicateError(err) {
			return s.ratings.GetUserRating(ctx, username)
		}
		log.Error("failed to provision rating record",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return domain.Rating{}, NewServiceError("provision_user", "failed to save rating", err)
	}

	log.Debug("provisioned rating record",
		slog.String("username", username),
		slog.Float64("rating", r.Rating))

	return r, nil
}

// UpdateUserRating implements Service.UpdateUserRating
func (s *serviceImpl) UpdateUserRating(
	ctx context.Context,
	username string,
	record domain.Rating,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		return domain.NewValidationError("rating", err.Error(), domain.ErrValidation)
	}

	if err := s.ratings.UpdateUserRating(ctx, username, record); err != nil {
		if errors.Is(err, store.ErrRatingNotFound) {
			return err
		}
		log.Error("failed to update user rating",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return NewServiceError("update_user_rating", "failed to save rating", err)
	}

	log.Debug("updated user rating",
		slog.String("username", username),
		slog.Float64("rating", record.Rating))

	return nil
}

// UpdateThemeRatings implements Service.UpdateThemeRatings
func (s *serviceImpl) UpdateThemeRatings(
	ctx context.Context,
	username string,
	themes map[string]domain.Rating,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for theme, record := range themes {
		if err := record.Validate(); err != nil {
			return domain.NewValidationError(theme, err.Error(), domain.ErrValidation)
		}
	}

	for theme, record := range themes {
		if err := s.ratings.UpsertThemeRating(ctx, username, theme, record); err != nil {
			log.Error("failed to upsert theme rating",
				slog.String("username", username),
				slog.String("theme", theme),
				slog.String("error", err.Error()))
			return NewServiceError("update_theme_ratings", "failed to save theme rating", err)
		}
	}

	return nil
}

// Params implements Service.Params
func (s *serviceImpl) Params() Params {
	return s.params
}
