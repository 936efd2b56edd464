package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/store"
)

// PostgresRatingStore implements the store.RatingStore interface
// using a PostgreSQL database as the storage backend.
type PostgresRatingStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRatingStore creates a new PostgreSQL implementation of the RatingStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresRatingStore(db store.DBTX, logger *slog.Logger) *PostgresRatingStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRatingStore{
		db:     db,
		logger: logger.With(slog.String("component", "rating_store")),
	}
}

// Ensure PostgresRatingStore implements store.RatingStore interface
var _ store.RatingStore = (*PostgresRatingStore)(nil)

// GetUserRating implements store.RatingStore.GetUserRating
func (s *PostgresRatingStore) GetUserRating(ctx context.Context, username string) (domain.Rating, error) {
	query := `
		SELECT rating, rating_deviation, volatility, number_of_results
		FROM ratings
		WHERE username = $1
	`

	var rating domain.Rating
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&rating.Rating,
		&rating.RatingDeviation,
		&rating.Volatility,
		&rating.NumberOfResults,
	)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return domain.Rating{}, store.ErrRatingNotFound
		}
		return domain.Rating{}, fmt.Errorf("failed to get user rating: %w", MapError(err))
	}

	return rating, nil
}

// CreateUserRating implements store.RatingStore.CreateUserRating
func (s *PostgresRatingStore) CreateUserRating(
	ctx context.Context,
	username string,
	rating domain.Rating,
) error {
	if err := rating.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO ratings (username, rating, rating_deviation, volatility, number_of_results, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		username,
		rating.Rating,
		rating.RatingDeviation,
		rating.Volatility,
		rating.NumberOfResults,
		time.Now().UTC(),
	)
	if err != nil {
		s.logger.Error("failed to create user rating",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create user rating: %w", MapError(err))
	}

	return nil
}

// UpdateUserRating implements store.RatingStore.UpdateUserRating
func (s *PostgresRatingStore) UpdateUserRating(
	ctx context.Context,
	username string,
	rating domain.Rating,
) error {
	if err := rating.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE ratings
		SET rating = $1, rating_deviation = $2, volatility = $3, number_of_results = $4, updated_at = $5
		WHERE username = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		rating.Rating,
		rating.RatingDeviation,
		rating.Volatility,
		rating.NumberOfResults,
		time.Now().UTC(),
		username,
	)
	if err != nil {
		return fmt.Errorf("failed to update user rating: %w", MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrRatingNotFound
	}

	return nil
}

// GetThemeRatings implements store.RatingStore.GetThemeRatings
func (s *PostgresRatingStore) GetThemeRatings(
	ctx context.Context,
	username string,
) (map[string]domain.Rating, error) {
	query := `
		SELECT theme, rating, rating_deviation, volatility, number_of_results
		FROM theme_ratings
		WHERE username = $1
	`

	rows, err := s.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query theme ratings: %w", MapError(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	ratings := make(map[string]domain.Rating)
	for rows.Next() {
		var theme string
		var rating domain.Rating
		if err := rows.Scan(
			&theme,
			&rating.Rating,
			&rating.RatingDeviation,
			&rating.Volatility,
			&rating.NumberOfResults,
		); err != nil {
			return nil, fmt.Errorf("failed to scan theme rating row: %w", err)
		}
		ratings[theme] = rating
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate theme ratings: %w", MapError(err))
	}

	return ratings, nil
}

// UpsertThemeRating implements store.RatingStore.UpsertThemeRating
func (s *PostgresRatingStore) UpsertThemeRating(
	ctx context.Context,
	username, theme string,
	rating domain.Rating,
) error {
	if err := rating.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO theme_ratings (username, theme, rating, rating_deviation, volatility, number_of_results)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username, theme) DO UPDATE
		SET rating = EXCLUDED.rating,
		    rating_deviation = EXCLUDED.rating_deviation,
		    volatility = EXCLUDED.volatility,
		    number_of_results = EXCLUDED.number_of_results
	`

	_, err := s.db.ExecContext(ctx, query,
		username,
		theme,
		rating.Rating,
		rating.RatingDeviation,
		rating.Volatility,
		rating.NumberOfResults,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert theme rating: %w", MapError(err))
	}

	return nil
}
