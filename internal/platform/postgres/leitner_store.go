package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/domain/leitner"
	"github.com/phrazzld/tactics-api/internal/store"
)

// PostgresLeitnerStore implements the store.LeitnerStore interface
// using a PostgreSQL database as the storage backend. The two boxes are
// stored as JSONB arrays of full puzzle records so reviews can be served
// without catalog lookups.
type PostgresLeitnerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLeitnerStore creates a new PostgreSQL implementation of the LeitnerStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresLeitnerStore(db store.DBTX, logger *slog.Logger) *PostgresLeitnerStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresLeitnerStore{
		db:     db,
		logger: logger.With(slog.String("component", "leitner_store")),
	}
}

// Ensure PostgresLeitnerStore implements store.LeitnerStore interface
var _ store.LeitnerStore = (*PostgresLeitnerStore)(nil)

// WithTx implements store.LeitnerStore.WithTx
func (s *PostgresLeitnerStore) WithTx(tx *sql.Tx) store.LeitnerStore {
	return &PostgresLeitnerStore{
		db:     tx,
		logger: s.logger,
	}
}

// Get implements store.LeitnerStore.Get
func (s *PostgresLeitnerStore) Get(ctx context.Context, username string) (*leitner.Instance, error) {
	return s.get(ctx, username, false)
}

// GetForUpdate implements store.LeitnerStore.GetForUpdate
func (s *PostgresLeitnerStore) GetForUpdate(
	ctx context.Context,
	username string,
) (*leitner.Instance, error) {
	return s.get(ctx, username, true)
}

func (s *PostgresLeitnerStore) get(
	ctx context.Context,
	username string,
	forUpdate bool,
) (*leitner.Instance, error) {
	query := `SELECT box_a, box_b FROM leitner_states WHERE username = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var boxA, boxB []byte
	err := s.db.QueryRowContext(ctx, query, username).Scan(&boxA, &boxB)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrLeitnerNotFound
		}
		return nil, fmt.Errorf("failed to get leitner state: %w", MapError(err))
	}

	instance := &leitner.Instance{}
	if err := json.Unmarshal(boxA, &instance.BoxA); err != nil {
		return nil, fmt.Errorf("failed to decode box A: %w", err)
	}
	if err := json.Unmarshal(boxB, &instance.BoxB); err != nil {
		return nil, fmt.Errorf("failed to decode box B: %w", err)
	}

	return instance, nil
}

// Create implements store.LeitnerStore.Create
func (s *PostgresLeitnerStore) Create(
	ctx context.Context,
	username string,
	instance *leitner.Instance,
) error {
	boxA, boxB, err := encodeBoxes(instance)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO leitner_states (username, box_a, box_b, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err = s.db.ExecContext(ctx, query, username, boxA, boxB, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to create leitner state",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create leitner state: %w", MapError(err))
	}

	return nil
}

// Update implements store.LeitnerStore.Update
func (s *PostgresLeitnerStore) Update(
	ctx context.Context,
	username string,
	instance *leitner.Instance,
) error {
	boxA, boxB, err := encodeBoxes(instance)
	if err != nil {
		return err
	}

	query := `
		UPDATE leitner_states
		SET box_a = $1, box_b = $2, updated_at = $3
		WHERE username = $4
	`

	result, err := s.db.ExecContext(ctx, query, boxA, boxB, time.Now().UTC(), username)
	if err != nil {
		return fmt.Errorf("failed to update leitner state: %w", MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrLeitnerNotFound
	}

	return nil
}

// encodeBoxes marshals both boxes, normalizing nil slices to empty
// JSON arrays so decoded instances always carry non-nil boxes.
func encodeBoxes(instance *leitner.Instance) ([]byte, []byte, error) {
	boxA, err := json.Marshal(emptyIfNil(instance.BoxA))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode box A: %w", err)
	}
	boxB, err := json.Marshal(emptyIfNil(instance.BoxB))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode box B: %w", err)
	}
	return boxA, boxB, nil
}

func emptyIfNil(box []domain.Puzzle) []domain.Puzzle {
	if box == nil {
		return []domain.Puzzle{}
	}
	return box
}
