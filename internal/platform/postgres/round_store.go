package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/store"
)

// PostgresRoundStore implements the store.RoundStore interface
// using a PostgreSQL database as the storage backend. Solved histories
// and batches are JSONB documents keyed by username.
type PostgresRoundStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRoundStore creates a new PostgreSQL implementation of the RoundStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresRoundStore(db store.DBTX, logger *slog.Logger) *PostgresRoundStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRoundStore{
		db:     db,
		logger: logger.With(slog.String("component", "round_store")),
	}
}

// Ensure PostgresRoundStore implements store.RoundStore interface
var _ store.RoundStore = (*PostgresRoundStore)(nil)

// WithTx implements store.RoundStore.WithTx
func (s *PostgresRoundStore) WithTx(tx *sql.Tx) store.RoundStore {
	return &PostgresRoundStore{
		db:     tx,
		logger: s.logger,
	}
}

// GetSolved implements store.RoundStore.GetSolved
func (s *PostgresRoundStore) GetSolved(ctx context.Context, username string) ([]string, error) {
	return s.getSolved(ctx, username, false)
}

// GetSolvedForUpdate implements store.RoundStore.GetSolvedForUpdate
func (s *PostgresRoundStore) GetSolvedForUpdate(
	ctx context.Context,
	username string,
) ([]string, error) {
	return s.getSolved(ctx, username, true)
}

func (s *PostgresRoundStore) getSolved(
	ctx context.Context,
	username string,
	forUpdate bool,
) ([]string, error) {
	query := `SELECT solved FROM rounds WHERE username = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, username).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No record yet means an empty history, not an error.
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to get solved history: %w", MapError(err))
	}

	var solved []string
	if err := json.Unmarshal(raw, &solved); err != nil {
		return nil, fmt.Errorf("failed to decode solved history: %w", err)
	}
	if solved == nil {
		solved = []string{}
	}

	return solved, nil
}

// SetSolved implements store.RoundStore.SetSolved
func (s *PostgresRoundStore) SetSolved(
	ctx context.Context,
	username string,
	solved []string,
) error {
	if solved == nil {
		solved = []string{}
	}
	raw, err := json.Marshal(solved)
	if err != nil {
		return fmt.Errorf("failed to encode solved history: %w", err)
	}

	query := `
		INSERT INTO rounds (username, solved, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE
		SET solved = EXCLUDED.solved, updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query, username, raw, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to set solved history",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to set solved history: %w", MapError(err))
	}

	return nil
}

// AppendSolved implements store.RoundStore.AppendSolved
func (s *PostgresRoundStore) AppendSolved(
	ctx context.Context,
	username string,
	puzzleID string,
) error {
	query := `
		INSERT INTO rounds (username, solved, updated_at)
		VALUES ($1, jsonb_build_array($2::text), $3)
		ON CONFLICT (username) DO UPDATE
		SET solved = rounds.solved || jsonb_build_array($2::text),
		    updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, username, puzzleID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append solved puzzle: %w", MapError(err))
	}

	return nil
}

// GetLastBatch implements store.RoundStore.GetLastBatch
func (s *PostgresRoundStore) GetLastBatch(
	ctx context.Context,
	username string,
) ([]domain.Puzzle, error) {
	query := `SELECT batch FROM last_batches WHERE username = $1`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, username).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No batch history yet: a valid empty result.
			return []domain.Puzzle{}, nil
		}
		return nil, fmt.Errorf("failed to get last batch: %w", MapError(err))
	}

	var batch []domain.Puzzle
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode last batch: %w", err)
	}
	if batch == nil {
		batch = []domain.Puzzle{}
	}

	return batch, nil
}

// UpsertLastBatch implements store.RoundStore.UpsertLastBatch
func (s *PostgresRoundStore) UpsertLastBatch(
	ctx context.Context,
	username string,
	batch []domain.Puzzle,
) error {
	if batch == nil {
		batch = []domain.Puzzle{}
	}
	raw, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	query := `
		INSERT INTO last_batches (username, batch, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE
		SET batch = EXCLUDED.batch, updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query, username, raw, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to upsert last batch",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to upsert last batch: %w", MapError(err))
	}

	return nil
}
