package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tactics-api/internal/config"
	"github.com/phrazzld/tactics-api/internal/platform/lichess"
	"github.com/phrazzld/tactics-api/internal/platform/postgres"
	"github.com/phrazzld/tactics-api/internal/service/auth"
	"github.com/phrazzld/tactics-api/internal/service/batch"
	"github.com/phrazzld/tactics-api/internal/service/rating"
	"github.com/phrazzld/tactics-api/internal/service/review"
	"github.com/phrazzld/tactics-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore       store.UserStore
	ratingStore     store.RatingStore
	puzzleStore     store.PuzzleStore
	leitnerStore    store.LeitnerStore
	similarityStore store.SimilarityStore
	roundStore      store.RoundStore

	// Service interfaces
	jwtService       auth.JWTService
	passwordHasher   auth.PasswordHasher
	passwordVerifier auth.PasswordVerifier
	ratingService    rating.Service
	reviewService    review.Service
	batchService     batch.Service
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordHasher = auth.NewBcryptHasher(bcrypt.DefaultCost)
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Initialize stores
	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.ratingStore = postgres.NewPostgresRatingStore(db, logger)
	app.puzzleStore = postgres.NewPostgresPuzzleStore(db, logger)
	app.leitnerStore = postgres.NewPostgresLeitnerStore(db, logger)
	app.similarityStore = postgres.NewPostgresSimilarityStore(db, logger)
	app.roundStore = postgres.NewPostgresRoundStore(db, logger)

	// The external catalog seeds provisional ratings for new users.
	ratingSource := lichess.NewClient(cfg.Catalog, logger.With("component", "rating_source"))

	app.ratingService, err = rating.NewService(
		app.ratingStore,
		ratingSource,
		rating.DefaultParams(),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rating service: %w", err)
	}

	app.reviewService, err = review.NewService(db, app.leitnerStore, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create review service: %w", err)
	}

	app.batchService, err = batch.NewService(
		db,
		app.puzzleStore,
		app.similarityStore,
		app.roundStore,
		app.ratingService,
		batch.DefaultBatchParams(),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}

// setupDatabase establishes a connection to the database and configures
// connection pools. Returns the database connection if successful, or an
// error if the connection fails.
func setupDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}
