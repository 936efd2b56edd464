package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tactics-api/internal/api"
	apiMiddleware "github.com/phrazzld/tactics-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.ratingService,
		app.jwtService,
		app.passwordHasher,
		app.passwordVerifier,
	)
	puzzleHandler := api.NewPuzzleHandler(
		app.batchService,
		app.reviewService,
		app.puzzleStore,
		app.roundStore,
	)
	ratingHandler := api.NewRatingHandler(app.ratingService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Puzzle endpoints
			r.Get("/puzzle/batch", puzzleHandler.NextBatch)
			r.Get("/puzzle/batch/similar", puzzleHandler.SimilarBatch)
			r.Get("/puzzle/review", puzzleHandler.NextReview)
			r.Post("/puzzle/answer", puzzleHandler.RecordAnswer)

			// Rating endpoints
			r.Get("/rating", ratingHandler.GetRating)
			r.Put("/rating", ratingHandler.UpdateRating)
			r.Get("/rating/themes", ratingHandler.GetThemeRatings)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
