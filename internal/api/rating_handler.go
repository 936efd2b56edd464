package api

import (
	"net/http"

	"github.com/phrazzld/tactics-api/internal/api/shared"
	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/service/rating"
)

// RatingHandler handles rating lookup API requests.
type RatingHandler struct {
	ratingService rating.Service
}

// NewRatingHandler creates a new RatingHandler with the given dependencies.
func NewRatingHandler(ratingService rating.Service) *RatingHandler {
	return &RatingHandler{
		ratingService: ratingService,
	}
}

// GetRating handles GET /rating. An unprovisioned user gets 404, never
// a silently substituted default.
func (h *RatingHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsernameFromContext(w, r)
	if !ok {
		return
	}

	record, err := h.ratingService.GetUserRating(r.Context(), username)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load rating")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toRatingResponse(record))
}

// UpdateRating handles PUT /rating. The caller submits the rating
// records its update formula produced; the overall record is replaced
// and any per-theme records are upserted.
func (h *RatingHandler) UpdateRating(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsernameFromContext(w, r)
	if !ok {
		return
	}

	var req UpdateRatingRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	record := toDomainRating(*req.Rating)
	if err := h.ratingService.UpdateUserRating(r.Context(), username, record); err != nil {
		HandleAPIError(w, r, err, "Failed to update rating")
		return
	}

	if len(req.Themes) > 0 {
		themes := make(map[string]domain.Rating, len(req.Themes))
		for theme, payload := range req.Themes {
			themes[theme] = toDomainRating(payload)
		}
		if err := h.ratingService.UpdateThemeRatings(r.Context(), username, themes); err != nil {
			HandleAPIError(w, r, err, "Failed to update theme ratings")
			return
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toRatingResponse(record))
}

// GetThemeRatings handles GET /rating/themes. The optional
// ?filter=irrelevant query drops themes that carry no tactical signal.
func (h *RatingHandler) GetThemeRatings(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsernameFromContext(w, r)
	if !ok {
		return
	}

	filterIrrelevant := r.URL.Query().Get("filter") == "irrelevant"

	themes, err := h.ratingService.GetThemeRatings(r.Context(), username, filterIrrelevant)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load theme ratings")
		return
	}

	response := ThemeRatingsResponse{Themes: make(map[string]RatingResponse, len(themes))}
	for theme, record := range themes {
		response.Themes[theme] = toRatingResponse(record)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}
