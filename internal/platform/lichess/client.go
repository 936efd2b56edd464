// Package lichess provides the external provisional-rating source used
// to seed newly registered users. Only public per-user puzzle
// performance data is fetched; volatility is not published, so the
// default is substituted.
package lichess

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/tactics-api/internal/config"
	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/platform/logger"
)

// Client fetches provisional ratings from the public user API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a rating client from catalog configuration.
// If log is nil, a default logger will be used.
func NewClient(cfg config.CatalogConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL: cfg.RatingURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: log.With(slog.String("component", "lichess_client")),
	}
}

// userResponse is the subset of the public user payload we consume.
type userResponse struct {
	Perfs struct {
		Puzzle *struct {
			Games  int     `json:"games"`
			Rating float64 `json:"rating"`
			RD     float64 `json:"rd"`
		} `json:"puzzle"`
	} `json:"perfs"`
}

// FetchRating retrieves the user's puzzle rating from the external
// platform. Users with no puzzle history (or unknown to the platform)
// get the default provisional rating; transport and decode failures are
// returned to the caller.
func (c *Client) FetchRating(ctx context.Context, username string) (domain.Rating, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	url := fmt.Sprintf("%s/%s", c.baseURL, username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("failed to build rating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("failed to fetch external rating: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn("failed to close response body", slog.String("error", closeErr.Error()))
		}
	}()

	// Unknown users are provisional, not an error.
	if resp.StatusCode == http.StatusNotFound {
		log.Debug("user unknown to external platform, using default rating",
			slog.String("username", username))
		return domain.DefaultRating(), nil
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Rating{}, fmt.Errorf(
			"external rating request failed with status %d", resp.StatusCode)
	}

	var payload userResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Rating{}, fmt.Errorf("failed to decode external rating: %w", err)
	}

	// No puzzle history yet: use the default provisional rating.
	if payload.Perfs.Puzzle == nil {
		return domain.DefaultRating(), nil
	}

	return domain.Rating{
		Rating:          payload.Perfs.Puzzle.Rating,
		RatingDeviation: payload.Perfs.Puzzle.RD,
		Volatility:      domain.DefaultVolatility, // not published by the platform
		NumberOfResults: payload.Perfs.Puzzle.Games,
	}, nil
}
