package lichess

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/tactics-api/internal/config"
	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.CatalogConfig{
		RatingURL:      server.URL,
		TimeoutSeconds: 5,
	}, nil)
}

func TestFetchRating_WithPuzzleHistory(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/magnus", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"perfs":{"puzzle":{"games":120,"rating":2100,"rd":80}}}`))
	})

	rating, err := client.FetchRating(context.Background(), "magnus")
	require.NoError(t, err)

	assert.Equal(t, 2100.0, rating.Rating)
	assert.Equal(t, 80.0, rating.RatingDeviation)
	assert.Equal(t, domain.DefaultVolatility, rating.Volatility)
	assert.Equal(t, 120, rating.NumberOfResults)
}

func TestFetchRating_NoPuzzleHistory(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"perfs":{"blitz":{"games":3,"rating":1400}}}`))
	})

	rating, err := client.FetchRating(context.Background(), "magnus")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultRating(), rating)
}

func TestFetchRating_UnknownUser(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rating, err := client.FetchRating(context.Background(), "nobody")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultRating(), rating)
}

func TestFetchRating_ServerError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchRating(context.Background(), "magnus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestFetchRating_MalformedPayload(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"perfs":`))
	})

	_, err := client.FetchRating(context.Background(), "magnus")
	require.Error(t, err)
}
