package batch

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/service/rating"
	"github.com/phrazzld/tactics-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPuzzleStore serves a fixed in-memory catalog.
type mockPuzzleStore struct {
	catalog map[string]domain.Puzzle
}

func newMockPuzzleStore(puzzles ...domain.Puzzle) *mockPuzzleStore {
	catalog := make(map[string]domain.Puzzle, len(puzzles))
	for _, p := range puzzles {
		catalog[p.PuzzleID] = p
	}
	return &mockPuzzleStore{catalog: catalog}
}

func (m *mockPuzzleStore) GetByID(_ context.Context, id string) (*domain.Puzzle, error) {
	p, ok := m.catalog[id]
	if !ok {
		return nil, store.ErrPuzzleNotFound
	}
	return &p, nil
}

func (m *mockPuzzleStore) FindInRatingWindow(
	_ context.Context,
	lo, hi float64,
	excludeIDs []string,
) ([]domain.Puzzle, error) {
	exclude := setOf(excludeIDs...)
	var out []domain.Puzzle
	for _, p := range m.catalog {
		if _, skip := exclude[p.PuzzleID]; skip {
			continue
		}
		if p.Rating > lo && p.Rating < hi {
			out = append(out, p)
		}
	}
	return out, nil
}

// mockSimilarityStore enforces the one-entry-per-puzzle invariant in
// memory and counts insert attempts.
type mockSimilarityStore struct {
	mu      sync.Mutex
	entries map[string]*domain.SimilarityCache
	inserts int
}

func newMockSimilarityStore() *mockSimilarityStore {
	return &mockSimilarityStore{entries: make(map[string]*domain.SimilarityCache)}
}

func (m *mockSimilarityStore) seed(puzzleID string, candidates ...string) {
	m.entries[puzzleID] = &domain.SimilarityCache{PuzzleID: puzzleID, Candidates: candidates}
}

func (m *mockSimilarityStore) Get(
	_ context.Context,
	puzzleID string,
) (*domain.SimilarityCache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[puzzleID]
	if !ok {
		return nil, store.ErrSimilarityNotFound
	}
	return entry, nil
}

func (m *mockSimilarityStore) InsertIfAbsent(
	_ context.Context,
	entry *domain.SimilarityCache,
) (*domain.SimilarityCache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if existing, ok := m.entries[entry.PuzzleID]; ok {
		return existing, nil
	}
	m.entries[entry.PuzzleID] = entry
	return entry, nil
}

// mockRoundStore keeps solved history and last batch in memory.
type mockRoundStore struct {
	mu      sync.Mutex
	solved  map[string][]string
	batches map[string][]domain.Puzzle
}

func newMockRoundStore() *mockRoundStore {
	return &mockRoundStore{
		solved:  make(map[string][]string),
		batches: make(map[string][]domain.Puzzle),
	}
}

func (m *mockRoundStore) GetSolved(_ context.Context, username string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.solved[username]...), nil
}

func (m *mockRoundStore) GetSolvedForUpdate(
	ctx context.Context,
	username string,
) ([]string, error) {
	return m.GetSolved(ctx, username)
}

func (m *mockRoundStore) SetSolved(_ context.Context, username string, solved []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.solved[username] = append([]string(nil), solved...)
	return nil
}

func (m *mockRoundStore) AppendSolved(_ context.Context, username, puzzleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.solved[username] = append(m.solved[username], puzzleID)
	return nil
}

func (m *mockRoundStore) GetLastBatch(
	_ context.Context,
	username string,
) ([]domain.Puzzle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Puzzle(nil), m.batches[username]...), nil
}

func (m *mockRoundStore) UpsertLastBatch(
	_ context.Context,
	username string,
	batch []domain.Puzzle,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[username] = append([]domain.Puzzle(nil), batch...)
	return nil
}

func (m *mockRoundStore) WithTx(_ *sql.Tx) store.RoundStore {
	return m
}

// stubRatingService serves a fixed rating record.
type stubRatingService struct {
	rating domain.Rating
	err    error
}

func (s *stubRatingService) GetUserRating(_ context.Context, _ string) (domain.Rating, error) {
	if s.err != nil {
		return domain.Rating{}, s.err
	}
	return s.rating, nil
}

func (s *stubRatingService) GetThemeRatings(
	_ context.Context,
	_ string,
	_ bool,
) (map[string]domain.Rating, error) {
	return nil, nil
}

func (s *stubRatingService) ProvisionUser(_ context.Context, _ string) (domain.Rating, error) {
	return s.rating, nil
}

func (s *stubRatingService) UpdateUserRating(_ context.Context, _ string, _ domain.Rating) error {
	return nil
}

func (s *stubRatingService) UpdateThemeRatings(
	_ context.Context,
	_ string,
	_ map[string]domain.Rating,
) error {
	return nil
}

func (s *stubRatingService) Params() rating.Params {
	return rating.DefaultParams()
}

type testEnv struct {
	svc          *serviceImpl
	puzzles      *mockPuzzleStore
	similarities *mockSimilarityStore
	rounds       *mockRoundStore
}

func newTestEnv(t *testing.T, catalog ...domain.Puzzle) *testEnv {
	t.Helper()

	env := &testEnv{
		puzzles:      newMockPuzzleStore(catalog...),
		similarities: newMockSimilarityStore(),
		rounds:       newMockRoundStore(),
	}
	env.svc = &serviceImpl{
		puzzles:      env.puzzles,
		similarities: env.similarities,
		rounds:       env.rounds,
		ratings:      &stubRatingService{rating: domain.DefaultRating()},
		params:       DefaultBatchParams(),
		logger:       slog.Default(),
	}
	env.svc.transact = func(ctx context.Context, fn store.TxFn) error {
		return fn(ctx, nil)
	}
	return env
}

func catalogPuzzle(id string, r float64, tags ...string) domain.Puzzle {
	return domain.Puzzle{PuzzleID: id, Rating: r, HierarchyTags: tags}
}

func TestNextBatch_NoHistoryIsEmpty(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	batch, err := env.svc.NextBatch(context.Background(), "magnus")
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestSimilarBatch_NoLastBatchIsEmpty(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	batch, err := env.svc.SimilarBatch(context.Background(), "magnus")
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestSimilarBatch_UnprovisionedRatingSurfaces(t *testing.T) {
	t.Parallel()

	p1 := catalogPuzzle("P1", 1500, "fork/knight")
	env := newTestEnv(t, p1)
	env.svc.ratings = &stubRatingService{err: store.ErrRatingNotFound}
	require.NoError(t, env.rounds.UpsertLastBatch(context.Background(), "magnus", []domain.Puzzle{p1}))

	_, err := env.svc.SimilarBatch(context.Background(), "magnus")
	assert.ErrorIs(t, err, store.ErrRatingNotFound)
}

func TestSimilarBatch_PicksFirstUnsolvedCandidate(t *testing.T) {
	t.Parallel()

	p1 := catalogPuzzle("P1", 1500, "fork/knight")
	p2 := catalogPuzzle("P2", 1510, "fork/queen")
	p4 := catalogPuzzle("P4", 1490, "pin/absolute")
	env := newTestEnv(t, p1, p2, p4)
	ctx := context.Background()

	require.NoError(t, env.rounds.UpsertLastBatch(ctx, "magnus", []domain.Puzzle{p1}))
	require.NoError(t, env.rounds.SetSolved(ctx, "magnus", []string{"P4", "P1"}))
	env.similarities.seed("P1", "P1", "P4", "P2")

	batch, err := env.svc.SimilarBatch(ctx, "magnus")
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "P2", batch[0].PuzzleID)

	solved, err := env.rounds.GetSolved(ctx, "magnus")
	require.NoError(t, err)
	assert.Equal(t, []string{"P4", "P1", "P2"}, solved)

	last, err := env.rounds.GetLastBatch(ctx, "magnus")
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "P2", last[0].PuzzleID)
}

func TestSimilarBatch_RecyclesOldestWhenCacheSolved(t *testing.T) {
	t.Parallel()

	p1 := catalogPuzzle("P1", 1500, "fork/knight")
	p4 := catalogPuzzle("P4", 1490, "fork/bishop")
	env := newTestEnv(t, p1, p4)
	ctx := context.Background()

	require.NoError(t, env.rounds.UpsertLastBatch(ctx, "magnus", []domain.Puzzle{p1}))
	require.NoError(t, env.rounds.SetSolved(ctx, "magnus", []string{"P4", "P1"}))
	env.similarities.seed("P1", "P1", "P4")

	batch, err := env.svc.SimilarBatch(ctx, "magnus")
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "P4", batch[0].PuzzleID, "oldest solved cache member is re-surfaced")

	solved, err := env.rounds.GetSolved(ctx, "magnus")
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, solved, "recycled id leaves the solved history")
}

func TestSimilarBatch_KeepsOriginalWhenRecyclingImpossible(t *testing.T) {
	t.Parallel()

	p1 := catalogPuzzle("P1", 1500, "fork/knight")
	env := newTestEnv(t, p1)
	ctx := context.Background()

	require.NoError(t, env.rounds.UpsertLastBatch(ctx, "magnus", []domain.Puzzle{p1}))
	env.similarities.seed("P1")

	batch, err := env.svc.SimilarBatch(ctx, "magnus")
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "P1", batch[0].PuzzleID)

	solved, err := env.rounds.GetSolved(ctx, "magnus")
	require.NoError(t, err)
	assert.Empty(t, solved, "terminal fallback does not touch the history")
}

func TestSimilarBatch_PositionalCorrespondence(t *testing.T) {
	t.Parallel()

	a := catalogPuzzle("A", 1500, "fork/knight")
	a2 := catalogPuzzle("A2", 1505, "fork/knight")
	b := catalogPuzzle("B", 1500, "pin/absolute")
	b2 := catalogPuzzle("B2", 1505, "pin/absolute")
	c := catalogPuzzle("C", 1500, "skewer/queen")
	c2 := catalogPuzzle("C2", 1505, "skewer/queen")
	env := newTestEnv(t, a, a2, b, b2, c, c2)
	ctx := context.Background()

	require.NoError(t, env.rounds.UpsertLastBatch(ctx, "magnus", []domain.Puzzle{a, b, c}))
	env.similarities.seed("A", "A2")
	env.similarities.seed("B", "B2")
	env.similarities.seed("C", "C2")

	batch, err := env.svc.SimilarBatch(ctx, "magnus")
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "A2", batch[0].PuzzleID)
	assert.Equal(t, "B2", batch[1].PuzzleID)
	assert.Equal(t, "C2", batch[2].PuzzleID)
}

func TestSimilarBatch_OneFailedItemFailsBatch(t *testing.T) {
	t.Parallel()

	a := catalogPuzzle("A", 1500, "fork/knight")
	a2 := catalogPuzzle("A2", 1505, "fork/knight")
	b := catalogPuzzle("B", 1500, "pin/absolute")
	env := newTestEnv(t, a, a2, b)
	ctx := context.Background()

	require.NoError(t, env.rounds.UpsertLastBatch(ctx, "magnus", []domain.Puzzle{a, b}))
	env.similarities.seed("A", "A2")
	env.similarities.seed("B", "B-gone") // not in the catalog

	_, err := env.svc.SimilarBatch(ctx, "magnus")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrPuzzleNotFound)
}

func TestGetOrCompute_ComputesOnMissAndPersists(t *testing.T) {
	t.Parallel()

	p1 := catalogPuzzle("P1", 1500, "fork/knight")
	p2 := catalogPuzzle("P2", 1510, "fork/knight")
	env := newTestEnv(t, p1, p2)

	entry, err := env.svc.getOrCompute(context.Background(), slog.Default(), p1)
	require.NoError(t, err)
	require.NotEmpty(t, entry.Candidates)
	assert.Equal(t, "P1", entry.Candidates[0], "entry leads with the puzzle's own id")
	assert.Contains(t, entry.Candidates, "P2")

	stored, err := env.similarities.Get(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, entry.Candidates, stored.Candidates)
}

func TestGetOrCompute_ConcurrentMissesYieldOneEntry(t *testing.T) {
	t.Parallel()

	p1 := catalogPuzzle("P1", 1500, "fork/knight")
	p2 := catalogPuzzle("P2", 1510, "fork/queen")
	env := newTestEnv(t, p1, p2)

	const workers = 8
	results := make([]*domain.SimilarityCache, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := env.svc.getOrCompute(context.Background(), slog.Default(), p1)
			if assert.NoError(t, err) {
				results[i] = entry
			}
		}()
	}
	wg.Wait()

	stored, err := env.similarities.Get(context.Background(), "P1")
	require.NoError(t, err)
	for _, entry := range results {
		require.NotNil(t, entry)
		assert.Equal(t, stored.Candidates, entry.Candidates,
			"every caller sees the single persisted entry")
	}
	assert.Len(t, env.similarities.entries, 1)
}
