package review

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/domain/leitner"
	"github.com/phrazzld/tactics-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLeitnerStore is an in-memory store.LeitnerStore for service tests.
type mockLeitnerStore struct {
	states map[string]*leitner.Instance
	getErr error
}

func newMockLeitnerStore() *mockLeitnerStore {
	return &mockLeitnerStore{states: make(map[string]*leitner.Instance)}
}

func (m *mockLeitnerStore) clone(username string) (*leitner.Instance, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	instance, ok := m.states[username]
	if !ok {
		return nil, store.ErrLeitnerNotFound
	}
	copied := &leitner.Instance{
		BoxA: append([]domain.Puzzle(nil), instance.BoxA...),
		BoxB: append([]domain.Puzzle(nil), instance.BoxB...),
	}
	return copied, nil
}

func (m *mockLeitnerStore) Get(_ context.Context, username string) (*leitner.Instance, error) {
	return m.clone(username)
}

func (m *mockLeitnerStore) GetForUpdate(
	_ context.Context,
	username string,
) (*leitner.Instance, error) {
	return m.clone(username)
}

func (m *mockLeitnerStore) Create(
	_ context.Context,
	username string,
	instance *leitner.Instance,
) error {
	if _, ok := m.states[username]; ok {
		return store.ErrDuplicate
	}
	m.states[username] = instance
	return nil
}

func (m *mockLeitnerStore) Update(
	_ context.Context,
	username string,
	instance *leitner.Instance,
) error {
	if _, ok := m.states[username]; !ok {
		return store.ErrLeitnerNotFound
	}
	m.states[username] = instance
	return nil
}

func (m *mockLeitnerStore) WithTx(_ *sql.Tx) store.LeitnerStore {
	return m
}

func puzzle(id string) domain.Puzzle {
	return domain.Puzzle{PuzzleID: id, Rating: 1500}
}

func newTestService(states store.LeitnerStore, draw func() float64) *serviceImpl {
	return &serviceImpl{
		states: states,
		draw:   draw,
		logger: slog.Default(),
	}
}

func TestNextReview_NoStateMeansNoReviewDue(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockLeitnerStore(), func() float64 { return 0 })

	_, err := svc.NextReview(context.Background(), "magnus")
	assert.ErrorIs(t, err, ErrNoReviewDue)
}

func TestNextReview_EmptyBoxesMeansNoReviewDue(t *testing.T) {
	t.Parallel()

	states := newMockLeitnerStore()
	states.states["magnus"] = &leitner.Instance{}

	svc := newTestService(states, func() float64 { return 0 })

	_, err := svc.NextReview(context.Background(), "magnus")
	assert.ErrorIs(t, err, ErrNoReviewDue)
}

func TestNextReview_DrawSelectsBox(t *testing.T) {
	t.Parallel()

	states := newMockLeitnerStore()
	states.states["magnus"] = &leitner.Instance{
		BoxA: []domain.Puzzle{puzzle("A1")},
		BoxB: []domain.Puzzle{puzzle("B1")},
	}

	ctx := context.Background()

	fromA, err := newTestService(states, func() float64 { return 0.0 }).NextReview(ctx, "magnus")
	require.NoError(t, err)
	assert.Equal(t, "A1", fromA.PuzzleID)

	fromB, err := newTestService(states, func() float64 { return 0.99 }).NextReview(ctx, "magnus")
	require.NoError(t, err)
	assert.Equal(t, "B1", fromB.PuzzleID)
}

func TestNextReview_DoesNotConsume(t *testing.T) {
	t.Parallel()

	states := newMockLeitnerStore()
	states.states["magnus"] = &leitner.Instance{BoxA: []domain.Puzzle{puzzle("A1")}}

	svc := newTestService(states, func() float64 { return 0.0 })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := svc.NextReview(ctx, "magnus")
		require.NoError(t, err)
		assert.Equal(t, "A1", p.PuzzleID)
	}
	assert.Len(t, states.states["magnus"].BoxA, 1)
}

func TestApplyAnswer_IncorrectCreatesStateLazily(t *testing.T) {
	t.Parallel()

	states := newMockLeitnerStore()
	svc := newTestService(states, nil)
	ctx := context.Background()

	err := svc.applyAnswer(ctx, slog.Default(), states, "magnus", puzzle("P1"), false)
	require.NoError(t, err)

	instance, ok := states.states["magnus"]
	require.True(t, ok)
	require.Len(t, instance.BoxA, 1)
	assert.Equal(t, "P1", instance.BoxA[0].PuzzleID)
	assert.Empty(t, instance.BoxB)
}

func TestApplyAnswer_CorrectWithoutStateIsNoOp(t *testing.T) {
	t.Parallel()

	states := newMockLeitnerStore()
	svc := newTestService(states, nil)

	err := svc.applyAnswer(
		context.Background(), slog.Default(), states, "magnus", puzzle("P1"), true)
	require.NoError(t, err)
	assert.Empty(t, states.states, "no state may be created for a correct answer")
}

func TestApplyAnswer_CorrectPromotesThroughBoxes(t *testing.T) {
	t.Parallel()

	states := newMockLeitnerStore()
	svc := newTestService(states, nil)
	ctx := context.Background()
	log := slog.Default()

	// Incorrect queues the puzzle in box A.
	require.NoError(t, svc.applyAnswer(ctx, log, states, "magnus", puzzle("P1"), false))

	// First correct answer promotes it to box B.
	require.NoError(t, svc.applyAnswer(ctx, log, states, "magnus", puzzle("P1"), true))
	instance := states.states["magnus"]
	assert.Empty(t, instance.BoxA)
	require.Len(t, instance.BoxB, 1)
	assert.Equal(t, "P1", instance.BoxB[0].PuzzleID)

	// Second correct answer retires it.
	require.NoError(t, svc.applyAnswer(ctx, log, states, "magnus", puzzle("P1"), true))
	instance = states.states["magnus"]
	assert.Empty(t, instance.BoxA)
	assert.Empty(t, instance.BoxB)
}

func TestApplyAnswer_StoreFailurePropagates(t *testing.T) {
	t.Parallel()

	states := newMockLeitnerStore()
	states.getErr = assert.AnError
	svc := newTestService(states, nil)

	err := svc.applyAnswer(
		context.Background(), slog.Default(), states, "magnus", puzzle("P1"), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
