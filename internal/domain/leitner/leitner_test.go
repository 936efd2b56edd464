package leitner_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/tactics-api/internal/domain"
	"github.com/phrazzld/tactics-api/internal/domain/leitner"
)

func puzzle(id string) domain.Puzzle {
	return domain.Puzzle{
		PuzzleID: id,
		Rating:   1500,
	}
}

func ids(box []domain.Puzzle) []string {
	out := make([]string, 0, len(box))
	for _, p := range box {
		out = append(out, p.PuzzleID)
	}
	return out
}

// drawA always favors Box A, drawB always favors Box B.
func drawA() float64 { return 0.0 }
func drawB() float64 { return 0.99 }

func TestNewInstance(t *testing.T) {
	inst := leitner.NewInstance(puzzle("P9"))

	assert.Equal(t, []string{"P9"}, ids(inst.BoxA))
	assert.Empty(t, inst.BoxB)
}

func TestRecordIncorrect(t *testing.T) {
	tests := []struct {
		name      string
		boxA      []string
		boxB      []string
		answer    string
		wantBoxA  []string
		wantBoxB  []string
	}{
		{
			name:     "untracked puzzle lands at front of box A",
			boxA:     []string{"P3", "P2"},
			boxB:     []string{"P5"},
			answer:   "P7",
			wantBoxA: []string{"P7", "P3", "P2"},
			wantBoxB: []string{"P5"},
		},
		{
			name:     "box A member moves to front",
			boxA:     []string{"P3", "P2"},
			boxB:     nil,
			answer:   "P2",
			wantBoxA: []string{"P2", "P3"},
			wantBoxB: []string{},
		},
		{
			name:     "box B member is demoted to box A",
			boxA:     []string{"P3"},
			boxB:     []string{"P5", "P6"},
			answer:   "P5",
			wantBoxA: []string{"P5", "P3"},
			wantBoxB: []string{"P6"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := instanceFrom(tt.boxA, tt.boxB)
			inst.RecordIncorrect(puzzle(tt.answer))

			assert.Equal(t, tt.wantBoxA, ids(inst.BoxA))
			assert.Equal(t, tt.wantBoxB, ids(inst.BoxB))
		})
	}
}

func TestRecordCorrect(t *testing.T) {
	tests := []struct {
		name     string
		boxA     []string
		boxB     []string
		answer   string
		wantBoxA []string
		wantBoxB []string
	}{
		{
			name:     "box A member is promoted to front of box B",
			boxA:     []string{"P3", "P2"},
			boxB:     []string{"P5"},
			answer:   "P2",
			wantBoxA: []string{"P3"},
			wantBoxB: []string{"P2", "P5"},
		},
		{
			name:     "box B member is retired entirely",
			boxA:     []string{"P3"},
			boxB:     []string{"P5", "P6"},
			answer:   "P6",
			wantBoxA: []string{"P3"},
			wantBoxB: []string{"P5"},
		},
		{
			name:     "untracked puzzle leaves state unchanged",
			boxA:     []string{"P3"},
			boxB:     []string{"P5"},
			answer:   "P8",
			wantBoxA: []string{"P3"},
			wantBoxB: []string{"P5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := instanceFrom(tt.boxA, tt.boxB)
			inst.RecordCorrect(puzzle(tt.answer))

			assert.Equal(t, tt.wantBoxA, ids(inst.BoxA))
			assert.Equal(t, tt.wantBoxB, ids(inst.BoxB))
		})
	}
}

func TestComparisonIsByIDOnly(t *testing.T) {
	// The same puzzle fetched independently may carry different
	// incidental fields; transitions must still match it.
	inst := leitner.NewInstance(domain.Puzzle{PuzzleID: "P1", Rating: 1500, PlayCount: 10})

	refetched := domain.Puzzle{PuzzleID: "P1", Rating: 1512, PlayCount: 11}
	inst.RecordCorrect(refetched)

	assert.Empty(t, inst.BoxA)
	assert.Equal(t, []string{"P1"}, ids(inst.BoxB))
}

func TestBoxBoundHolds(t *testing.T) {
	inst := leitner.NewInstance(puzzle("P0"))

	for i := 1; i < 3*leitner.BoxLimit; i++ {
		inst.RecordIncorrect(puzzle(fmt.Sprintf("P%d", i)))
	}
	assert.Len(t, inst.BoxA, leitner.BoxLimit)

	// Newest entries survive truncation.
	assert.Equal(t, fmt.Sprintf("P%d", 3*leitner.BoxLimit-1), inst.BoxA[0].PuzzleID)
}

func TestNoPuzzleInBothBoxes(t *testing.T) {
	// Drive a random sequence of transitions and check the invariant
	// after every step.
	rng := rand.New(rand.NewSource(7))
	inst := leitner.NewInstance(puzzle("P0"))

	for step := 0; step < 500; step++ {
		p := puzzle(fmt.Sprintf("P%d", rng.Intn(30)))
		if rng.Intn(2) == 0 {
			inst.RecordIncorrect(p)
		} else {
			inst.RecordCorrect(p)
		}

		seen := make(map[string]bool)
		for _, boxed := range inst.BoxA {
			seen[boxed.PuzzleID] = true
		}
		for _, boxed := range inst.BoxB {
			require.False(t, seen[boxed.PuzzleID],
				"puzzle %s present in both boxes after step %d", boxed.PuzzleID, step)
		}

		require.LessOrEqual(t, len(inst.BoxA), leitner.BoxLimit)
		require.LessOrEqual(t, len(inst.BoxB), leitner.BoxLimit)
	}
}

func TestNextReview(t *testing.T) {
	tests := []struct {
		name   string
		boxA   []string
		boxB   []string
		draw   func() float64
		wantID string
		none   bool
	}{
		{
			name:   "draw favors box A",
			boxA:   []string{"P1", "P2"},
			boxB:   []string{"P3"},
			draw:   drawA,
			wantID: "P1",
		},
		{
			name:   "draw favors box B",
			boxA:   []string{"P1"},
			boxB:   []string{"P3", "P4"},
			draw:   drawB,
			wantID: "P3",
		},
		{
			name:   "favored box B empty falls back to box A",
			boxA:   []string{"P1"},
			boxB:   nil,
			draw:   drawB,
			wantID: "P1",
		},
		{
			name:   "favored box A empty falls back to box B",
			boxA:   nil,
			boxB:   []string{"P3"},
			draw:   drawA,
			wantID: "P3",
		},
		{
			name: "both boxes empty returns nil",
			boxA: nil,
			boxB: nil,
			draw: drawA,
			none: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := instanceFrom(tt.boxA, tt.boxB)
			got := inst.NextReview(tt.draw)

			if tt.none {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.PuzzleID)

			// Sampling must not remove the puzzle from its box.
			assert.Equal(t, tt.boxA, sliceOrNil(ids(inst.BoxA)))
			assert.Equal(t, tt.boxB, sliceOrNil(ids(inst.BoxB)))
		})
	}
}

func instanceFrom(boxA, boxB []string) *leitner.Instance {
	inst := &leitner.Instance{BoxA: []domain.Puzzle{}, BoxB: []domain.Puzzle{}}
	for _, id := range boxA {
		inst.BoxA = append(inst.BoxA, puzzle(id))
	}
	for _, id := range boxB {
		inst.BoxB = append(inst.BoxB, puzzle(id))
	}
	return inst
}

func sliceOrNil(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
