package batch

import "sync"

// historyTracker is the per-request view of one user's solved history.
// The concurrent per-item lookups all claim against it, so a puzzle
// chosen for item i can never be chosen again for item j in the same
// batch. It records what changed so the final persistence can merge
// those changes into the then-current stored history instead of
// overwriting a concurrent request's writes.
type historyTracker struct {
	mu sync.Mutex

	// history is the solved sequence, oldest first, as modified by this
	// request (recycled IDs removed).
	history []string

	// claimed holds every ID this request must not pick again: the
	// initial solved set plus everything chosen so far.
	claimed map[string]struct{}

	// added are the newly chosen IDs, in claim order.
	added []string

	// removed are the IDs recycled out of the history.
	removed map[string]struct{}
}

func newHistoryTracker(solved []string) *historyTracker {
	claimed := make(map[string]struct{}, len(solved))
	for _, id := range solved {
		claimed[id] = struct{}{}
	}
	return &historyTracker{
		history: append([]string(nil), solved...),
		claimed: claimed,
		removed: make(map[string]struct{}),
	}
}

// Claim returns the first candidate not yet solved or chosen by this
// request, marking it chosen. Returns false when every candidate is
// taken (the whole cache has been solved).
func (t *historyTracker) Claim(candidates []string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range candidates {
		if _, taken := t.claimed[id]; taken {
			continue
		}
		t.claimed[id] = struct{}{}
		t.added = append(t.added, id)
		return id, true
	}
	return "", false
}

// RecycleOldest scans the solved history oldest first for an ID in the
// exhausted cache's candidate set, removes it from the history, and
// returns it. The recycled ID stays claimed so no other item in this
// request picks it. Returns false when the history and the cache do not
// overlap.
func (t *historyTracker) RecycleOldest(cacheSet map[string]struct{}) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, id := range t.history {
		if _, ok := cacheSet[id]; !ok {
			continue
		}
		t.history = append(t.history[:i:i], t.history[i+1:]...)
		t.removed[id] = struct{}{}
		return id, true
	}
	return "", false
}

// Changes returns the request's additions (in claim order) and
// removals.
func (t *historyTracker) Changes() (added []string, removed map[string]struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	added = append([]string(nil), t.added...)
	removed = make(map[string]struct{}, len(t.removed))
	for id := range t.removed {
		removed[id] = struct{}{}
	}
	return added, removed
}

// mergeHistory applies one request's changes to the stored history as
// read under the row lock: removals first, then the newly chosen IDs
// appended in claim order, skipping any a concurrent request already
// persisted.
func mergeHistory(current []string, added []string, removed map[string]struct{}) []string {
	merged := make([]string, 0, len(current)+len(added))
	present := make(map[string]struct{}, len(current))
	for _, id := range current {
		if _, gone := removed[id]; gone {
			continue
		}
		merged = append(merged, id)
		present[id] = struct{}{}
	}
	for _, id := range added {
		if _, ok := present[id]; ok {
			continue
		}
		merged = append(merged, id)
		present[id] = struct{}{}
	}
	return merged
}
