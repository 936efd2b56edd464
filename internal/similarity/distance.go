// Package similarity provides the topical distance metric over
// hierarchical puzzle tags and the theme relevance classifier. Both are
// pure, deterministic functions: the similarity cache depends on
// Distance producing the same ordering for the same inputs on every
// call.
package similarity

import "strings"

// MaxDistance is returned for inputs with no usable tags and acts as
// the "worse than anything" starting bound for nearest-candidate scans.
const MaxDistance = 1_000_000.0

// tagSeparator splits the levels of a hierarchical tag,
// e.g. "endgame/rookEndgame".
const tagSeparator = "/"

// Distance computes the topical distance between two hierarchical tag
// sets. Lower is more similar; identical tag sets have distance 0.
//
// Each tag is a slash-separated path. The distance between two single
// tags is the number of path segments not shared by their common
// prefix, so "endgame/rookEndgame" vs "endgame/queenEndgame" scores 2
// while an exact match scores 0. The set distance sums, for every tag
// on each side, the distance to its closest counterpart on the other
// side, which keeps the metric symmetric.
//
// The scan short-circuits and returns MaxDistance as soon as the
// accumulated distance can be proven to exceed earlyExitBound, so
// callers holding a current minimum can skip hopeless candidates
// cheaply.
func Distance(tagsA, tagsB []string, earlyExitBound float64) float64 {
	if len(tagsA) == 0 || len(tagsB) == 0 {
		return MaxDistance
	}

	total := 0.0
	for _, tag := range tagsA {
		total += nearestTagDistance(tag, tagsB)
		if total >= earlyExitBound {
			return MaxDistance
		}
	}
	for _, tag := range tagsB {
		total += nearestTagDistance(tag, tagsA)
		if total >= earlyExitBound {
			return MaxDistance
		}
	}
	return total
}

// nearestTagDistance returns the smallest pairwise distance between tag
// and any member of tags.
func nearestTagDistance(tag string, tags []string) float64 {
	best := tagDistance(tag, tags[0])
	for _, other := range tags[1:] {
		if d := tagDistance(tag, other); d < best {
			best = d
			if best == 0 {
				break
			}
		}
	}
	return best
}

// tagDistance is the pairwise distance between two hierarchical tags:
// the count of path segments outside their common prefix.
func tagDistance(a, b string) float64 {
	if a == b {
		return 0
	}

	segsA := strings.Split(a, tagSeparator)
	segsB := strings.Split(b, tagSeparator)

	common := 0
	for common < len(segsA) && common < len(segsB) && segsA[common] == segsB[common] {
		common++
	}
	return float64(len(segsA) + len(segsB) - 2*common)
}
