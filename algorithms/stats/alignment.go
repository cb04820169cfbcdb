package stats

import (
	"math"
	"sort"
)

// NearestIndex returns the index of the element of times closest to t, or -1
// when times is empty or the closest element is further than tolerance
// seconds away. times must be sorted ascending. On a tie the earlier element
// wins.
func NearestIndex(times []float64, t, tolerance float64) int {
	if len(times) == 0 {
		return -1
	}

	// first index with times[i] >= t
	i := sort.SearchFloat64s(times, t)

	best := -1
	bestDist := math.Inf(1)
	if i > 0 {
		best = i - 1
		bestDist = t - times[i-1]
	}
	if i < len(times) {
		if d := times[i] - t; d < bestDist {
			best = i
			bestDist = d
		}
	}

	if best < 0 || bestDist > tolerance {
		return -1
	}
	return best
}

// MatchPair links an index in the reference series to its nearest neighbour
// in the recording series.
type MatchPair struct {
	Reference int
	Recording int
}

// MatchNearest pairs every reference time with its nearest recording time
// within tolerance. Unmatched references are skipped. Several references may
// share a recording index.
func MatchNearest(reference, recording []float64, tolerance float64) []MatchPair {
	pairs := make([]MatchPair, 0, len(reference))
	for i, t := range reference {
		if j := NearestIndex(recording, t, tolerance); j >= 0 {
			pairs = append(pairs, MatchPair{Reference: i, Recording: j})
		}
	}
	return pairs
}
