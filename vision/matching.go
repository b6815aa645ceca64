package vision

import (
	"math"

	"ufobrain/graph"
)

// detection is a label-position pair: either a graph node (the label is
// known in advance) or a camera detection projected into the graph frame
// (the label, if any, is a hint from the detector and is not trusted).
type detection struct {
	label graph.Label
	pos   graph.Position
}

// pairing is one matched (expected-node-label, detection-index) result.
// detected is -1 when the expected node had no detection assigned to it.
type pairing struct {
	expected graph.Label
	detected int // index into the detections slice passed to assign, or -1
}

// assign matches expected node positions against detected positions by
// minimum sum-of-squared-distance: equal cardinality picks the best of all
// permutations; unequal cardinality enumerates every subset of the larger
// set before recursing into the equal-cardinality case. Both steps are
// intentionally left at their natural, unoptimized complexity - O(n!) for
// the permutation search and O(n! * k!) overall for the subset search -
// a known hotspot for small n, acceptable given the mission's node counts.
func assign(expected []detection, detected []detection) []pairing {
	if len(expected) == len(detected) {
		_, pairs := bestPermutationMatching(expected, detected)
		return pairs
	}
	return bestSubsetMatching(expected, detected)
}

// bestPermutationMatching requires len(a) == len(b). It tries every
// permutation of a against b in fixed order and keeps the minimum-cost
// pairing.
func bestPermutationMatching(a, b []detection) (float64, []pairing) {
	bestCost := math.Inf(1)
	var best []pairing

	permute(a, func(perm []detection) {
		cost := sumSquaredDistance(perm, b)
		if cost < bestCost {
			bestCost = cost
			best = zipPairings(perm, b)
		}
	})

	return bestCost, best
}

// bestSubsetMatching handles unequal-length expected/detected sets: it
// enumerates every subset of the larger set at the size of the smaller
// one, resolves each subset with bestPermutationMatching, and keeps the
// cheapest. Members of the larger set outside the winning subset are
// reported unmatched (detected: -1, or excluded for extra detections with
// no corresponding expected node).
func bestSubsetMatching(expected, detected []detection) []pairing {
	if len(expected) > len(detected) {
		bestCost := math.Inf(1)
		var best []pairing
		var bestSubset []detection

		subsets(expected, len(detected), func(subset []detection) {
			cost, pairs := bestPermutationMatching(subset, detected)
			if cost < bestCost {
				bestCost = cost
				best = pairs
				bestSubset = subset
			}
		})

		for _, e := range expected {
			if !containsLabel(bestSubset, e.label) {
				best = append(best, pairing{expected: e.label, detected: -1})
			}
		}
		return best
	}

	// More detections than expected nodes: enumerate subsets of the
	// detections instead, matching every expected node.
	bestCost := math.Inf(1)
	var best []pairing

	subsets(detected, len(expected), func(subset []detection) {
		cost, pairs := bestPermutationMatching(expected, subset)
		if cost < bestCost {
			bestCost = cost
			best = remapDetectedIndices(pairs, subset, detected)
		}
	})

	return best
}

func sumSquaredDistance(a, b []detection) float64 {
	var total float64
	for i := range a {
		dx := a[i].pos.X - b[i].pos.X
		dy := a[i].pos.Y - b[i].pos.Y
		total += dx*dx + dy*dy
	}
	return total
}

func zipPairings(expected, detected []detection) []pairing {
	pairs := make([]pairing, len(expected))
	for i, e := range expected {
		pairs[i] = pairing{expected: e.label, detected: indexOf(detected, detected[i])}
	}
	return pairs
}

// indexOf returns the position of target within all, by identity of its
// fields (detections carry no separate identity field).
func indexOf(all []detection, target detection) int {
	for i, d := range all {
		if d == target {
			return i
		}
	}
	return -1
}

func remapDetectedIndices(pairs []pairing, subset, all []detection) []pairing {
	remapped := make([]pairing, len(pairs))
	for i, p := range pairs {
		if p.detected < 0 {
			remapped[i] = p
			continue
		}
		remapped[i] = pairing{expected: p.expected, detected: indexOf(all, subset[p.detected])}
	}
	return remapped
}

func containsLabel(ds []detection, label graph.Label) bool {
	for _, d := range ds {
		if d.label == label {
			return true
		}
	}
	return false
}

// permute calls fn once per permutation of items, in the classic recursive
// (Heap's-algorithm-adjacent) order. O(n!) calls.
func permute(items []detection, fn func([]detection)) {
	perm := make([]detection, len(items))
	copy(perm, items)
	permuteRec(perm, 0, fn)
}

func permuteRec(items []detection, k int, fn func([]detection)) {
	if k == len(items) {
		cp := make([]detection, len(items))
		copy(cp, items)
		fn(cp)
		return
	}
	for i := k; i < len(items); i++ {
		items[k], items[i] = items[i], items[k]
		permuteRec(items, k+1, fn)
		items[k], items[i] = items[i], items[k]
	}
}

// subsets calls fn once per size-k subset of items, in combination order.
func subsets(items []detection, k int, fn func([]detection)) {
	if k <= 0 || k > len(items) {
		return
	}
	combo := make([]detection, 0, k)
	subsetsRec(items, k, 0, combo, fn)
}

func subsetsRec(items []detection, k, start int, combo []detection, fn func([]detection)) {
	if len(combo) == k {
		cp := make([]detection, len(combo))
		copy(cp, combo)
		fn(cp)
		return
	}
	for i := start; i < len(items); i++ {
		subsetsRec(items, k, i+1, append(combo, items[i]), fn)
	}
}
