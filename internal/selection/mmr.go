// Package selection picks a diverse top-K subset of scored candidates using
// Maximal Marginal Relevance.
package selection

import (
	"github.com/jonathan/bullet-ranker/internal/ranking"
)

// SelectMMR greedily selects up to k candidate indices, balancing each
// candidate's composite score against its similarity to already-selected
// candidates:
//
//	marginal = composite[i] - redundancyWeight * max(sim(i, selected))
//
// The first pick is the plain composite argmax. Ties always resolve to the
// lower original index, so identical inputs yield identical output.
// Fewer than k indices are returned when the pool is smaller.
func SelectMMR(composite []float64, embeddings [][]float64, k int, redundancyWeight float64) ([]int, error) {
	n := len(composite)
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	selected := make([]int, 0, k)
	picked := make([]bool, n)
	// maxSim[i] tracks the highest similarity between candidate i and any
	// selected candidate, updated incrementally after each pick.
	maxSim := make([]float64, n)

	for len(selected) < k {
		best := -1
		bestMarginal := 0.0
		for i := 0; i < n; i++ {
			if picked[i] {
				continue
			}
			marginal := composite[i]
			if len(selected) > 0 {
				marginal -= redundancyWeight * maxSim[i]
			}
			// Strict greater-than keeps the earliest index on ties.
			if best == -1 || marginal > bestMarginal {
				best = i
				bestMarginal = marginal
			}
		}
		if best == -1 {
			break
		}

		picked[best] = true
		selected = append(selected, best)

		for i := 0; i < n; i++ {
			if picked[i] {
				continue
			}
			sim, err := ranking.CosineSimilarity(embeddings[best], embeddings[i])
			if err != nil {
				return nil, err
			}
			// The first pick seeds maxSim so negative similarities are not
			// floored at the zero value.
			if len(selected) == 1 || sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}

	return selected, nil
}
