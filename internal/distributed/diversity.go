// Package distributed runs parallel demes of the genetic algorithm and
// exchanges their best variants around a ring.
package distributed

import (
	"github.com/whr0724/genprog-code/internal/search"
)

// DiversitySelect picks k variants whose edit histories collectively cover
// the most distinct edit records. Each history is a set of string tokens;
// the greedy pass repeatedly takes the variant covering the largest
// still-uncovered portion of the pool's union. When fewer than k variants
// have uncovered tokens left, the selection is padded with makeBaseline(),
// a copy of the original program treated as a neutral baseline.
func DiversitySelect(pool []search.Scored, k int, makeBaseline func() search.Scored) []search.Scored {
	uncovered := make(map[string]struct{})
	tokenSets := make([]map[string]struct{}, len(pool))

	for i, s := range pool {
		tokenSets[i] = historyTokens(s)
		for tok := range tokenSets[i] {
			uncovered[tok] = struct{}{}
		}
	}

	taken := make([]bool, len(pool))
	out := make([]search.Scored, 0, k)

	for len(out) < k {
		bestIdx, bestCover := -1, 0

		for i := range pool {
			if taken[i] {
				continue
			}

			cover := 0
			for tok := range tokenSets[i] {
				if _, ok := uncovered[tok]; ok {
					cover++
				}
			}

			if cover > bestCover {
				bestIdx, bestCover = i, cover
			}
		}

		if bestIdx < 0 {
			out = append(out, makeBaseline())
			continue
		}

		taken[bestIdx] = true
		out = append(out, pool[bestIdx])

		for tok := range tokenSets[bestIdx] {
			delete(uncovered, tok)
		}
	}

	return out
}

func historyTokens(s search.Scored) map[string]struct{} {
	out := make(map[string]struct{})
	for _, e := range s.Variant.History() {
		out[e.String()] = struct{}{}
	}

	return out
}
