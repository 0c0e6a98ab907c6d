// Package search implements the repair engines: brute-force enumeration of
// distance-one edits and the weighted micro-mutation genetic algorithm.
package search

import (
	"math/rand"
	"sort"

	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
)

// scored pairs a variant with its evaluated fitness.
type scored struct {
	variant rep.Representation
	fitness float64
}

// tournament draws k individuals uniformly at random with replacement,
// sorts them by fitness descending, and walks the sorted list accepting
// each candidate with probability p. With p >= 1 the top-ranked candidate
// always wins. Falling off the end restarts the draw.
func tournament(rng *rand.Rand, pop []scored, k int, p float64) scored {
	if k < 1 {
		k = 1
	}

	for {
		sample := make([]scored, k)
		for i := range sample {
			sample[i] = pop[rng.Intn(len(pop))]
		}

		sort.SliceStable(sample, func(i, j int) bool {
			return sample[i].fitness > sample[j].fitness
		})

		if p >= 1 {
			return sample[0]
		}

		for _, cand := range sample {
			if rng.Float64() <= p {
				return cand
			}
		}
	}
}

// selectParents repeats the tournament until count selections are made.
func selectParents(rng *rand.Rand, pop []scored, count, k int, p float64) []scored {
	out := make([]scored, 0, count)
	for len(out) < count {
		out = append(out, tournament(rng, pop, k, p))
	}

	return out
}

// roulette picks one element from a weighted set: draw r uniform in
// [0, total) and return the first element whose running total reaches r.
// The accumulation order is the list order, so draws are reproducible for a
// fixed seed.
func roulette(rng *rand.Rand, l m.Localization) (m.AtomID, bool) {
	total := l.TotalWeight()
	if len(l) == 0 || total <= 0 {
		return m.NoAtom, false
	}

	r := rng.Float64() * total
	acc := 0.0

	for _, wa := range l {
		acc += wa.Weight
		if acc >= r {
			return wa.ID, true
		}
	}

	return l[len(l)-1].ID, true
}
