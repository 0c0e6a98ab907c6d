package search

import (
	"math/rand"

	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
)

// onePointCrossover exchanges, for every position i in [0, cut], the edits
// keyed on the i-th fault-localization id between the two parents. The cut
// range is clamped to the shorter of the two id sequences, so parents with
// different localization lengths cross over their shared prefix only.
func onePointCrossover(rng *rand.Rand, p1, p2 rep.Representation) (rep.Representation, rep.Representation) {
	m1 := p1.Fault().IDs()
	m2 := p2.Fault().IDs()

	limit := len(m1)
	if len(m2) < limit {
		limit = len(m2)
	}

	if limit == 0 {
		return p1.Clone(), p2.Clone()
	}

	cut := rng.Intn(limit)

	prefix1 := idSet(m1[:cut+1])
	prefix2 := idSet(m2[:cut+1])

	child1 := p1.Clone()
	child1.SetHistory(mergeHistories(p2.History(), prefix2, p1.History(), prefix1))

	child2 := p2.Clone()
	child2.SetHistory(mergeHistories(p1.History(), prefix1, p2.History(), prefix2))

	return child1, child2
}

// mergeHistories builds a child history: the donor's edits keyed inside the
// exchanged prefix, followed by the keeper's edits keyed outside its own
// prefix. Relative order within each part is preserved.
func mergeHistories(donor m.History, donorPrefix map[m.AtomID]struct{}, keeper m.History, keeperPrefix map[m.AtomID]struct{}) m.History {
	out := make(m.History, 0, len(donor)+len(keeper))

	for _, e := range donor {
		if _, ok := donorPrefix[e.Dest]; ok {
			out = append(out, e)
		}
	}

	for _, e := range keeper {
		if _, ok := keeperPrefix[e.Dest]; !ok {
			out = append(out, e)
		}
	}

	return out
}

func idSet(ids []m.AtomID) map[m.AtomID]struct{} {
	out := make(map[m.AtomID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}

	return out
}
