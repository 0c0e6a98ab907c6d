package search

import (
	"fmt"
	"math/rand"

	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
	"github.com/whr0724/genprog-code/internal/store"
)

// Mutator performs the weighted micro-mutation over a variant's fault
// localization path.
type Mutator struct {
	// MutP is the per-site mutation probability multiplier.
	MutP float64
	// SubatomMutP is the probability of choosing an expression-level
	// mutation at a firing site, when the site has subatoms.
	SubatomMutP float64
	// SubatomConstP is the probability that a subatom mutation substitutes
	// the language zero constant rather than a donor subatom.
	SubatomConstP float64
	// ProMut forces at least this many weighted-sampled sites to mutate per
	// call; 0 disables pre-selection.
	ProMut int
	// Check is the semantic-check mode for donor queries.
	Check store.CheckMode
	// NumComps and CompID constrain mutation sites to this deme's share of
	// the search space when splitting is active. CompID is 1-based.
	NumComps int
	CompID   int
	Split    bool
}

type statementOp int

const (
	opDelete statementOp = iota
	opAppend
	opSwap
)

// Mutate fires weighted mutations over v's fault path. Every firing site
// receives exactly one edit; an operator with no legal donor is excluded
// and the choice retried, and delete always succeeds.
func (mu *Mutator) Mutate(rng *rand.Rand, v rep.Representation) error {
	sites := v.Fault()
	if mu.Split && mu.NumComps > 1 {
		sites = mu.splitSites(sites)
	}

	forced := make(map[m.AtomID]struct{})

	if mu.ProMut > 0 {
		sites = sites.Dedup()

		for i := 0; i < mu.ProMut; i++ {
			if id, ok := roulette(rng, sites); ok {
				forced[id] = struct{}{}
			}
		}
	}

	for _, wa := range sites {
		_, isForced := forced[wa.ID]
		if !isForced && rng.Float64() > mu.MutP*wa.Weight {
			continue
		}

		if err := mu.mutateSite(rng, v, wa.ID); err != nil {
			return err
		}
	}

	return nil
}

// splitSites keeps the fault sites assigned to this deme: statement ids
// congruent to the 1-based deme number modulo the deme count.
func (mu *Mutator) splitSites(sites m.Localization) m.Localization {
	out := make(m.Localization, 0, len(sites))

	for _, wa := range sites {
		if int(wa.ID)%mu.NumComps == mu.CompID%mu.NumComps {
			out = append(out, wa)
		}
	}

	return out
}

func (mu *Mutator) mutateSite(rng *rand.Rand, v rep.Representation, id m.AtomID) error {
	subatoms := v.SubatomCount(id)

	if subatoms > 0 && rng.Float64() <= mu.SubatomMutP {
		applied, err := mu.mutateSubatom(rng, v, id, subatoms)
		if err != nil || applied {
			return err
		}
		// No donor with subatoms qualified; fall back to statement level.
	}

	return mu.mutateStatement(rng, v, id)
}

func (mu *Mutator) mutateSubatom(rng *rand.Rand, v rep.Representation, id m.AtomID, subatoms int) (bool, error) {
	if rng.Float64() <= mu.SubatomConstP {
		idx := rng.Intn(subatoms)
		return true, v.Apply(m.ReplaceSubatomConst(id, idx))
	}

	donors, err := v.Store().AppendSources(v.Fix(), id, mu.Check)
	if err != nil {
		return false, err
	}

	withSubatoms := make(m.Localization, 0, len(donors))

	for _, wa := range donors {
		if v.SubatomCount(wa.ID) > 0 {
			withSubatoms = append(withSubatoms, wa)
		}
	}

	if len(withSubatoms) == 0 {
		return false, nil
	}

	donor := withSubatoms[rng.Intn(len(withSubatoms))].ID
	destIdx := rng.Intn(subatoms)
	srcIdx := rng.Intn(v.SubatomCount(donor))

	return true, v.Apply(m.ReplaceSubatom(id, destIdx, donor, srcIdx))
}

func (mu *Mutator) mutateStatement(rng *rand.Rand, v rep.Representation, id m.AtomID) error {
	ops := []statementOp{opDelete, opAppend, opSwap}

	for len(ops) > 0 {
		pick := rng.Intn(len(ops))
		op := ops[pick]

		applied, err := mu.applyStatementOp(rng, v, id, op)
		if err != nil {
			return err
		}

		if applied {
			return nil
		}

		ops = append(ops[:pick], ops[pick+1:]...)
	}

	return fmt.Errorf("no mutation operator applicable to statement %d", id)
}

func (mu *Mutator) applyStatementOp(rng *rand.Rand, v rep.Representation, id m.AtomID, op statementOp) (bool, error) {
	switch op {
	case opDelete:
		return true, v.Delete(id)
	case opAppend:
		donors, err := v.Store().AppendSources(v.Fix(), id, mu.Check)
		if err != nil {
			return false, err
		}

		donor, ok := roulette(rng, donors)
		if !ok {
			return false, nil
		}

		return true, v.Append(id, donor)
	case opSwap:
		donors, err := v.Store().SwapSources(v.Fault(), id, mu.Check)
		if err != nil {
			return false, err
		}

		donor, ok := roulette(rng, donors)
		if !ok {
			return false, nil
		}

		return true, v.Swap(id, donor)
	}

	return false, nil
}
