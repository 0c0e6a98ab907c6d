package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/whr0724/genprog-code/internal/fitness"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
	"github.com/whr0724/genprog-code/internal/store"
	pkg "github.com/whr0724/genprog-code/pkg"
)

// Result is the outcome of one search.
type Result struct {
	Variant    rep.Representation
	Fitness    float64
	Solved     bool
	Trials     int
	Generation int
	// Deme is the 1-based deme that produced the result in distributed
	// runs; 0 otherwise.
	Deme int
}

// Candidate is one weighted distance-one edit. The variant is built by a
// thunk so enumerating ~1e5 candidates costs nothing up front.
type Candidate struct {
	Weight float64
	Edit   m.Edit
	Build  func() (rep.Representation, error)
}

// Weight multipliers for the composed priorities.
const (
	appendWeightFactor  = 0.9
	swapWeightFactor    = 0.8
	subatomWeightFactor = 0.9
)

// BruteForce enumerates every distance-one edit, orders the worklist by
// weight descending, and evaluates lazily until the first solution.
type BruteForce struct {
	// Check is the semantic-check mode for donor queries.
	Check store.CheckMode
	// Subatoms enables expression-level candidates.
	Subatoms bool
	// Trials, when non-nil, receives one report per evaluation.
	Trials pkg.FileSpill[m.TrialReport]
	// Progress, when non-nil, is called after each evaluation.
	Progress func(trial int, total int, best float64)
}

// Search runs the worklist scan. An empty candidate set is not an error:
// it logs a warning and returns a nil variant.
func (bf *BruteForce) Search(ctx context.Context, original rep.Representation, eval fitness.Evaluator) (*Result, error) {
	worklist, err := bf.Enumerate(original)
	if err != nil {
		return nil, err
	}

	if len(worklist) == 0 {
		slog.Warn("brute force found no candidate edits; check fault and fix localization")
		return &Result{}, nil
	}

	slog.Info("brute force worklist built", "candidates", len(worklist))

	best := &Result{}

	for i, cand := range worklist {
		if err := ctx.Err(); err != nil {
			return best, err
		}

		variant, err := cand.Build()
		if err != nil {
			return best, fmt.Errorf("build candidate %s: %w", cand.Edit, err)
		}

		score, err := eval.Evaluate(ctx, variant)
		if err != nil {
			return best, fmt.Errorf("evaluate candidate %s: %w", cand.Edit, err)
		}

		best.Trials = i + 1
		solved := fitness.IsSolution(eval, score)

		if bf.Trials != nil {
			report := m.TrialReport{Fingerprint: variant.Fingerprint(), Fitness: score, Solution: solved}
			if err := bf.Trials.Append(report); err != nil {
				slog.Warn("failed to spill trial report", "error", err)
			}
		}

		if score > best.Fitness || best.Variant == nil {
			best.Fitness = score
			best.Variant = variant
		}

		if bf.Progress != nil {
			bf.Progress(i+1, len(worklist), best.Fitness)
		}

		if solved {
			best.Variant = variant
			best.Fitness = score
			best.Solved = true

			slog.Info("brute force found a repair", "edit", cand.Edit.String(), "trials", i+1)

			return best, nil
		}
	}

	return best, nil
}

// Enumerate builds the full weighted worklist, sorted by weight descending
// with ties broken by the edit's printed form so the order is a total order
// for fixed inputs.
func (bf *BruteForce) Enumerate(original rep.Representation) ([]Candidate, error) {
	var out []Candidate

	add := func(weight float64, e m.Edit) {
		out = append(out, Candidate{
			Weight: weight,
			Edit:   e,
			Build: func() (rep.Representation, error) {
				v := original.Clone()
				if err := v.Apply(e); err != nil {
					return nil, err
				}

				return v, nil
			},
		})
	}

	st := original.Store()
	fault := original.Fault()
	fix := original.Fix()

	for _, dst := range fault {
		add(dst.Weight, m.Delete(dst.ID))

		appendSrcs, err := st.AppendSources(fix, dst.ID, bf.Check)
		if err != nil {
			return nil, err
		}

		for _, src := range appendSrcs {
			add(dst.Weight*src.Weight*appendWeightFactor, m.Append(dst.ID, src.ID))
		}

		swapSrcs, err := st.SwapSources(fault, dst.ID, bf.Check)
		if err != nil {
			return nil, err
		}

		for _, src := range swapSrcs {
			// Swap is symmetric; keep only the x < y orientation.
			if dst.ID >= src.ID {
				continue
			}

			add(dst.Weight*src.Weight*swapWeightFactor, m.Swap(dst.ID, src.ID))
		}

		if bf.Subatoms {
			bf.enumerateSubatoms(original, appendSrcs, dst, add)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}

		return out[i].Edit.String() < out[j].Edit.String()
	})

	return out, nil
}

func (bf *BruteForce) enumerateSubatoms(original rep.Representation, donors m.Localization, dst m.WeightedAtom, add func(float64, m.Edit)) {
	count := original.SubatomCount(dst.ID)

	for i := 0; i < count; i++ {
		add(dst.Weight*subatomWeightFactor, m.ReplaceSubatomConst(dst.ID, i))

		for _, donor := range donors {
			donorCount := original.SubatomCount(donor.ID)
			for j := 0; j < donorCount; j++ {
				add(dst.Weight*subatomWeightFactor, m.ReplaceSubatom(dst.ID, i, donor.ID, j))
			}
		}
	}
}
