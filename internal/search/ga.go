package search

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/whr0724/genprog-code/internal/fitness"
	"github.com/whr0724/genprog-code/internal/rep"
)

// GAParams are the genetic-algorithm knobs.
type GAParams struct {
	Generations int
	PopSize     int
	CrossP      float64
	TournamentK int
	TournamentP float64
}

// GA runs the weighted micro-mutation genetic algorithm over one deme. The
// loop is strictly sequential: evaluate, select, cross, mutate. All random
// draws come from the single per-deme generator, so a fixed seed reproduces
// a run.
type GA struct {
	Params  GAParams
	Mutator *Mutator
	Rng     *rand.Rand

	// Progress, when non-nil, is called after each generation's evaluation.
	Progress func(gen int, best, mean float64)

	// Exchange, when non-nil, is consulted after every generation with the
	// evaluated population; it returns the population the next generation
	// starts from. The distributed coordinator uses this hook to trade
	// variants between demes.
	Exchange func(gen int, pop []Scored) ([]rep.Representation, error)
}

// Scored is an evaluated variant, exported for the exchange hook.
type Scored struct {
	Variant rep.Representation
	Fitness float64
}

// Run searches for a repair. The incoming seed population may hold at most
// PopSize-1 variants; the original is always included and the rest of the
// population is filled with freshly mutated copies of it.
func (g *GA) Run(ctx context.Context, original rep.Representation, seeds []rep.Representation, eval fitness.Evaluator) (*Result, error) {
	pop, err := g.initialPopulation(original, seeds)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	for gen := 1; gen <= g.Params.Generations; gen++ {
		evaluated, err := g.evaluate(ctx, pop, eval, result)
		if err != nil {
			return result, err
		}

		g.reportProgress(gen, evaluated)

		if result.Solved {
			// The generation's evaluation completes before the solution is
			// surfaced; selection never runs on a solved population.
			result.Generation = gen
			return result, nil
		}

		if g.Exchange != nil {
			exchanged, err := g.Exchange(gen, evaluated)
			if err != nil {
				return result, err
			}

			if exchanged != nil {
				pop = exchanged
				continue
			}
		}

		parents := selectParents(g.Rng, toScored(evaluated), g.Params.PopSize, g.Params.TournamentK, g.Params.TournamentP)

		crossed := g.crossPairs(parents)

		for _, v := range crossed {
			if err := g.Mutator.Mutate(g.Rng, v); err != nil {
				return result, fmt.Errorf("mutate: %w", err)
			}
		}

		pop = crossed
	}

	evaluated, err := g.evaluate(ctx, pop, eval, result)
	if err != nil {
		return result, err
	}

	g.reportProgress(g.Params.Generations+1, evaluated)
	result.Generation = g.Params.Generations

	return result, nil
}

func (g *GA) initialPopulation(original rep.Representation, seeds []rep.Representation) ([]rep.Representation, error) {
	if len(seeds) > g.Params.PopSize-1 {
		return nil, fmt.Errorf("seed population of %d exceeds popsize-1 (%d)", len(seeds), g.Params.PopSize-1)
	}

	pop := make([]rep.Representation, 0, g.Params.PopSize)

	for _, s := range seeds {
		pop = append(pop, s.Clone())
	}

	pop = append(pop, original.Clone())

	for len(pop) < g.Params.PopSize {
		v := original.Clone()
		if err := g.Mutator.Mutate(g.Rng, v); err != nil {
			return nil, fmt.Errorf("seed mutation: %w", err)
		}

		pop = append(pop, v)
	}

	return pop, nil
}

func (g *GA) evaluate(ctx context.Context, pop []rep.Representation, eval fitness.Evaluator, result *Result) ([]Scored, error) {
	out := make([]Scored, 0, len(pop))

	for _, v := range pop {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		score, err := eval.Evaluate(ctx, v)
		if err != nil {
			return out, fmt.Errorf("evaluate variant %q: %w", v.Fingerprint(), err)
		}

		result.Trials++

		if score > result.Fitness || result.Variant == nil {
			result.Fitness = score
			result.Variant = v
		}

		if fitness.IsSolution(eval, score) {
			result.Solved = true
			result.Variant = v
			result.Fitness = score
		}

		out = append(out, Scored{Variant: v, Fitness: score})
	}

	return out, nil
}

// crossPairs pairs the parents into couples and applies one-point crossover
// to each couple with probability CrossP; the rest pass through untouched.
func (g *GA) crossPairs(parents []scored) []rep.Representation {
	out := make([]rep.Representation, 0, len(parents))

	for i := 0; i+1 < len(parents); i += 2 {
		p1, p2 := parents[i].variant, parents[i+1].variant

		if g.Rng.Float64() <= g.Params.CrossP {
			c1, c2 := onePointCrossover(g.Rng, p1, p2)
			out = append(out, c1, c2)

			continue
		}

		out = append(out, p1.Clone(), p2.Clone())
	}

	if len(parents)%2 == 1 {
		out = append(out, parents[len(parents)-1].variant.Clone())
	}

	return out
}

func (g *GA) reportProgress(gen int, evaluated []Scored) {
	if len(evaluated) == 0 {
		return
	}

	best, sum := evaluated[0].Fitness, 0.0
	for _, s := range evaluated {
		sum += s.Fitness
		if s.Fitness > best {
			best = s.Fitness
		}
	}

	mean := sum / float64(len(evaluated))

	slog.Debug("generation evaluated", "gen", gen, "best", best, "mean", mean)

	if g.Progress != nil {
		g.Progress(gen, best, mean)
	}
}

func toScored(in []Scored) []scored {
	out := make([]scored, len(in))
	for i, s := range in {
		out[i] = scored{variant: s.Variant, fitness: s.Fitness}
	}

	return out
}
