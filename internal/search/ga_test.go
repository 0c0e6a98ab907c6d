package search

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whr0724/genprog-code/internal/rep"
	"github.com/whr0724/genprog-code/internal/store"
)

func quietMutator() *Mutator {
	// MutP 0 and ProMut 0: no site ever fires.
	return &Mutator{Check: store.CheckScope}
}

func TestGASeededSolutionSurvivesOneGeneration(t *testing.T) {
	original := loadVariant(t, defaultFault(), defaultFix())

	fix := original.Clone()
	require.NoError(t, fix.Delete(2))

	eval := &fakeEval{
		max: 5,
		score: func(fp string) float64 {
			if fp == "d(2)" {
				return 5
			}

			return 1
		},
	}

	ga := &GA{
		Params:  GAParams{Generations: 1, PopSize: 4, CrossP: 0, TournamentK: 2, TournamentP: 1},
		Mutator: quietMutator(),
		Rng:     rand.New(rand.NewSource(1)),
	}

	result, err := ga.Run(context.Background(), original, []rep.Representation{fix}, eval)
	require.NoError(t, err)
	require.True(t, result.Solved)
	require.Equal(t, 1, result.Generation)
	require.Equal(t, "d(2)", result.Variant.Fingerprint())
	require.Equal(t, 5.0, result.Fitness)
}

func TestGARejectsOversizedSeedPopulation(t *testing.T) {
	original := loadVariant(t, defaultFault(), defaultFix())

	seeds := []rep.Representation{
		original.Clone(), original.Clone(), original.Clone(), original.Clone(),
	}

	ga := &GA{
		Params:  GAParams{Generations: 1, PopSize: 4, TournamentK: 2, TournamentP: 1},
		Mutator: quietMutator(),
		Rng:     rand.New(rand.NewSource(1)),
	}

	eval := &fakeEval{max: 5, score: func(string) float64 { return 0 }}

	_, err := ga.Run(context.Background(), original, seeds, eval)
	require.Error(t, err)
}

func TestGACompletesWithoutSolution(t *testing.T) {
	original := loadVariant(t, defaultFault(), defaultFix())

	eval := &fakeEval{max: 100, score: func(string) float64 { return 1 }}

	ga := &GA{
		Params:  GAParams{Generations: 3, PopSize: 4, CrossP: 1, TournamentK: 2, TournamentP: 1},
		Mutator: &Mutator{MutP: 1, ProMut: 1, Check: store.CheckScope},
		Rng:     rand.New(rand.NewSource(3)),
	}

	result, err := ga.Run(context.Background(), original, nil, eval)
	require.NoError(t, err)
	require.False(t, result.Solved)
	require.Equal(t, 3, result.Generation)

	// Every generation evaluates the full population, plus the final pass.
	require.Equal(t, 16, result.Trials)
}

func TestGAProgressCallback(t *testing.T) {
	original := loadVariant(t, defaultFault(), defaultFix())

	eval := &fakeEval{max: 100, score: func(string) float64 { return 2 }}

	var gens []int

	ga := &GA{
		Params:  GAParams{Generations: 2, PopSize: 3, TournamentK: 2, TournamentP: 1},
		Mutator: quietMutator(),
		Rng:     rand.New(rand.NewSource(1)),
		Progress: func(gen int, best, mean float64) {
			gens = append(gens, gen)
			require.Equal(t, 2.0, best)
			require.Equal(t, 2.0, mean)
		},
	}

	_, err := ga.Run(context.Background(), original, nil, eval)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, gens)
}

func TestGAExchangeHookReplacesPopulation(t *testing.T) {
	original := loadVariant(t, defaultFault(), defaultFix())

	eval := &fakeEval{max: 100, score: func(string) float64 { return 1 }}

	replacement := original.Clone()
	require.NoError(t, replacement.Delete(3))

	exchanges := 0

	ga := &GA{
		Params:  GAParams{Generations: 2, PopSize: 2, TournamentK: 2, TournamentP: 1},
		Mutator: quietMutator(),
		Rng:     rand.New(rand.NewSource(1)),
		Exchange: func(gen int, pop []Scored) ([]rep.Representation, error) {
			exchanges++
			if gen == 1 {
				return []rep.Representation{replacement, original.Clone()}, nil
			}

			return nil, nil
		},
	}

	result, err := ga.Run(context.Background(), original, nil, eval)
	require.NoError(t, err)
	require.Equal(t, 2, exchanges)
	require.NotNil(t, result.Variant)
}
