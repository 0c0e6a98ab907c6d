package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whr0724/genprog-code/internal/store"
)

func TestEnumerateOrdersByWeightDescending(t *testing.T) {
	v := loadVariant(t, defaultFault(), defaultFix())
	bf := &BruteForce{Check: store.CheckScope}

	worklist, err := bf.Enumerate(v)
	require.NoError(t, err)
	require.NotEmpty(t, worklist)

	for i := 1; i < len(worklist); i++ {
		require.GreaterOrEqual(t, worklist[i-1].Weight, worklist[i].Weight)
	}

	// The most suspicious statement's delete leads the list.
	require.Equal(t, "d(2)", worklist[0].Edit.String())
}

func TestEnumerateBreaksTiesDeterministically(t *testing.T) {
	v := loadVariant(t, defaultFault(), defaultFix())
	bf := &BruteForce{Check: store.CheckScope}

	first, err := bf.Enumerate(v)
	require.NoError(t, err)

	second, err := bf.Enumerate(v)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))

	for i := range first {
		require.Equal(t, first[i].Edit, second[i].Edit)
	}

	// Equal-weight deletes appear in edit-string order.
	require.Equal(t, "d(1)", first[1].Edit.String())
	require.Equal(t, "d(3)", first[2].Edit.String())
}

func TestEnumerateKeepsOneSwapOrientation(t *testing.T) {
	v := loadVariant(t, defaultFault(), defaultFix())
	bf := &BruteForce{Check: store.CheckScope}

	worklist, err := bf.Enumerate(v)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, cand := range worklist {
		seen[cand.Edit.String()] = true
	}

	require.True(t, seen["s(1,2)"])
	require.False(t, seen["s(2,1)"])
}

func TestSearchStopsAtFirstSolution(t *testing.T) {
	v := loadVariant(t, defaultFault(), defaultFix())

	eval := &fakeEval{
		max: 5,
		score: func(fp string) float64 {
			if fp == "d(2)" {
				return 5
			}

			return 1
		},
	}

	bf := &BruteForce{Check: store.CheckScope}

	result, err := bf.Search(context.Background(), v, eval)
	require.NoError(t, err)
	require.True(t, result.Solved)
	require.Equal(t, 1, result.Trials)
	require.Equal(t, "d(2)", result.Variant.Fingerprint())
	require.Equal(t, 5.0, result.Fitness)
}

func TestSearchExhaustsWorklistWithoutSolution(t *testing.T) {
	v := loadVariant(t, defaultFault(), defaultFix())

	eval := &fakeEval{
		max:   5,
		score: func(string) float64 { return 1 },
	}

	bf := &BruteForce{Check: store.CheckScope}

	result, err := bf.Search(context.Background(), v, eval)
	require.NoError(t, err)
	require.False(t, result.Solved)
	require.Equal(t, eval.calls, result.Trials)
	require.NotNil(t, result.Variant)
}

func TestSearchEmptyCandidateSetIsNotAnError(t *testing.T) {
	v := loadVariant(t, nil, nil)

	eval := &fakeEval{max: 5, score: func(string) float64 { return 0 }}
	bf := &BruteForce{Check: store.CheckScope}

	result, err := bf.Search(context.Background(), v, eval)
	require.NoError(t, err)
	require.False(t, result.Solved)
	require.Nil(t, result.Variant)
	require.Zero(t, eval.calls)
}

func TestSubatomCandidatesWhenEnabled(t *testing.T) {
	v := loadVariant(t, defaultFault(), defaultFix())

	plain := &BruteForce{Check: store.CheckScope}
	withSubatoms := &BruteForce{Check: store.CheckScope, Subatoms: true}

	base, err := plain.Enumerate(v)
	require.NoError(t, err)

	extended, err := withSubatoms.Enumerate(v)
	require.NoError(t, err)

	require.Greater(t, len(extended), len(base))
}
