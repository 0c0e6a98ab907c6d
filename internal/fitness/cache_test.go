package fitness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
)

// countingEval counts how many evaluations reach the wrapped level.
type countingEval struct {
	calls int
}

func (e *countingEval) MaxFitness() float64 { return 3 }

func (e *countingEval) Evaluate(_ context.Context, r rep.Representation) (float64, error) {
	e.calls++
	return float64(len(r.History())), nil
}

func cacheVariant(t *testing.T) rep.Representation {
	t.Helper()

	fs := newMemFS(map[m.Path]string{"/project/main.go": evalSrc})
	loader := rep.NewLoader(adapter.NewGoASTAdapter(), fs)

	st, err := loader.Load([]m.Path{"/project/main.go"})
	require.NoError(t, err)

	return rep.NewPatch(st, adapter.NewGoASTAdapter(), rep.Options{})
}

func TestCachedEvaluatorSkipsRepeatedFingerprints(t *testing.T) {
	inner := &countingEval{}

	cache, err := OpenCachedEvaluator(inner, t.TempDir())
	require.NoError(t, err)

	defer func() {
		require.NoError(t, cache.Close())
	}()

	v := cacheVariant(t)
	require.NoError(t, v.Delete(1))

	ctx := context.Background()

	first, err := cache.Evaluate(ctx, v)
	require.NoError(t, err)

	second, err := cache.Evaluate(ctx, v)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)

	hits, misses := cache.Stats()
	require.Equal(t, int64(1), hits)
	require.Equal(t, int64(1), misses)
}

func TestCachedEvaluatorDistinguishesHistories(t *testing.T) {
	inner := &countingEval{}

	cache, err := OpenCachedEvaluator(inner, t.TempDir())
	require.NoError(t, err)

	defer func() {
		require.NoError(t, cache.Close())
	}()

	ctx := context.Background()

	v1 := cacheVariant(t)
	require.NoError(t, v1.Delete(1))

	v2 := v1.Clone()
	require.NoError(t, v2.Delete(2))

	score1, err := cache.Evaluate(ctx, v1)
	require.NoError(t, err)

	score2, err := cache.Evaluate(ctx, v2)
	require.NoError(t, err)

	require.Equal(t, 1.0, score1)
	require.Equal(t, 2.0, score2)
	require.Equal(t, 2, inner.calls)
}

func TestCachedEvaluatorMaxFitnessDelegates(t *testing.T) {
	cache, err := OpenCachedEvaluator(&countingEval{}, t.TempDir())
	require.NoError(t, err)

	defer func() {
		require.NoError(t, cache.Close())
	}()

	require.Equal(t, 3.0, cache.MaxFitness())
}
