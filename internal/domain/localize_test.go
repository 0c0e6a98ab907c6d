package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/store"
)

func TestReadTrace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.txt")

	require.NoError(t, os.WriteFile(path, []byte("1\n3\n1\n\n7\n"), 0o600))

	ids, err := readTrace(m.Path(path))
	require.NoError(t, err)
	require.Len(t, ids, 3)
	require.Contains(t, ids, m.AtomID(1))
	require.Contains(t, ids, m.AtomID(3))
	require.Contains(t, ids, m.AtomID(7))
}

func TestReadTraceMissingFileIsEmpty(t *testing.T) {
	ids, err := readTrace(m.Path(filepath.Join(t.TempDir(), "absent.txt")))
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestReadTraceSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.txt")

	require.NoError(t, os.WriteFile(path, []byte("1\nbogus\n2\n"), 0o600))

	ids, err := readTrace(m.Path(path))
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestFaultFromCoverageWeighting(t *testing.T) {
	pos := map[m.AtomID]struct{}{1: {}, 2: {}}
	neg := map[m.AtomID]struct{}{2: {}, 3: {}}

	fault := faultFromCoverage(pos, neg)
	require.Len(t, fault, 2)

	// Statements only the failing tests reach carry full weight; shared
	// statements carry the token weight. Statement 1 never appears.
	require.Equal(t, negOnlyWeight, fault.WeightOf(3))
	require.Equal(t, sharedWeight, fault.WeightOf(2))
	require.Zero(t, fault.WeightOf(1))

	// Sorted weight-descending.
	require.Equal(t, m.AtomID(3), fault[0].ID)
}

func TestFixFromCoverageUnion(t *testing.T) {
	pos := map[m.AtomID]struct{}{1: {}, 2: {}}
	neg := map[m.AtomID]struct{}{2: {}, 3: {}}

	fix := fixFromCoverage(pos, neg)
	require.Len(t, fix, 3)

	for _, wa := range fix {
		require.Equal(t, fixWeight, wa.Weight)
	}
}

func TestCanonicalizeFixCollapsesDuplicates(t *testing.T) {
	st := store.NewAtomStore()
	st.SetCanonical(2, 1)

	fix := m.Localization{
		{ID: 1, Weight: 1},
		{ID: 2, Weight: 1},
		{ID: 3, Weight: 1},
	}

	out := canonicalizeFix(st, fix)
	require.Equal(t, m.Localization{{ID: 1, Weight: 1}, {ID: 3, Weight: 1}}, out)
}

func TestOperatorNames(t *testing.T) {
	require.Equal(t, "delete", operatorName(m.Delete(1)))
	require.Equal(t, "append", operatorName(m.Append(1, 2)))
	require.Equal(t, "swap", operatorName(m.Swap(1, 2)))
	require.Equal(t, "replace", operatorName(m.Replace(1, 2)))
	require.Equal(t, "subatom-const", operatorName(m.ReplaceSubatomConst(1, 0)))
	require.Equal(t, "subatom-swap", operatorName(m.ReplaceSubatom(1, 0, 2, 0)))
}
