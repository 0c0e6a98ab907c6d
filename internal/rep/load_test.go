package rep

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/store"
)

func TestLoadNumbersStatementsInOrder(t *testing.T) {
	st := loadProgram(t, computeSrc)

	require.Equal(t, m.AtomID(3), st.MaxAtom())

	for id := m.AtomID(1); id <= st.MaxAtom(); id++ {
		site, ok := st.StmtMap[id]
		require.True(t, ok, "statement %d missing from stmt map", id)
		require.Equal(t, "compute", site.Function)
		require.Contains(t, st.LocalsHave, id)
		require.Contains(t, st.LocalsUsed, id)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	fs := newMemFS(nil)
	loader := NewLoader(adapter.NewGoASTAdapter(), fs)

	_, err := loader.Load([]m.Path{"/project/missing.go"})
	require.Error(t, err)
}

func TestLoadRejectsParseFailure(t *testing.T) {
	fs := newMemFS(map[m.Path]string{"/project/bad.go": "package main\nfunc {"})
	loader := NewLoader(adapter.NewGoASTAdapter(), fs)

	_, err := loader.Load([]m.Path{"/project/bad.go"})
	require.Error(t, err)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	fs := newMemFS(map[m.Path]string{"/project/main.c": "int main() {}"})
	loader := NewLoader(adapter.NewGoASTAdapter(), fs)

	_, err := loader.Load([]m.Path{"/project/main.c"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown input extension")
}

func TestLoadRejectsEmptyInput(t *testing.T) {
	loader := NewLoader(adapter.NewGoASTAdapter(), newMemFS(nil))

	_, err := loader.Load(nil)
	require.Error(t, err)
}

const scopedSrc = `package main

func scoped() {
	a := 1
	_ = a
	{
		y := 2
		_ = y
	}
}
`

func TestScopeTablesExcludeInnerBlockLocals(t *testing.T) {
	st := loadProgram(t, scopedSrc)

	// Statements: 1 "a := 1", 2 "_ = a", 3 "y := 2", 4 "_ = y".
	require.Equal(t, m.AtomID(4), st.MaxAtom())

	fix := m.Localization{
		{ID: 3, Weight: 1},
		{ID: 4, Weight: 1},
	}

	// "_ = y" needs y, which is not in scope at statement 1; "y := 2"
	// declares its own variable and can move anywhere.
	filtered, err := st.AppendSources(fix, 1, store.CheckScope)
	require.NoError(t, err)
	require.Equal(t, m.Localization{{ID: 3, Weight: 1}}, filtered)

	// Without checking the inner statement qualifies too.
	all, err := st.AppendSources(fix, 1, store.CheckNone)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestScopeInvariantUsedWithinHave(t *testing.T) {
	st := loadProgram(t, scopedSrc)

	for id := m.AtomID(1); id <= st.MaxAtom(); id++ {
		used := st.LocalsUsed[id]
		have := st.LocalsHave[id]
		require.True(t, used.SubsetOf(have),
			"statement %d uses variables outside its scope table", id)
	}
}

const twinSrc = `package main

func g1() {
	println(1)
}

func g2() {
	println(1)
}
`

func TestCanonicalizationCollapsesIdenticalText(t *testing.T) {
	st := loadProgram(t, twinSrc)

	require.Equal(t, m.AtomID(2), st.MaxAtom())
	require.Equal(t, m.AtomID(1), st.CanonicalID(2))
	require.Equal(t, m.AtomID(1), st.CanonicalID(1))
}

const emptyBlockSrc = `package main

func noop() {
}
`

func TestEmptyBodyGetsDummyHandle(t *testing.T) {
	st := loadProgram(t, emptyBlockSrc)

	// The dummy statement gives later edits a destination.
	require.Equal(t, m.AtomID(1), st.MaxAtom())
	require.Equal(t, "noop", st.StmtMap[1].Function)
}

const globalsSrc = `package main

var counter int

func bump() {
	counter = counter + 1
}
`

func TestGlobalsAreNotLocalUses(t *testing.T) {
	st := loadProgram(t, globalsSrc)

	require.Equal(t, m.AtomID(1), st.MaxAtom())
	require.Len(t, st.Globals, 1)

	// The only statement references just the package-level counter.
	require.Empty(t, st.LocalsUsed[1])
}

const nestedSrc = `package main

func pick(n int) int {
	if n > 0 {
		n = n - 1
		return n
	}
	for i := 0; i < n; i++ {
		n = n + i
	}
	return n
}
`

func TestNestedStatementsAreNumbered(t *testing.T) {
	st := loadProgram(t, nestedSrc)

	// if, its two body statements, the loop, its body statement, and the
	// trailing return.
	require.Equal(t, m.AtomID(6), st.MaxAtom())
}
