package rep

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/store"
)

// memFS serves file contents from a map; write operations are recorded so
// tests can assert on staged output.
type memFS struct {
	files   map[m.Path][]byte
	written map[m.Path][]byte
}

func newMemFS(files map[m.Path]string) *memFS {
	out := &memFS{files: make(map[m.Path][]byte), written: make(map[m.Path][]byte)}
	for path, src := range files {
		out.files[path] = []byte(src)
	}

	return out
}

func (f *memFS) ReadFile(path m.Path) ([]byte, error) {
	src, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file %s", path)
	}

	return src, nil
}

func (f *memFS) WriteFile(path m.Path, content []byte, _ os.FileMode) error {
	f.written[path] = content
	return nil
}

func (f *memFS) HashFile(m.Path) (string, error) { return "", nil }

func (f *memFS) FindProjectRoot(m.Path) (m.Path, error) { return "/project", nil }

func (f *memFS) CreateTempDir(string) (m.Path, error) { return "/tmp/fake", nil }

func (f *memFS) RemoveAll(m.Path) error { return nil }

func (f *memFS) CopyDir(m.Path, m.Path) error { return nil }

func (f *memFS) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	return m.Path(rel), err
}

func (f *memFS) JoinPath(elem ...string) m.Path { return m.Path(filepath.Join(elem...)) }

const computeSrc = `package main

func compute() int {
	a := 0
	a = a + 1
	return a
}
`

const swapSrc = `package main

func set() int {
	x := 1
	x = 2
	return x
}
`

func loadProgram(t *testing.T, src string) *store.AtomStore {
	t.Helper()

	fs := newMemFS(map[m.Path]string{"/project/main.go": src})
	loader := NewLoader(adapter.NewGoASTAdapter(), fs)

	st, err := loader.Load([]m.Path{"/project/main.go"})
	require.NoError(t, err)

	return st
}

func newPatchVariant(t *testing.T, src string) *PatchRep {
	t.Helper()

	st := loadProgram(t, src)

	return NewPatch(st, adapter.NewGoASTAdapter(), Options{Check: store.CheckScope})
}

func materializeOne(t *testing.T, r Representation) string {
	t.Helper()

	files, err := r.Materialize()
	require.NoError(t, err)
	require.Len(t, files, 1)

	for _, src := range files {
		return src
	}

	return ""
}

func TestDeleteRemovesStatement(t *testing.T) {
	v := newPatchVariant(t, computeSrc)

	require.NoError(t, v.Delete(2))

	out := materializeOne(t, v)
	require.NotContains(t, out, "a = a + 1")
	require.Contains(t, out, "a := 0")
	require.Contains(t, out, "return a")
}

func TestAppendInlinesCloneAfterDestination(t *testing.T) {
	v := newPatchVariant(t, computeSrc)

	// After "a := 0" inline a clone of "return a": the early return makes
	// the increment unreachable.
	require.NoError(t, v.Append(1, 3))

	out := materializeOne(t, v)

	firstReturn := strings.Index(out, "return a")
	increment := strings.Index(out, "a = a + 1")

	require.GreaterOrEqual(t, firstReturn, 0)
	require.GreaterOrEqual(t, increment, 0)
	require.Less(t, firstReturn, increment)
}

func TestSwapExchangesBothEndpoints(t *testing.T) {
	v := newPatchVariant(t, swapSrc)

	require.NoError(t, v.Swap(1, 2))

	out := materializeOne(t, v)

	assign := strings.Index(out, "x = 2")
	declare := strings.Index(out, "x := 1")

	require.GreaterOrEqual(t, assign, 0)
	require.GreaterOrEqual(t, declare, 0)
	require.Less(t, assign, declare)
}

func TestSwapIsSelfInverse(t *testing.T) {
	pristine := newPatchVariant(t, swapSrc)
	original := materializeOne(t, pristine)

	v := newPatchVariant(t, swapSrc)
	require.NoError(t, v.Swap(1, 2))
	require.NoError(t, v.Swap(1, 2))

	require.Equal(t, original, materializeOne(t, v))
}

func TestLegacySwapBugMode(t *testing.T) {
	st := loadProgram(t, swapSrc)
	v := NewPatch(st, adapter.NewGoASTAdapter(), Options{SwapBug: true})

	require.NoError(t, v.Swap(1, 2))

	out := materializeOne(t, v)

	// Legacy behavior deletes at min(x, y) and appends max's body there,
	// so "x := 1" is gone entirely.
	require.NotContains(t, out, "x := 1")
	require.Contains(t, out, "x = 2")
}

func TestReplaceLastWriteWins(t *testing.T) {
	direct := newPatchVariant(t, computeSrc)
	require.NoError(t, direct.Replace(1, 3))

	chained := newPatchVariant(t, computeSrc)
	require.NoError(t, chained.Replace(1, 2))
	require.NoError(t, chained.Replace(1, 3))

	require.Equal(t, materializeOne(t, direct), materializeOne(t, chained))
}

func TestLaterEditsDoNotFireOnClones(t *testing.T) {
	v := newPatchVariant(t, computeSrc)

	// Inline a clone of statement 2 after statement 1, then delete the
	// original statement 2. The clone's identity is zeroed, so exactly one
	// copy of the increment survives.
	require.NoError(t, v.Append(1, 2))
	require.NoError(t, v.Delete(2))

	out := materializeOne(t, v)
	require.Equal(t, 1, strings.Count(out, "a = a + 1"))
}

func TestApplyRejectsUnknownIDs(t *testing.T) {
	v := newPatchVariant(t, computeSrc)

	require.Error(t, v.Delete(0))
	require.Error(t, v.Delete(99))
	require.Error(t, v.Append(1, 99))
	require.Error(t, v.Swap(99, 1))
}

func TestCloneIsIndependent(t *testing.T) {
	v := newPatchVariant(t, computeSrc)
	require.NoError(t, v.Delete(2))

	clone := v.Clone()
	require.NoError(t, clone.Append(1, 3))

	require.Len(t, v.History(), 1)
	require.Len(t, clone.History(), 2)
	require.Equal(t, "d(2)", v.Fingerprint())
}

func TestPatchAndTreeFormsAgree(t *testing.T) {
	st := loadProgram(t, computeSrc)
	prov := adapter.NewGoASTAdapter()

	patch := NewPatch(st, prov, Options{})
	require.NoError(t, patch.Delete(2))
	require.NoError(t, patch.Append(1, 3))

	tree, err := NewTree(st, prov, Options{})
	require.NoError(t, err)
	require.NoError(t, tree.Delete(2))
	require.NoError(t, tree.Append(1, 3))

	patchOut, err := patch.Materialize()
	require.NoError(t, err)

	treeOut, err := tree.Materialize()
	require.NoError(t, err)

	require.Equal(t, patchOut, treeOut)
}

func TestReplaceSubatomWithConstant(t *testing.T) {
	v := newPatchVariant(t, computeSrc)

	// Statement 2 is "a = a + 1"; subatom 0 is the whole right-hand side.
	require.NoError(t, v.Apply(m.ReplaceSubatomConst(2, 0)))

	out := materializeOne(t, v)
	require.Contains(t, out, "a = 0")
	require.NotContains(t, out, "a = a + 1")
}

func TestSubatomCount(t *testing.T) {
	v := newPatchVariant(t, computeSrc)

	// "a = a + 1": the binary expression plus its two operands.
	require.Equal(t, 3, v.SubatomCount(2))
	// "return a" exposes its single result expression.
	require.Equal(t, 1, v.SubatomCount(3))
	require.Equal(t, 0, v.SubatomCount(99))
}

func TestWriteVariant(t *testing.T) {
	fs := newMemFS(map[m.Path]string{"/project/main.go": computeSrc})
	loader := NewLoader(adapter.NewGoASTAdapter(), fs)

	st, err := loader.Load([]m.Path{"/project/main.go"})
	require.NoError(t, err)

	v := NewPatch(st, adapter.NewGoASTAdapter(), Options{})
	require.NoError(t, v.Delete(2))

	require.NoError(t, WriteVariant(v, fs, "/out"))

	written, ok := fs.written["/out/main.go"]
	require.True(t, ok)
	require.NotContains(t, string(written), "a = a + 1")
}

func TestSetHistoryReplacesEdits(t *testing.T) {
	v := newPatchVariant(t, computeSrc)
	require.NoError(t, v.Delete(2))

	v.SetHistory(m.History{m.Delete(3)})

	require.Equal(t, "d(3)", v.Fingerprint())

	out := materializeOne(t, v)
	require.Contains(t, out, "a = a + 1")
	require.NotContains(t, out, "return a")
}
