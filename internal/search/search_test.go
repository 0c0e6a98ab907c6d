package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
	"github.com/whr0724/genprog-code/internal/store"
)

// memFS serves file contents from a map; everything else is a stub.
type memFS struct {
	files map[m.Path][]byte
}

func newMemFS(files map[m.Path]string) *memFS {
	out := &memFS{files: make(map[m.Path][]byte)}
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

func (f *memFS) WriteFile(m.Path, []byte, os.FileMode) error { return nil }
func (f *memFS) HashFile(m.Path) (string, error)             { return "", nil }
func (f *memFS) FindProjectRoot(m.Path) (m.Path, error)      { return "/project", nil }
func (f *memFS) CreateTempDir(string) (m.Path, error)        { return "/tmp/fake", nil }
func (f *memFS) RemoveAll(m.Path) error                      { return nil }
func (f *memFS) CopyDir(m.Path, m.Path) error                { return nil }

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

// loadVariant parses computeSrc and installs the given localization.
func loadVariant(t *testing.T, fault, fix m.Localization) rep.Representation {
	t.Helper()

	fs := newMemFS(map[m.Path]string{"/project/main.go": computeSrc})
	loader := rep.NewLoader(adapter.NewGoASTAdapter(), fs)

	st, err := loader.Load([]m.Path{"/project/main.go"})
	require.NoError(t, err)

	v := rep.NewPatch(st, adapter.NewGoASTAdapter(), rep.Options{Check: store.CheckScope})
	v.SetLocalization(fault, fix)

	return v
}

func defaultFault() m.Localization {
	return m.Localization{
		{ID: 2, Weight: 1.0},
		{ID: 1, Weight: 0.5},
		{ID: 3, Weight: 0.5},
	}
}

func defaultFix() m.Localization {
	return m.Localization{{ID: 3, Weight: 0.2}}
}

// fakeEval scores variants by fingerprint.
type fakeEval struct {
	max   float64
	score func(fingerprint string) float64
	calls int
}

func (e *fakeEval) MaxFitness() float64 { return e.max }

func (e *fakeEval) Evaluate(_ context.Context, r rep.Representation) (float64, error) {
	e.calls++
	return e.score(r.Fingerprint()), nil
}
