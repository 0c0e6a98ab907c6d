package fitness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
)

// memFS serves file contents from a map and records writes.
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

func (f *memFS) HashFile(m.Path) (string, error)        { return "", nil }
func (f *memFS) FindProjectRoot(m.Path) (m.Path, error) { return "/project", nil }
func (f *memFS) CreateTempDir(string) (m.Path, error)   { return "/tmp/eval", nil }
func (f *memFS) RemoveAll(m.Path) error                 { return nil }
func (f *memFS) CopyDir(m.Path, m.Path) error           { return nil }

func (f *memFS) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	return m.Path(rel), err
}

func (f *memFS) JoinPath(elem ...string) m.Path { return m.Path(filepath.Join(elem...)) }

// fakeRunner reports compile and per-test outcomes from fixed maps.
type fakeRunner struct {
	compileErr error
	failing    map[string]bool
}

func (r *fakeRunner) Compile(context.Context, string) (string, error) {
	return "", r.compileErr
}

func (r *fakeRunner) RunTest(_ context.Context, _ string, testName string) (string, error) {
	if r.failing[testName] {
		return "FAIL", errors.New("test failed")
	}

	return "ok", nil
}

const evalSrc = `package main

func compute() int {
	a := 0
	a = a + 1
	return a
}
`

func loadVariant(t *testing.T, fs *memFS) rep.Representation {
	t.Helper()

	loader := rep.NewLoader(adapter.NewGoASTAdapter(), fs)

	st, err := loader.Load([]m.Path{"/project/main.go"})
	require.NoError(t, err)

	return rep.NewPatch(st, adapter.NewGoASTAdapter(), rep.Options{})
}

func testConfig() Config {
	return Config{
		ProjectRoot:   "/project",
		PositiveTests: []string{"TestA", "TestB"},
		NegativeTests: []string{"TestBug1", "TestBug2"},
	}
}

func TestMaxFitnessIsPositiveTestCount(t *testing.T) {
	eval := NewTestEvaluator(newMemFS(nil), &fakeRunner{}, testConfig())
	require.Equal(t, 2.0, eval.MaxFitness())
}

func TestEvaluateAllTestsPassReachesMax(t *testing.T) {
	fs := newMemFS(map[m.Path]string{"/project/main.go": evalSrc})
	v := loadVariant(t, fs)

	eval := NewTestEvaluator(fs, &fakeRunner{failing: map[string]bool{}}, testConfig())

	score, err := eval.Evaluate(context.Background(), v)
	require.NoError(t, err)
	require.Equal(t, eval.MaxFitness(), score)
	require.True(t, IsSolution(eval, score))
}

func TestEvaluatePartialNegatives(t *testing.T) {
	fs := newMemFS(map[m.Path]string{"/project/main.go": evalSrc})
	v := loadVariant(t, fs)

	runner := &fakeRunner{failing: map[string]bool{"TestBug2": true}}
	eval := NewTestEvaluator(fs, runner, testConfig())

	// 2 positives pass, 1 of 2 negatives passes: 2 * 1/2.
	score, err := eval.Evaluate(context.Background(), v)
	require.NoError(t, err)
	require.Equal(t, 1.0, score)
	require.False(t, IsSolution(eval, score))
}

func TestEvaluateBrokenPositiveStaysBelowMax(t *testing.T) {
	fs := newMemFS(map[m.Path]string{"/project/main.go": evalSrc})
	v := loadVariant(t, fs)

	runner := &fakeRunner{failing: map[string]bool{"TestA": true}}
	eval := NewTestEvaluator(fs, runner, testConfig())

	score, err := eval.Evaluate(context.Background(), v)
	require.NoError(t, err)
	require.Equal(t, 1.0, score)
	require.False(t, IsSolution(eval, score))
}

func TestEvaluateCompileFailureIsSentinelZero(t *testing.T) {
	fs := newMemFS(map[m.Path]string{"/project/main.go": evalSrc})
	v := loadVariant(t, fs)

	runner := &fakeRunner{compileErr: errors.New("syntax error")}
	eval := NewTestEvaluator(fs, runner, testConfig())

	score, err := eval.Evaluate(context.Background(), v)
	require.NoError(t, err)
	require.Zero(t, score)
}

func TestEvaluateStagesVariantFiles(t *testing.T) {
	fs := newMemFS(map[m.Path]string{"/project/main.go": evalSrc})
	v := loadVariant(t, fs)
	require.NoError(t, v.Delete(2))

	eval := NewTestEvaluator(fs, &fakeRunner{}, testConfig())

	_, err := eval.Evaluate(context.Background(), v)
	require.NoError(t, err)

	staged, ok := fs.written[m.Path(filepath.Join("/tmp/eval", "main.go"))]
	require.True(t, ok)
	require.NotContains(t, string(staged), "a = a + 1")
}

func TestEvaluateNoNegativeTests(t *testing.T) {
	fs := newMemFS(map[m.Path]string{"/project/main.go": evalSrc})
	v := loadVariant(t, fs)

	cfg := Config{ProjectRoot: "/project", PositiveTests: []string{"TestA"}}
	eval := NewTestEvaluator(fs, &fakeRunner{}, cfg)

	score, err := eval.Evaluate(context.Background(), v)
	require.NoError(t, err)
	require.Equal(t, 1.0, score)
	require.True(t, IsSolution(eval, score))
}
