package rep

import (
	"go/ast"

	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/store"
)

// TreeRep is the whole-tree representation: the transform runs eagerly at
// mutation time against a privately owned materialized copy. The history is
// kept as provenance and drives re-materialization after every edit.
type TreeRep struct {
	base

	trees map[m.Path]*ast.File
}

// NewTree builds an empty whole-tree variant over a frozen store.
func NewTree(st *store.AtomStore, provider adapter.ASTProvider, opts Options) (*TreeRep, error) {
	t := &TreeRep{base: base{
		st:       st,
		provider: provider,
		opts:     opts,
	}}

	if err := t.rebuild(); err != nil {
		return nil, err
	}

	return t, nil
}

// Clone copies the history and rebuilds private trees from it.
func (t *TreeRep) Clone() Representation {
	cp := &TreeRep{base: t.base}
	cp.history = t.history.Clone()
	cp.fault = t.fault.Clone()
	cp.fix = t.fix.Clone()
	cp.dirty = false

	// Rebuilding from the shared bank is equivalent to deep-copying the
	// private trees: the history fully determines them.
	if err := cp.rebuild(); err != nil {
		cp.trees = nil
	}

	return cp
}

// SetHistory replaces the edit list and re-materializes.
func (t *TreeRep) SetHistory(h m.History) {
	t.history = h.Clone()
	t.dirty = true
	_ = t.rebuild()
}

// Apply validates, records and immediately applies one edit.
func (t *TreeRep) Apply(e m.Edit) error {
	if err := t.record(e); err != nil {
		return err
	}

	return t.rebuild()
}

// Delete applies a delete edit for x.
func (t *TreeRep) Delete(x m.AtomID) error { return t.Apply(m.Delete(x)) }

// Append applies an append edit inlining a clone of y after x.
func (t *TreeRep) Append(x, y m.AtomID) error { return t.Apply(m.Append(x, y)) }

// Swap applies a swap edit exchanging the bodies of x and y.
func (t *TreeRep) Swap(x, y m.AtomID) error { return t.Apply(m.Swap(x, y)) }

// Replace applies a replace edit substituting a clone of y for x.
func (t *TreeRep) Replace(x, y m.AtomID) error { return t.Apply(m.Replace(x, y)) }

// Materialize prints the already-applied private trees.
func (t *TreeRep) Materialize() (map[m.Path]string, error) {
	if t.trees == nil || t.dirty {
		if err := t.rebuild(); err != nil {
			return nil, err
		}
	}

	return t.print(t.trees)
}

// Instrument renders the coverage-instrumented program.
func (t *TreeRep) Instrument(tracePath m.Path, opts CoverageOptions) (map[m.Path]string, error) {
	return instrument(&t.base, tracePath, opts)
}

func (t *TreeRep) rebuild() error {
	trees, err := t.materialize(nil)
	if err != nil {
		return err
	}

	t.trees = trees
	t.dirty = false

	return nil
}
