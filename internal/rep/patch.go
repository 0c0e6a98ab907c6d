package rep

import (
	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/store"
)

// PatchRep is the patch-form representation: the original atom store shared
// read-only plus an ordered edit history. The concrete mutated trees are
// built on demand at materialization time.
type PatchRep struct {
	base
}

// NewPatch builds an empty patch-form variant over a frozen store.
func NewPatch(st *store.AtomStore, provider adapter.ASTProvider, opts Options) *PatchRep {
	return &PatchRep{base: base{
		st:       st,
		provider: provider,
		opts:     opts,
	}}
}

// Clone copies the history and localization; the store stays shared.
func (p *PatchRep) Clone() Representation {
	cp := &PatchRep{base: p.base}
	cp.history = p.history.Clone()
	cp.fault = p.fault.Clone()
	cp.fix = p.fix.Clone()
	cp.dirty = false

	return cp
}

// SetHistory replaces the edit list wholesale.
func (p *PatchRep) SetHistory(h m.History) {
	p.history = h.Clone()
	p.dirty = true
}

// Apply validates and records one edit; application is deferred to
// materialization.
func (p *PatchRep) Apply(e m.Edit) error { return p.record(e) }

// Delete records a delete edit for x.
func (p *PatchRep) Delete(x m.AtomID) error { return p.Apply(m.Delete(x)) }

// Append records an append edit inlining a clone of y after x.
func (p *PatchRep) Append(x, y m.AtomID) error { return p.Apply(m.Append(x, y)) }

// Swap records a swap edit exchanging the bodies of x and y.
func (p *PatchRep) Swap(x, y m.AtomID) error { return p.Apply(m.Swap(x, y)) }

// Replace records a replace edit substituting a clone of y for x.
func (p *PatchRep) Replace(x, y m.AtomID) error { return p.Apply(m.Replace(x, y)) }

// Materialize folds the history over the original trees and prints them.
func (p *PatchRep) Materialize() (map[m.Path]string, error) {
	files, err := p.materialize(nil)
	if err != nil {
		return nil, err
	}

	return p.print(files)
}

// Instrument renders the coverage-instrumented program.
func (p *PatchRep) Instrument(tracePath m.Path, opts CoverageOptions) (map[m.Path]string, error) {
	return instrument(&p.base, tracePath, opts)
}
