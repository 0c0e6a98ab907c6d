// Package rep implements the candidate-variant representations: a shared
// read-only atom store plus an edit history, materialized into concrete
// trees either lazily (patch form) or eagerly (whole-tree form).
package rep

import (
	"fmt"
	"go/ast"
	"log/slog"

	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/store"
)

// TemplateFunc applies a named code template. It receives the statement
// currently occupying the destination slot and returns its replacement.
type TemplateFunc func(prov adapter.ASTProvider, st *store.AtomStore, bindings map[string]m.AtomID, current ast.Stmt) (ast.Stmt, error)

// xform materializes one history against the original trees. The original
// nodes are never mutated; every changed region is built from copies, so
// the atom store stays shareable.
//
// Materialization runs in two phases. First the history is folded over a
// per-slot state map: each edit rewrites the body currently occupying its
// destination slot, so later edits see the result of earlier ones and swap
// fires at both endpoints against current bodies, keeping it self-inverse.
// Donor statements always enter as fresh clones, which carry no identity,
// so an edit keying on the donor id cannot fire a second time inside a
// copy. The second phase walks the original trees substituting the final
// slot states.
type xform struct {
	store    *store.AtomStore
	provider adapter.ASTProvider

	history   m.History
	swapBug   bool
	templates map[string]TemplateFunc

	// state holds the final body per edited slot.
	state    map[m.AtomID]ast.Stmt
	visiting map[m.AtomID]bool

	// instrument, when non-nil, wraps every numbered statement after
	// substitution. Used by coverage emission.
	instrument func(id m.AtomID, stmt ast.Stmt) ast.Stmt

	seen map[ast.Stmt]struct{}
	err  error
}

func newXform(st *store.AtomStore, prov adapter.ASTProvider, h m.History, swapBug bool, templates map[string]TemplateFunc) *xform {
	return &xform{
		store:     st,
		provider:  prov,
		history:   h,
		swapBug:   swapBug,
		templates: templates,
		state:     make(map[m.AtomID]ast.Stmt),
		visiting:  make(map[m.AtomID]bool),
		seen:      make(map[ast.Stmt]struct{}),
	}
}

// computeStates folds the history in order over the slot map.
func (x *xform) computeStates() {
	for _, e := range x.history {
		switch e.Kind {
		case m.EditDelete:
			x.state[e.Dest] = &ast.BlockStmt{}
		case m.EditAppend:
			donor := x.bankClone(e.Src)
			if donor == nil {
				continue
			}

			x.state[e.Dest] = &ast.BlockStmt{List: []ast.Stmt{x.slot(e.Dest), donor}}
		case m.EditReplace:
			donor := x.bankClone(e.Src)
			if donor == nil {
				continue
			}

			x.state[e.Dest] = &ast.BlockStmt{List: []ast.Stmt{donor}}
		case m.EditSwap:
			x.foldSwap(e)
		case m.EditReplaceSubatom:
			x.foldSubatom(e)
		case m.EditTemplate:
			x.foldTemplate(e)
		}
	}
}

// foldSwap exchanges the current bodies of the two endpoints. The exchange
// is simultaneous, which is what makes a repeated swap restore the
// original. Legacy swap-bug mode reproduces the historical behavior
// instead: delete at min(x, y), then append the bank body of max(x, y)
// there.
func (x *xform) foldSwap(e m.Edit) {
	if x.swapBug {
		lo, hi := e.Dest, e.Src
		if hi < lo {
			lo, hi = hi, lo
		}

		donor := x.bankClone(hi)
		if donor == nil {
			return
		}

		x.state[lo] = &ast.BlockStmt{List: []ast.Stmt{&ast.BlockStmt{}, donor}}

		return
	}

	a := x.slot(e.Dest)
	b := x.slot(e.Src)

	x.state[e.Dest] = x.provider.CloneStmt(b)
	x.state[e.Src] = x.provider.CloneStmt(a)
}

func (x *xform) foldSubatom(e m.Edit) {
	var repl ast.Expr

	if e.SubatomConst {
		repl = x.provider.ZeroConst()
	} else {
		donor := x.store.Stmt(e.Src)
		if donor == nil {
			x.fail(fmt.Errorf("subatom edit references unknown statement %d", e.Src))
			return
		}

		atoms := x.provider.SubatomsOf(donor)
		if e.SrcSubatom < 0 || e.SrcSubatom >= len(atoms) {
			x.fail(fmt.Errorf("statement %d has no subatom %d", e.Src, e.SrcSubatom))
			return
		}

		repl = atoms[e.SrcSubatom]
	}

	out, ok := x.provider.ReplaceSubatomIn(x.slot(e.Dest), e.SubatomIndex, repl)
	if !ok {
		slog.Warn("subatom index out of range after earlier edits",
			"dest", e.Dest, "index", e.SubatomIndex)

		return
	}

	x.state[e.Dest] = out
}

func (x *xform) foldTemplate(e m.Edit) {
	tmpl, ok := x.templates[e.Template]
	if !ok {
		slog.Warn("skipping unknown template", "template", e.Template)
		return
	}

	for _, id := range e.Bindings {
		out, err := tmpl(x.provider, x.store, e.Bindings, x.slot(id))
		if err != nil {
			slog.Warn("template application failed", "template", e.Template, "error", err)
			continue
		}

		x.state[id] = out
	}
}

// slot returns the body currently occupying id's slot: its accumulated
// state, or the original statement with nested edits applied when the slot
// is untouched so far.
func (x *xform) slot(id m.AtomID) ast.Stmt {
	if s, ok := x.state[id]; ok {
		return s
	}

	if x.visiting[id] {
		// A statement swapped into its own subtree; fall back to the bank.
		return x.bankClone(id)
	}

	orig := x.store.Stmt(id)
	if orig == nil {
		x.fail(fmt.Errorf("edit references unknown statement %d", id))
		return &ast.BlockStmt{}
	}

	x.visiting[id] = true
	defer delete(x.visiting, id)

	return x.rewriteChildren(orig, false)
}

// materializeFile produces a rewritten copy of one original file.
// computeStates must have run first.
func (x *xform) materializeFile(file *ast.File) (*ast.File, error) {
	out := *file
	out.Decls = make([]ast.Decl, len(file.Decls))

	for i, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			out.Decls[i] = decl
			continue
		}

		cp := *fn
		cp.Body = x.rewriteBlock(fn.Body, true)
		out.Decls[i] = &cp
	}

	if x.err != nil {
		return nil, x.err
	}

	return &out, nil
}

func (x *xform) rewriteBlock(b *ast.BlockStmt, final bool) *ast.BlockStmt {
	if b == nil {
		return nil
	}

	out := &ast.BlockStmt{Lbrace: b.Lbrace, Rbrace: b.Rbrace}
	out.List = make([]ast.Stmt, 0, len(b.List))

	for _, s := range b.List {
		out.List = append(out.List, x.rewriteStmt(s, final))
	}

	return out
}

// rewriteStmt rebuilds one statement. In the final walk an edited slot is
// substituted by its computed state; everywhere else nested statement
// lists are rebuilt so inner edits apply. The duplicate guard zeroes the
// identity of any original node encountered a second time.
func (x *xform) rewriteStmt(s ast.Stmt, final bool) ast.Stmt {
	id := x.store.IDOf(s)

	if id.IsValid() && final {
		if _, dup := x.seen[s]; dup {
			id = m.NoAtom
		} else {
			x.seen[s] = struct{}{}
		}
	}

	// An edited slot substitutes its computed state: the final state in the
	// walk, the state accumulated so far during slot evaluation.
	var current ast.Stmt

	if id.IsValid() {
		if st, ok := x.state[id]; ok {
			current = st
		}
	}

	if current == nil {
		current = x.rewriteChildren(s, final)
	}

	if final && x.instrument != nil && id.IsValid() {
		current = x.instrument(id, current)
	}

	return current
}

// rewriteChildren rebuilds the nested statement lists of s without
// touching the original nodes. Statements without nested lists pass
// through.
func (x *xform) rewriteChildren(s ast.Stmt, final bool) ast.Stmt {
	switch st := s.(type) {
	case *ast.BlockStmt:
		return x.rewriteBlock(st, final)
	case *ast.IfStmt:
		cp := *st
		cp.Body = x.rewriteBlock(st.Body, final)

		if st.Else != nil {
			cp.Else = x.rewriteStmt(st.Else, final)
		}

		return &cp
	case *ast.ForStmt:
		cp := *st
		cp.Body = x.rewriteBlock(st.Body, final)

		return &cp
	case *ast.RangeStmt:
		cp := *st
		cp.Body = x.rewriteBlock(st.Body, final)

		return &cp
	case *ast.SwitchStmt:
		cp := *st
		cp.Body = x.rewriteClauseBlock(st.Body, final)

		return &cp
	case *ast.TypeSwitchStmt:
		cp := *st
		cp.Body = x.rewriteClauseBlock(st.Body, final)

		return &cp
	case *ast.SelectStmt:
		cp := *st
		cp.Body = x.rewriteClauseBlock(st.Body, final)

		return &cp
	case *ast.LabeledStmt:
		cp := *st
		cp.Stmt = x.rewriteStmt(st.Stmt, final)

		return &cp
	}

	return s
}

func (x *xform) rewriteClauseBlock(b *ast.BlockStmt, final bool) *ast.BlockStmt {
	if b == nil {
		return nil
	}

	out := &ast.BlockStmt{Lbrace: b.Lbrace, Rbrace: b.Rbrace}

	for _, clause := range b.List {
		switch c := clause.(type) {
		case *ast.CaseClause:
			cp := *c
			cp.Body = x.rewriteStmts(c.Body, final)
			out.List = append(out.List, &cp)
		case *ast.CommClause:
			cp := *c
			cp.Body = x.rewriteStmts(c.Body, final)
			out.List = append(out.List, &cp)
		default:
			out.List = append(out.List, x.rewriteStmt(clause, final))
		}
	}

	return out
}

func (x *xform) rewriteStmts(list []ast.Stmt, final bool) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(list))
	for _, s := range list {
		out = append(out, x.rewriteStmt(s, final))
	}

	return out
}

// bankClone clones the original statement for id from the code bank.
func (x *xform) bankClone(id m.AtomID) ast.Stmt {
	orig := x.store.Stmt(id)
	if orig == nil {
		x.fail(fmt.Errorf("edit references unknown statement %d", id))
		return nil
	}

	return x.provider.CloneStmt(orig)
}

func (x *xform) fail(err error) {
	if x.err == nil {
		x.err = err
	}
}
