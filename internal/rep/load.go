package rep

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/store"
)

// Loader parses and numbers the target program, producing a frozen
// AtomStore.
type Loader struct {
	provider adapter.ASTProvider
	fs       adapter.SourceFSAdapter
}

// NewLoader constructs a Loader.
func NewLoader(provider adapter.ASTProvider, fs adapter.SourceFSAdapter) *Loader {
	return &Loader{provider: provider, fs: fs}
}

// Load reads, parses and numbers the given source files. Files are
// processed in sorted path order so numbering is reproducible.
func (l *Loader) Load(files []m.Path) (*store.AtomStore, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	st := store.NewAtomStore()

	sorted := make([]m.Path, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, path := range sorted {
		if filepath.Ext(string(path)) != ".go" {
			return nil, fmt.Errorf("unknown input extension on %s (want .go)", path)
		}

		src, err := l.fs.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		file, err := l.provider.Parse(st.FileSet, string(path), src)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		st.AddFile(path, file)
	}

	for _, path := range sorted {
		collectGlobals(st, st.Files[path])
	}

	for _, path := range sorted {
		n := &numberer{st: st, path: path}
		n.fileDecls(st.Files[path])

		if n.err != nil {
			return nil, fmt.Errorf("number %s: %w", path, n.err)
		}
	}

	if err := l.canonicalize(st); err != nil {
		return nil, err
	}

	if err := st.Freeze(); err != nil {
		return nil, err
	}

	slog.Debug("loaded program", "files", len(files), "atoms", st.MaxAtom())

	return st, nil
}

// canonicalize maps statements with identical printed forms onto one
// representative id for fix-site queries.
func (l *Loader) canonicalize(st *store.AtomStore) error {
	seen := make(map[string]m.AtomID)

	for id := m.AtomID(1); id <= st.MaxAtom(); id++ {
		text, err := l.provider.PrintStmt(st.FileSet, st.Stmt(id))
		if err != nil {
			return fmt.Errorf("canonicalize statement %d: %w", id, err)
		}

		if rep, ok := seen[text]; ok {
			st.SetCanonical(id, rep)
			continue
		}

		seen[text] = id
	}

	return nil
}

func collectGlobals(st *store.AtomStore, file *ast.File) {
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || (gen.Tok != token.VAR && gen.Tok != token.CONST) {
			continue
		}

		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}

			typ := ""
			if vs.Type != nil {
				typ = types.ExprString(vs.Type)
			}

			for _, name := range vs.Names {
				if name.Name == "_" {
					continue
				}

				id := st.InternVar("g:"+name.Name, name.Name, typ)
				st.Globals.Add(id)
			}
		}
	}
}

// numberer walks one file assigning statement ids and recording scope
// tables. The scope stack mirrors Go's block structure; locals_have at a
// statement includes the statement's own declarations.
type numberer struct {
	st   *store.AtomStore
	path m.Path

	funcName string
	scopes   []map[string]m.VarID
	serial   int
	err      error
}

func (n *numberer) fileDecls(file *ast.File) {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}

		n.funcName = fn.Name.Name
		n.scopes = []map[string]m.VarID{{}}

		if fn.Recv != nil {
			n.declareFields(fn.Recv)
		}

		if fn.Type.Params != nil {
			n.declareFields(fn.Type.Params)
		}

		if fn.Type.Results != nil {
			n.declareFields(fn.Type.Results)
		}

		n.block(fn.Body)
	}
}

func (n *numberer) declareFields(fields *ast.FieldList) {
	for _, field := range fields.List {
		typ := ""
		if field.Type != nil {
			typ = types.ExprString(field.Type)
		}

		for _, name := range field.Names {
			n.declare(name.Name, typ)
		}
	}
}

func (n *numberer) declare(name, typ string) {
	if name == "" || name == "_" {
		return
	}

	n.serial++
	key := fmt.Sprintf("%s:%s:%d", n.funcName, name, n.serial)
	id := n.st.InternVar(key, name, typ)
	n.scopes[len(n.scopes)-1][name] = id
}

func (n *numberer) lookup(name string) (m.VarID, bool) {
	for i := len(n.scopes) - 1; i >= 0; i-- {
		if id, ok := n.scopes[i][name]; ok {
			return id, true
		}
	}

	return 0, false
}

func (n *numberer) visible() m.VarSet {
	out := make(m.VarSet)
	for _, scope := range n.scopes {
		for _, id := range scope {
			out.Add(id)
		}
	}

	return out
}

func (n *numberer) push() { n.scopes = append(n.scopes, map[string]m.VarID{}) }

func (n *numberer) pop() { n.scopes = n.scopes[:len(n.scopes)-1] }

// block numbers the statements of a block in its own scope. Empty blocks
// get a dummy statement so later edits have a handle.
func (n *numberer) block(b *ast.BlockStmt) {
	if b == nil {
		return
	}

	n.push()
	defer n.pop()

	if len(b.List) == 0 {
		b.List = append(b.List, &ast.EmptyStmt{Implicit: true})
	}

	for _, s := range b.List {
		n.stmt(s)
	}
}

func (n *numberer) stmt(s ast.Stmt) {
	if n.err != nil {
		return
	}

	used := n.usedVars(s)
	n.applyDecls(s)

	if isMutatable(s) {
		site := m.StmtSite{Function: n.funcName, File: n.path}

		if _, err := n.st.Register(s, site, n.visible(), used); err != nil {
			n.err = err
			return
		}
	}

	n.children(s)
}

// isMutatable reports whether a statement kind is in the numbered set:
// ordinary instructions, return, if and loops. Branching, switching,
// compound blocks and deferred handlers are excluded.
func isMutatable(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.ExprStmt, *ast.AssignStmt, *ast.IncDecStmt, *ast.SendStmt,
		*ast.DeclStmt, *ast.ReturnStmt, *ast.IfStmt, *ast.ForStmt,
		*ast.RangeStmt, *ast.EmptyStmt, *ast.GoStmt:
		return true
	}

	return false
}

// applyDecls adds the statement's own declarations to the current scope.
// Header declarations of if/for/range belong to the nested scopes opened in
// children.
func (n *numberer) applyDecls(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.DeclStmt:
		gen, ok := st.Decl.(*ast.GenDecl)
		if !ok {
			return
		}

		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}

			typ := ""
			if vs.Type != nil {
				typ = types.ExprString(vs.Type)
			}

			for _, name := range vs.Names {
				n.declare(name.Name, typ)
			}
		}
	case *ast.AssignStmt:
		if st.Tok != token.DEFINE {
			return
		}

		for _, lhs := range st.Lhs {
			if id, ok := lhs.(*ast.Ident); ok {
				n.declare(id.Name, "")
			}
		}
	}
}

func (n *numberer) children(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.BlockStmt:
		n.block(st)
	case *ast.IfStmt:
		n.ifChain(st)
	case *ast.ForStmt:
		n.push()
		if st.Init != nil {
			n.applyDecls(st.Init)
		}

		n.block(st.Body)
		n.pop()
	case *ast.RangeStmt:
		n.push()
		if st.Tok == token.DEFINE {
			if id, ok := st.Key.(*ast.Ident); ok {
				n.declare(id.Name, "")
			}

			if id, ok := st.Value.(*ast.Ident); ok {
				n.declare(id.Name, "")
			}
		}

		n.block(st.Body)
		n.pop()
	case *ast.SwitchStmt:
		n.push()
		if st.Init != nil {
			n.applyDecls(st.Init)
		}

		n.clauses(st.Body)
		n.pop()
	case *ast.TypeSwitchStmt:
		n.push()
		if assign, ok := st.Assign.(*ast.AssignStmt); ok {
			n.applyDecls(assign)
		}

		n.clauses(st.Body)
		n.pop()
	case *ast.SelectStmt:
		n.clauses(st.Body)
	case *ast.LabeledStmt:
		n.stmt(st.Stmt)
	}
}

// ifChain numbers the bodies of an if/else-if chain. Only the head of the
// chain carries an id; nested else-if headers are scope containers.
func (n *numberer) ifChain(st *ast.IfStmt) {
	n.push()
	defer n.pop()

	if st.Init != nil {
		n.applyDecls(st.Init)
	}

	n.block(st.Body)

	switch e := st.Else.(type) {
	case *ast.BlockStmt:
		n.block(e)
	case *ast.IfStmt:
		n.ifChain(e)
	}
}

func (n *numberer) clauses(body *ast.BlockStmt) {
	if body == nil {
		return
	}

	for _, clause := range body.List {
		switch c := clause.(type) {
		case *ast.CaseClause:
			n.push()
			for _, s := range c.Body {
				n.stmt(s)
			}
			n.pop()
		case *ast.CommClause:
			n.push()
			if c.Comm != nil {
				n.applyDecls(c.Comm)
			}

			for _, s := range c.Body {
				n.stmt(s)
			}
			n.pop()
		}
	}
}

// usedVars collects the local variables a statement subtree references.
// Idents declared by the subtree itself, selector fields and labels are
// excluded; names that do not resolve to a visible local (globals, package
// names, builtins) are excluded as well.
func (n *numberer) usedVars(s ast.Stmt) m.VarSet {
	skip := make(map[*ast.Ident]struct{})

	ast.Inspect(s, func(nd ast.Node) bool {
		switch t := nd.(type) {
		case *ast.SelectorExpr:
			skip[t.Sel] = struct{}{}
		case *ast.LabeledStmt:
			skip[t.Label] = struct{}{}
		case *ast.BranchStmt:
			if t.Label != nil {
				skip[t.Label] = struct{}{}
			}
		case *ast.AssignStmt:
			if t.Tok == token.DEFINE {
				for _, lhs := range t.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						skip[id] = struct{}{}
					}
				}
			}
		case *ast.RangeStmt:
			if t.Tok == token.DEFINE {
				if id, ok := t.Key.(*ast.Ident); ok {
					skip[id] = struct{}{}
				}

				if id, ok := t.Value.(*ast.Ident); ok {
					skip[id] = struct{}{}
				}
			}
		case *ast.ValueSpec:
			for _, name := range t.Names {
				skip[name] = struct{}{}
			}
		}

		return true
	})

	used := make(m.VarSet)

	ast.Inspect(s, func(nd ast.Node) bool {
		id, ok := nd.(*ast.Ident)
		if !ok {
			return true
		}

		if _, skipped := skip[id]; skipped || id.Name == "_" {
			return true
		}

		if vid, found := n.lookup(id.Name); found {
			used.Add(vid)
		}

		return true
	})

	return used
}
