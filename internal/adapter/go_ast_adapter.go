package adapter

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"io"
	"os"

	m "github.com/whr0724/genprog-code/internal/model"
)

// GoASTAdapter is the ASTProvider for Go programs, backed by go/parser and
// go/printer.
type GoASTAdapter struct{}

// NewGoASTAdapter constructs a GoASTAdapter.
func NewGoASTAdapter() *GoASTAdapter {
	return &GoASTAdapter{}
}

// Parse builds an AST for the provided filename/source pair. Comments are
// dropped so cloned subtrees cannot detach them during printing.
func (a *GoASTAdapter) Parse(fileSet *token.FileSet, filename string, src []byte) (*ast.File, error) {
	return parser.ParseFile(fileSet, filename, src, parser.SkipObjectResolution)
}

// Preprocess copies src to dst byte for byte. Go sources need no
// normalization before numbering.
func (a *GoASTAdapter) Preprocess(src, dst m.Path) error {
	in, err := os.Open(string(src))
	if err != nil {
		return fmt.Errorf("preprocess %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(string(dst))
	if err != nil {
		return fmt.Errorf("preprocess %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("preprocess %s: %w", dst, err)
	}

	return out.Close()
}

// VisitStatements walks every statement in the file in source order.
func (a *GoASTAdapter) VisitStatements(file *ast.File, fn func(ast.Stmt) bool) {
	ast.Inspect(file, func(n ast.Node) bool {
		stmt, ok := n.(ast.Stmt)
		if !ok {
			return true
		}

		return fn(stmt)
	})
}

// PrettyPrint renders a whole file.
func (a *GoASTAdapter) PrettyPrint(fileSet *token.FileSet, file *ast.File) (string, error) {
	var buf bytes.Buffer

	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, fileSet, file); err != nil {
		return "", fmt.Errorf("print file: %w", err)
	}

	return buf.String(), nil
}

// PrintStmt renders a single statement.
func (a *GoASTAdapter) PrintStmt(fileSet *token.FileSet, stmt ast.Stmt) (string, error) {
	var buf bytes.Buffer

	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, fileSet, stmt); err != nil {
		return "", fmt.Errorf("print statement: %w", err)
	}

	return buf.String(), nil
}

// ZeroConst returns the untyped integer zero.
func (a *GoASTAdapter) ZeroConst() ast.Expr {
	return &ast.BasicLit{Kind: token.INT, Value: "0"}
}

// SubatomsOf returns the statement's expression subatoms in left-to-right
// order.
func (a *GoASTAdapter) SubatomsOf(stmt ast.Stmt) []ast.Expr {
	var atoms []ast.Expr

	a.VisitExpressionsIn(stmt, func(e ast.Expr) bool {
		atoms = append(atoms, e)
		return true
	})

	return atoms
}

// VisitExpressionsIn walks the expression subatoms of one statement in
// left-to-right order. Value positions count; assignment targets, types and
// nested blocks do not.
func (a *GoASTAdapter) VisitExpressionsIn(stmt ast.Stmt, fn func(ast.Expr) bool) {
	w := exprWalker{fn: fn}
	w.stmt(stmt)
}

// ReplaceSubatomIn returns a copy of stmt with the i-th subatom replaced by
// a clone of repl.
func (a *GoASTAdapter) ReplaceSubatomIn(stmt ast.Stmt, i int, repl ast.Expr) (ast.Stmt, bool) {
	clone := a.CloneStmt(stmt)
	replaced := false
	index := -1

	r := exprRewriter{
		rewrite: func(e ast.Expr) (ast.Expr, bool) {
			index++
			if index != i {
				return e, false
			}

			replaced = true

			return a.CloneExpr(repl), true
		},
	}
	r.stmt(clone)

	return clone, replaced
}

// exprWalker enumerates subatom expressions. The traversal is pre-order:
// each expression counts one index, then its value-position children are
// visited.
type exprWalker struct {
	fn   func(ast.Expr) bool
	done bool
}

func (w *exprWalker) stmt(s ast.Stmt) {
	if w.done || s == nil {
		return
	}

	switch st := s.(type) {
	case *ast.ExprStmt:
		w.expr(st.X)
	case *ast.AssignStmt:
		for _, rhs := range st.Rhs {
			w.expr(rhs)
		}
	case *ast.ReturnStmt:
		for _, res := range st.Results {
			w.expr(res)
		}
	case *ast.IfStmt:
		w.stmt(st.Init)
		w.expr(st.Cond)
	case *ast.ForStmt:
		w.stmt(st.Init)
		w.expr(st.Cond)
		w.stmt(st.Post)
	case *ast.RangeStmt:
		w.expr(st.X)
	case *ast.SendStmt:
		w.expr(st.Value)
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

			for _, v := range vs.Values {
				w.expr(v)
			}
		}
	case *ast.GoStmt:
		w.expr(st.Call)
	case *ast.DeferStmt:
		w.expr(st.Call)
	case *ast.SwitchStmt:
		w.stmt(st.Init)
		w.expr(st.Tag)
	case *ast.IncDecStmt, *ast.BranchStmt, *ast.EmptyStmt, *ast.BlockStmt, *ast.LabeledStmt:
		// No value-position subatoms.
	}
}

func (w *exprWalker) expr(e ast.Expr) {
	if w.done || e == nil {
		return
	}

	if !w.fn(e) {
		w.done = true
		return
	}

	switch ex := e.(type) {
	case *ast.ParenExpr:
		w.expr(ex.X)
	case *ast.BinaryExpr:
		w.expr(ex.X)
		w.expr(ex.Y)
	case *ast.UnaryExpr:
		w.expr(ex.X)
	case *ast.CallExpr:
		for _, arg := range ex.Args {
			w.expr(arg)
		}
	case *ast.IndexExpr:
		w.expr(ex.X)
		w.expr(ex.Index)
	case *ast.SliceExpr:
		w.expr(ex.X)
		w.expr(ex.Low)
		w.expr(ex.High)
		w.expr(ex.Max)
	case *ast.StarExpr:
		w.expr(ex.X)
	case *ast.CompositeLit:
		for _, elt := range ex.Elts {
			w.expr(elt)
		}
	case *ast.KeyValueExpr:
		w.expr(ex.Value)
	}
}

// exprRewriter mirrors exprWalker but substitutes expressions in place on an
// already-cloned statement.
type exprRewriter struct {
	rewrite func(ast.Expr) (ast.Expr, bool)
	done    bool
}

func (r *exprRewriter) stmt(s ast.Stmt) {
	if r.done || s == nil {
		return
	}

	switch st := s.(type) {
	case *ast.ExprStmt:
		st.X = r.expr(st.X)
	case *ast.AssignStmt:
		for i, rhs := range st.Rhs {
			st.Rhs[i] = r.expr(rhs)
		}
	case *ast.ReturnStmt:
		for i, res := range st.Results {
			st.Results[i] = r.expr(res)
		}
	case *ast.IfStmt:
		r.stmt(st.Init)
		st.Cond = r.expr(st.Cond)
	case *ast.ForStmt:
		r.stmt(st.Init)
		st.Cond = r.expr(st.Cond)
		r.stmt(st.Post)
	case *ast.RangeStmt:
		st.X = r.expr(st.X)
	case *ast.SendStmt:
		st.Value = r.expr(st.Value)
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

			for i, v := range vs.Values {
				vs.Values[i] = r.expr(v)
			}
		}
	case *ast.GoStmt:
		st.Call = r.call(st.Call)
	case *ast.DeferStmt:
		st.Call = r.call(st.Call)
	case *ast.SwitchStmt:
		r.stmt(st.Init)
		st.Tag = r.expr(st.Tag)
	}
}

func (r *exprRewriter) call(c *ast.CallExpr) *ast.CallExpr {
	out := r.expr(c)
	if call, ok := out.(*ast.CallExpr); ok {
		return call
	}

	return c
}

func (r *exprRewriter) expr(e ast.Expr) ast.Expr {
	if r.done || e == nil {
		return e
	}

	if replaced, ok := r.rewrite(e); ok {
		r.done = true
		return replaced
	}

	if r.done {
		return e
	}

	switch ex := e.(type) {
	case *ast.ParenExpr:
		ex.X = r.expr(ex.X)
	case *ast.BinaryExpr:
		ex.X = r.expr(ex.X)
		ex.Y = r.expr(ex.Y)
	case *ast.UnaryExpr:
		ex.X = r.expr(ex.X)
	case *ast.CallExpr:
		for i, arg := range ex.Args {
			ex.Args[i] = r.expr(arg)
		}
	case *ast.IndexExpr:
		ex.X = r.expr(ex.X)
		ex.Index = r.expr(ex.Index)
	case *ast.SliceExpr:
		ex.X = r.expr(ex.X)
		ex.Low = r.expr(ex.Low)
		ex.High = r.expr(ex.High)
		ex.Max = r.expr(ex.Max)
	case *ast.StarExpr:
		ex.X = r.expr(ex.X)
	case *ast.CompositeLit:
		for i, elt := range ex.Elts {
			ex.Elts[i] = r.expr(elt)
		}
	case *ast.KeyValueExpr:
		ex.Value = r.expr(ex.Value)
	}

	return e
}
