// Package adapter contains the infrastructure adapters the repair engine
// depends on: the Go AST provider, filesystem access, and test execution.
package adapter

import (
	"go/ast"
	"go/token"

	m "github.com/whr0724/genprog-code/internal/model"
)

// ASTProvider encapsulates language-specific parsing, cloning and printing
// so the core can treat program trees as opaque values. The concrete
// implementation in this repository is backed by the Go toolchain AST.
type ASTProvider interface {
	// Parse builds an AST for the provided filename/source pair.
	Parse(fileSet *token.FileSet, filename string, src []byte) (*ast.File, error)

	// Preprocess copies a source file to dst, applying any normalization the
	// provider requires before numbering.
	Preprocess(src, dst m.Path) error

	// CloneStmt returns a deep copy of the statement. Clones carry no
	// statement identity; registries keyed on the original node never match
	// a clone.
	CloneStmt(stmt ast.Stmt) ast.Stmt

	// CloneExpr returns a deep copy of the expression.
	CloneExpr(expr ast.Expr) ast.Expr

	// VisitStatements walks every statement in the file in source order.
	// Returning false from fn skips the statement's children.
	VisitStatements(file *ast.File, fn func(ast.Stmt) bool)

	// VisitExpressionsIn walks the expression subatoms of a single statement
	// in left-to-right order without descending into nested blocks.
	VisitExpressionsIn(stmt ast.Stmt, fn func(ast.Expr) bool)

	// PrettyPrint renders a whole file.
	PrettyPrint(fileSet *token.FileSet, file *ast.File) (string, error)

	// PrintStmt renders a single statement; used for fix-site
	// canonicalization and diagnostics.
	PrintStmt(fileSet *token.FileSet, stmt ast.Stmt) (string, error)

	// SubatomsOf returns the statement's expression subatoms in the same
	// order VisitExpressionsIn produces.
	SubatomsOf(stmt ast.Stmt) []ast.Expr

	// ReplaceSubatomIn returns a copy of stmt with the i-th subatom replaced
	// by a clone of repl. The second result is false when i is out of range.
	ReplaceSubatomIn(stmt ast.Stmt, i int, repl ast.Expr) (ast.Stmt, bool)

	// ZeroConst returns the language zero constant used by subatom-to-const
	// mutations.
	ZeroConst() ast.Expr
}
