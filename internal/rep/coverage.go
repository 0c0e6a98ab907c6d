package rep

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"

	m "github.com/whr0724/genprog-code/internal/model"
)

// CoverageOptions tune the emitted instrumentation.
type CoverageOptions struct {
	// Uniq restricts each statement id to one emission per run, backed by a
	// byte array sized max_atom + 1.
	Uniq bool
	// Multithread opens and flushes the trace file per emission instead of
	// holding it open for the process lifetime.
	Multithread bool
}

// CoverageHelperFile is the name of the generated runtime helper source.
const CoverageHelperFile = "gp_coverage.go"

const traceFuncName = "gpTrace"

// instrument materializes the current program with every numbered statement
// wrapped so executing it appends its id as one text line to tracePath. The
// generated helper file is returned under the CoverageHelperFile key.
func instrument(b *base, tracePath m.Path, opts CoverageOptions) (map[m.Path]string, error) {
	wrap := func(id m.AtomID, stmt ast.Stmt) ast.Stmt {
		call := &ast.ExprStmt{X: &ast.CallExpr{
			Fun:  &ast.Ident{Name: traceFuncName},
			Args: []ast.Expr{&ast.BasicLit{Kind: token.INT, Value: fmt.Sprintf("%d", id)}},
		}}

		return &ast.BlockStmt{List: []ast.Stmt{call, stmt}}
	}

	files, err := b.materialize(wrap)
	if err != nil {
		return nil, err
	}

	out, err := b.print(files)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(b.st.Files))
	for path := range b.st.Files {
		paths = append(paths, string(path))
	}

	sort.Strings(paths)

	pkg := b.st.Files[m.Path(paths[0])].Name.Name

	out[CoverageHelperFile] = coverageHelper(pkg, tracePath, b.st.MaxAtom(), opts)

	return out, nil
}

// coverageHelper generates the trace runtime. Modes compose: uniq filters
// repeat emissions, multithread reopens and flushes per emission.
func coverageHelper(pkg string, tracePath m.Path, maxAtom m.AtomID, opts CoverageOptions) string {
	body := ""

	if opts.Uniq {
		body += `	if gpTraceSeen[id] != 0 {
		gpTraceMu.Unlock()
		return
	}
	gpTraceSeen[id] = 1
`
	}

	if opts.Multithread {
		body += fmt.Sprintf(`	f, err := os.OpenFile(%q, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err == nil {
		fmt.Fprintf(f, "%%d\n", id)
		f.Sync()
		f.Close()
	}
`, string(tracePath))
	} else {
		body += fmt.Sprintf(`	if gpTraceFile == nil {
		gpTraceFile, _ = os.OpenFile(%q, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	}
	if gpTraceFile != nil {
		fmt.Fprintf(gpTraceFile, "%%d\n", id)
	}
`, string(tracePath))
	}

	seenDecl := ""
	if opts.Uniq {
		seenDecl = fmt.Sprintf("var gpTraceSeen [%d]byte\n", int(maxAtom)+1)
	}

	fileDecl := ""
	if !opts.Multithread {
		fileDecl = "var gpTraceFile *os.File\n"
	}

	return fmt.Sprintf(`package %s

import (
	"fmt"
	"os"
	"sync"
)

var gpTraceMu sync.Mutex
%s%s
func %s(id int) {
	gpTraceMu.Lock()
%s	gpTraceMu.Unlock()
}
`, pkg, seenDecl, fileDecl, traceFuncName, body)
}
