package rep

import (
	"fmt"
	"go/ast"
	"path/filepath"

	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/store"
)

// Options tune how a representation applies and validates edits.
type Options struct {
	// Check selects the semantic-check mode for donor queries.
	Check store.CheckMode
	// SwapBug reproduces the historical swap-as-delete-append behavior.
	// It exists only to replay old experiments.
	SwapBug bool
	// Templates is the named template registry for EditTemplate.
	Templates map[string]TemplateFunc
}

// Representation is one candidate variant. The patch form shares the
// original atom store and defers materialization; the whole-tree form keeps
// a private materialized copy and applies edits eagerly. Their external
// contract is identical.
type Representation interface {
	// Clone returns an independent copy sharing the read-only store.
	Clone() Representation

	// Store exposes the shared code bank and scope tables.
	Store() *store.AtomStore

	// History returns the ordered edit list. The slice is owned by the
	// representation; callers must not mutate it.
	History() m.History

	// SetHistory replaces the edit list wholesale (crossover, decode).
	SetHistory(h m.History)

	// Fault and Fix return the weighted localization paths.
	Fault() m.Localization
	Fix() m.Localization

	// SetLocalization installs the weighted paths.
	SetLocalization(fault, fix m.Localization)

	// Apply validates and records one edit. Edits referencing unknown
	// statement ids are programming errors and fail.
	Apply(e m.Edit) error

	// Delete, Append, Swap, Replace are convenience wrappers over Apply.
	Delete(x m.AtomID) error
	Append(x, y m.AtomID) error
	Swap(x, y m.AtomID) error
	Replace(x, y m.AtomID) error

	// SubatomCount returns how many expression subatoms statement x has.
	SubatomCount(x m.AtomID) int

	// Fingerprint serializes the history; identical fingerprints denote
	// identical variants for fitness caching.
	Fingerprint() string

	// Materialize renders every file of the mutated program.
	Materialize() (map[m.Path]string, error)

	// Instrument renders the program with statement-coverage emission to
	// tracePath, plus the generated runtime helper file.
	Instrument(tracePath m.Path, opts CoverageOptions) (map[m.Path]string, error)
}

// base carries the state both representation flavors share.
type base struct {
	st       *store.AtomStore
	provider adapter.ASTProvider
	opts     Options

	history m.History
	fault   m.Localization
	fix     m.Localization
	dirty   bool
}

func (b *base) Store() *store.AtomStore { return b.st }

func (b *base) History() m.History { return b.history }

func (b *base) Fault() m.Localization { return b.fault }

func (b *base) Fix() m.Localization { return b.fix }

func (b *base) SetLocalization(fault, fix m.Localization) {
	b.fault = fault
	b.fix = fix
}

func (b *base) Fingerprint() string { return m.EncodeHistory(b.history) }

func (b *base) SubatomCount(x m.AtomID) int {
	stmt := b.st.Stmt(x)
	if stmt == nil {
		return 0
	}

	return len(b.provider.SubatomsOf(stmt))
}

// validate rejects edits referencing statements outside the numbered range.
func (b *base) validate(e m.Edit) error {
	check := func(id m.AtomID) error {
		if !id.IsValid() || id > b.st.MaxAtom() {
			return fmt.Errorf("edit %s references unknown statement %d", e, id)
		}

		return nil
	}

	if e.Kind == m.EditTemplate {
		for _, id := range e.Bindings {
			if err := check(id); err != nil {
				return err
			}
		}

		return nil
	}

	if err := check(e.Dest); err != nil {
		return err
	}

	needsSrc := e.Kind == m.EditAppend || e.Kind == m.EditSwap || e.Kind == m.EditReplace ||
		(e.Kind == m.EditReplaceSubatom && !e.SubatomConst)
	if needsSrc {
		return check(e.Src)
	}

	return nil
}

func (b *base) record(e m.Edit) error {
	if err := b.validate(e); err != nil {
		return err
	}

	b.history = append(b.history.Clone(), e)
	b.dirty = true

	return nil
}

// materialize runs the transform over every original file. One transform
// instance spans all files so swaps across file boundaries see a single
// slot state.
func (b *base) materialize(instrument func(m.AtomID, ast.Stmt) ast.Stmt) (map[m.Path]*ast.File, error) {
	x := newXform(b.st, b.provider, b.history, b.opts.SwapBug, b.opts.Templates)
	x.instrument = instrument
	x.computeStates()

	out := make(map[m.Path]*ast.File, len(b.st.Files))

	for path, file := range b.st.Files {
		rewritten, err := x.materializeFile(file)
		if err != nil {
			return nil, fmt.Errorf("materialize %s: %w", path, err)
		}

		out[path] = rewritten
	}

	return out, nil
}

// WriteVariant materializes r and writes every file under dir, keyed by
// the source file's base name.
func WriteVariant(r Representation, fs adapter.SourceFSAdapter, dir m.Path) error {
	files, err := r.Materialize()
	if err != nil {
		return err
	}

	for path, src := range files {
		target := fs.JoinPath(string(dir), filepath.Base(string(path)))
		if err := fs.WriteFile(target, []byte(src), 0o600); err != nil {
			return fmt.Errorf("write variant file %s: %w", target, err)
		}
	}

	return nil
}

func (b *base) print(files map[m.Path]*ast.File) (map[m.Path]string, error) {
	out := make(map[m.Path]string, len(files))

	for path, file := range files {
		src, err := b.provider.PrettyPrint(b.st.FileSet, file)
		if err != nil {
			return nil, fmt.Errorf("print %s: %w", path, err)
		}

		out[path] = src
	}

	return out, nil
}
