// Package store holds the parsed base program: the statement arena, the
// per-statement scope tables, and the donor-site queries the edit operators
// rely on.
package store

import (
	"fmt"
	"go/ast"
	"go/token"

	m "github.com/whr0724/genprog-code/internal/model"
)

// CheckMode selects how much semantic checking donor queries perform.
type CheckMode int

// Available check modes.
const (
	// CheckNone disables scope filtering; every donor site qualifies.
	CheckNone CheckMode = iota
	// CheckScope filters donor sites whose used variables are not in scope
	// at the destination.
	CheckScope
)

// ParseCheckMode maps the configuration value to a CheckMode.
func ParseCheckMode(s string) (CheckMode, error) {
	switch s {
	case "", "none":
		return CheckNone, nil
	case "scope":
		return CheckScope, nil
	}

	return CheckNone, fmt.Errorf("unknown semantic-check mode %q", s)
}

// AtomStore is the arena for one loaded program. After Freeze it is
// read-only and may be shared by every variant in a deme.
type AtomStore struct {
	// Files maps file name to its parsed tree. Non-empty after load.
	Files map[m.Path]*ast.File
	// FileSet is the token set all trees were parsed against.
	FileSet *token.FileSet

	// StmtMap locates every numbered statement.
	StmtMap map[m.AtomID]m.StmtSite
	// Globals is the set of package-level variable ids.
	Globals m.VarSet
	// LocalsHave maps a statement to the variables in scope there.
	LocalsHave map[m.AtomID]m.VarSet
	// LocalsUsed maps a statement to the non-global variables it references.
	LocalsUsed map[m.AtomID]m.VarSet
	// VarInfo records name and type per variable id.
	VarInfo map[m.VarID]m.VarInfo

	nodes     []ast.Stmt // index = sid, slot 0 reserved
	idOf      map[ast.Stmt]m.AtomID
	canonical map[m.AtomID]m.AtomID
	varIDs    map[string]m.VarID
	frozen    bool
}

// NewAtomStore returns an empty arena ready for numbering.
func NewAtomStore() *AtomStore {
	return &AtomStore{
		Files:      make(map[m.Path]*ast.File),
		FileSet:    token.NewFileSet(),
		StmtMap:    make(map[m.AtomID]m.StmtSite),
		Globals:    make(m.VarSet),
		LocalsHave: make(map[m.AtomID]m.VarSet),
		LocalsUsed: make(map[m.AtomID]m.VarSet),
		VarInfo:    make(map[m.VarID]m.VarInfo),
		nodes:      make([]ast.Stmt, 1),
		idOf:       make(map[ast.Stmt]m.AtomID),
		canonical:  make(map[m.AtomID]m.AtomID),
		varIDs:     make(map[string]m.VarID),
	}
}

// MaxAtom returns the highest assigned statement id.
func (s *AtomStore) MaxAtom() m.AtomID {
	return m.AtomID(len(s.nodes) - 1)
}

// Register numbers a statement, recording its site and scope tables, and
// returns the assigned id. Ids are dense and monotonically increasing.
func (s *AtomStore) Register(stmt ast.Stmt, site m.StmtSite, have, used m.VarSet) (m.AtomID, error) {
	if s.frozen {
		return m.NoAtom, fmt.Errorf("atom store is frozen")
	}

	if have == nil || used == nil {
		return m.NoAtom, fmt.Errorf("statement in %s has no scope info", site.File)
	}

	id := m.AtomID(len(s.nodes))
	s.nodes = append(s.nodes, stmt)
	s.idOf[stmt] = id
	s.StmtMap[id] = site
	s.LocalsHave[id] = have
	s.LocalsUsed[id] = used

	return id, nil
}

// AddFile records a parsed file.
func (s *AtomStore) AddFile(path m.Path, file *ast.File) {
	s.Files[path] = file
}

// InternVar returns the id for the variable identified by key, creating it
// on first sight. Locals are keyed per enclosing function, globals by name.
func (s *AtomStore) InternVar(key, name, typ string) m.VarID {
	if id, ok := s.varIDs[key]; ok {
		return id
	}

	id := m.VarID(len(s.varIDs) + 1)
	s.varIDs[key] = id
	s.VarInfo[id] = m.VarInfo{Name: name, Type: typ}

	return id
}

// Stmt returns the original statement node for id, or nil.
func (s *AtomStore) Stmt(id m.AtomID) ast.Stmt {
	if !id.IsValid() || int(id) >= len(s.nodes) {
		return nil
	}

	return s.nodes[int(id)]
}

// IDOf returns the id assigned to the original statement node, or NoAtom
// for nodes outside the numbered set (clones included).
func (s *AtomStore) IDOf(stmt ast.Stmt) m.AtomID {
	return s.idOf[stmt]
}

// SetCanonical records the representative id for a fix-site statement whose
// printed form duplicates an earlier one. Called at load time, before Freeze.
func (s *AtomStore) SetCanonical(id, rep m.AtomID) {
	s.canonical[id] = rep
}

// CanonicalID collapses textually identical fix-site statements onto one
// representative. Fault localization must never apply this mapping.
func (s *AtomStore) CanonicalID(id m.AtomID) m.AtomID {
	if rep, ok := s.canonical[id]; ok {
		return rep
	}

	return id
}

// Freeze validates the numbering invariants and marks the store read-only.
func (s *AtomStore) Freeze() error {
	if len(s.Files) == 0 {
		return fmt.Errorf("atom store holds no files")
	}

	for id := m.AtomID(1); id <= s.MaxAtom(); id++ {
		if _, ok := s.StmtMap[id]; !ok {
			return fmt.Errorf("statement %d missing from stmt map", id)
		}

		if _, ok := s.LocalsHave[id]; !ok {
			return fmt.Errorf("statement %d missing in-scope table", id)
		}

		if _, ok := s.LocalsUsed[id]; !ok {
			return fmt.Errorf("statement %d missing used-variable table", id)
		}
	}

	s.frozen = true

	return nil
}
