package model

import "fmt"

// EditKind tags the variant carried by an Edit.
type EditKind int

// Available edit kinds.
const (
	// EditDelete replaces the destination statement with an empty block.
	EditDelete EditKind = iota
	// EditAppend inlines a fresh clone of the source after the destination.
	EditAppend
	// EditSwap exchanges the bodies of the two statements.
	EditSwap
	// EditReplace replaces the destination with a fresh clone of the source.
	EditReplace
	// EditReplaceSubatom replaces one expression subatom of the destination.
	EditReplaceSubatom
	// EditTemplate applies a named code template with hole bindings.
	EditTemplate
)

// Edit is one atomic change to a program. Dest is always the statement being
// modified; Src is the donor statement for append, swap and replace.
type Edit struct {
	Kind EditKind
	Dest AtomID
	Src  AtomID

	// SubatomIndex addresses the expression occurrence for EditReplaceSubatom.
	SubatomIndex int
	// SubatomConst marks a replace-with-language-constant subatom edit; when
	// false the replacement expression is the SrcSubatom-th subatom of Src.
	SubatomConst bool
	// SrcSubatom is the donor expression index for subatom copies.
	SrcSubatom int

	// Template name and hole bindings for EditTemplate.
	Template string
	Bindings map[string]AtomID
}

// Delete builds a delete edit for x.
func Delete(x AtomID) Edit { return Edit{Kind: EditDelete, Dest: x} }

// Append builds an append edit inlining a clone of y after x.
func Append(x, y AtomID) Edit { return Edit{Kind: EditAppend, Dest: x, Src: y} }

// Swap builds a swap edit exchanging the bodies of x and y.
func Swap(x, y AtomID) Edit { return Edit{Kind: EditSwap, Dest: x, Src: y} }

// Replace builds a replace edit substituting a clone of y for x.
func Replace(x, y AtomID) Edit { return Edit{Kind: EditReplace, Dest: x, Src: y} }

// ReplaceSubatomConst builds an edit replacing the i-th subatom of x with the
// language zero constant.
func ReplaceSubatomConst(x AtomID, i int) Edit {
	return Edit{Kind: EditReplaceSubatom, Dest: x, SubatomIndex: i, SubatomConst: true}
}

// ReplaceSubatom builds an edit copying the j-th subatom of y over the i-th
// subatom of x.
func ReplaceSubatom(x AtomID, i int, y AtomID, j int) Edit {
	return Edit{Kind: EditReplaceSubatom, Dest: x, SubatomIndex: i, Src: y, SrcSubatom: j}
}

// ApplyTemplate builds a template edit.
func ApplyTemplate(name string, bindings map[string]AtomID) Edit {
	return Edit{Kind: EditTemplate, Template: name, Bindings: bindings}
}

// String renders the edit in the wire format used on disk and between demes.
func (e Edit) String() string {
	switch e.Kind {
	case EditDelete:
		return fmt.Sprintf("d(%d)", e.Dest)
	case EditAppend:
		return fmt.Sprintf("a(%d,%d)", e.Dest, e.Src)
	case EditSwap:
		return fmt.Sprintf("s(%d,%d)", e.Dest, e.Src)
	case EditReplace:
		return fmt.Sprintf("r(%d,%d)", e.Dest, e.Src)
	case EditReplaceSubatom:
		if e.SubatomConst {
			return fmt.Sprintf("e(%d,%d)", e.Dest, e.SubatomIndex)
		}

		return fmt.Sprintf("e(%d,%d,%d,%d)", e.Dest, e.SubatomIndex, e.Src, e.SrcSubatom)
	case EditTemplate:
		return fmt.Sprintf("t(%s)", e.Template)
	}

	return fmt.Sprintf("?(%d)", e.Dest)
}

// Touches returns the statement ids the edit keys on at apply time.
func (e Edit) Touches() []AtomID {
	switch e.Kind {
	case EditSwap:
		return []AtomID{e.Dest, e.Src}
	case EditTemplate:
		ids := make([]AtomID, 0, len(e.Bindings))
		for _, id := range e.Bindings {
			ids = append(ids, id)
		}

		return ids
	default:
		return []AtomID{e.Dest}
	}
}

// History is an ordered edit list. Order is semantic: edits apply in list
// order at materialization time, so later edits see the result of earlier
// ones on the same statement.
type History []Edit

// Clone returns an independent copy of the history.
func (h History) Clone() History {
	out := make(History, len(h))
	copy(out, h)

	return out
}

// TouchedAtoms returns the set of statement ids any edit in the history
// keys on.
func (h History) TouchedAtoms() map[AtomID]struct{} {
	touched := make(map[AtomID]struct{})
	for _, e := range h {
		for _, id := range e.Touches() {
			touched[id] = struct{}{}
		}
	}

	return touched
}
