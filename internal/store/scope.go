package store

import (
	"fmt"

	m "github.com/whr0724/genprog-code/internal/model"
)

// InScopeAt reports whether every non-global variable used by src is in
// scope at dest. Referencing an unnumbered statement is a programming error
// and returns a non-nil error.
func (s *AtomStore) InScopeAt(dest, src m.AtomID) (bool, error) {
	have, ok := s.LocalsHave[dest]
	if !ok {
		return false, fmt.Errorf("no scope info for destination statement %d", dest)
	}

	used, ok := s.LocalsUsed[src]
	if !ok {
		return false, fmt.Errorf("no scope info for source statement %d", src)
	}

	return used.SubsetOf(have), nil
}

// AppendSources filters the fix path to donors legal to append after dest.
// Weights are carried through unchanged. With CheckNone the full list is
// returned.
func (s *AtomStore) AppendSources(fix m.Localization, dest m.AtomID, mode CheckMode) (m.Localization, error) {
	if mode == CheckNone {
		return fix.Clone(), nil
	}

	out := make(m.Localization, 0, len(fix))

	for _, wa := range fix {
		ok, err := s.InScopeAt(dest, wa.ID)
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, wa)
		}
	}

	return out, nil
}

// SwapSources filters the fault path to donors legal to swap with dest.
// Scope compatibility must hold in both directions and src == dest is
// excluded. Callers enumerating all pairs discard (y, x) when (x, y) is
// already enumerable; the convention is x < y.
func (s *AtomStore) SwapSources(fault m.Localization, dest m.AtomID, mode CheckMode) (m.Localization, error) {
	out := make(m.Localization, 0, len(fault))

	for _, wa := range fault {
		if wa.ID == dest {
			continue
		}

		if mode == CheckScope {
			forward, err := s.InScopeAt(dest, wa.ID)
			if err != nil {
				return nil, err
			}

			backward, err := s.InScopeAt(wa.ID, dest)
			if err != nil {
				return nil, err
			}

			if !forward || !backward {
				continue
			}
		}

		out = append(out, wa)
	}

	return out, nil
}

// ReplaceSources filters the fix path to donors legal to substitute for
// dest; src == dest is excluded.
func (s *AtomStore) ReplaceSources(fix m.Localization, dest m.AtomID, mode CheckMode) (m.Localization, error) {
	out := make(m.Localization, 0, len(fix))

	for _, wa := range fix {
		if wa.ID == dest {
			continue
		}

		if mode == CheckScope {
			ok, err := s.InScopeAt(dest, wa.ID)
			if err != nil {
				return nil, err
			}

			if !ok {
				continue
			}
		}

		out = append(out, wa)
	}

	return out, nil
}
