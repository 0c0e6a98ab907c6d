package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalizationLookupsAndTotals(t *testing.T) {
	l := Localization{
		{ID: 3, Weight: 1.0},
		{ID: 7, Weight: 0.5},
	}

	require.Equal(t, 1.0, l.WeightOf(3))
	require.Zero(t, l.WeightOf(9))
	require.Equal(t, []AtomID{3, 7}, l.IDs())
	require.Equal(t, 1.5, l.TotalWeight())
}

func TestLocalizationDedupKeepsFirst(t *testing.T) {
	l := Localization{
		{ID: 3, Weight: 1.0},
		{ID: 7, Weight: 0.5},
		{ID: 3, Weight: 0.2},
	}

	require.Equal(t, Localization{
		{ID: 3, Weight: 1.0},
		{ID: 7, Weight: 0.5},
	}, l.Dedup())
}

func TestLocalizationCloneIsIndependent(t *testing.T) {
	l := Localization{{ID: 1, Weight: 1}}

	cp := l.Clone()
	cp[0].Weight = 9

	require.Equal(t, 1.0, l[0].Weight)
}

func TestVarSetOperations(t *testing.T) {
	s := NewVarSet(1, 2)

	require.True(t, s.Contains(1))
	require.False(t, s.Contains(3))

	s.Add(3)
	require.True(t, s.Contains(3))

	require.True(t, NewVarSet(1, 2).SubsetOf(s))
	require.False(t, s.SubsetOf(NewVarSet(1, 2)))
	require.True(t, NewVarSet().SubsetOf(NewVarSet()))
}

func TestAtomIDValidity(t *testing.T) {
	require.False(t, NoAtom.IsValid())
	require.False(t, AtomID(-1).IsValid())
	require.True(t, AtomID(1).IsValid())
}
