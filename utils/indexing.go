package utils

import (
	"sort"
)

type Index []int

func (I Index) Copy() (r Index) {
	r = make(Index, len(I))
	copy(r, I)
	return
}

// Unique returns the sorted distinct values.
func (I Index) Unique() (r Index) {
	var (
		s = I.Copy()
	)
	sort.Ints(s)
	for i, val := range s {
		if i == 0 || val != s[i-1] {
			r = append(r, val)
		}
	}
	if r == nil {
		r = Index{}
	}
	return
}

func (I Index) HasDuplicates() bool {
	return len(I.Unique()) != len(I)
}

// SetDiff returns the sorted distinct values of I that are not in J.
func (I Index) SetDiff(J Index) (r Index) {
	var (
		drop = make(map[int]struct{}, len(J))
	)
	for _, val := range J {
		drop[val] = struct{}{}
	}
	r = Index{}
	for _, val := range I.Unique() {
		if _, ok := drop[val]; !ok {
			r = append(r, val)
		}
	}
	return
}

// Inverse returns the map value -> position for a permutation-like index over [0, n),
// with -1 for values that do not appear.
func (I Index) Inverse(n int) (r Index) {
	r = make(Index, n)
	for i := range r {
		r[i] = -1
	}
	for i, val := range I {
		r[val] = i
	}
	return
}
