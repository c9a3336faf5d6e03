package utils

import (
	"fmt"
)

// Index is a list of point indices. Orderings, inverse orderings and neighbor
// shift arrays are all Index values.
type Index []int

func NewIndex(N int) (I Index) {
	return make(Index, N)
}

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size < 0 {
		size = 0
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

func (I Index) Add(val int) (r Index) {
	r = make(Index, len(I))
	for i, ival := range I {
		r[i] = val + ival
	}
	return r
}

func (I Index) Subset(J Index) (r Index) {
	r = make(Index, len(J))
	for j, val := range J {
		r[j] = I[val]
	}
	return
}

func (I Index) Copy() (r Index) {
	r = make(Index, len(I))
	copy(r, I)
	return
}

// IsPermutation checks that I holds every value of [0, len(I)) exactly once
func (I Index) IsPermutation() (err error) {
	var (
		seen = make([]bool, len(I))
	)
	for i, val := range I {
		switch {
		case val < 0 || val > len(I)-1:
			err = fmt.Errorf("index bounds error at position %d: value = %v, max = %v", i, val, len(I)-1)
			return
		case seen[val]:
			err = fmt.Errorf("repeated value %v at position %d", val, i)
			return
		}
		seen[val] = true
	}
	return
}

