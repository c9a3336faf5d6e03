// Package ordering turns curve numberings into point permutations and applies them to field data.
package ordering

import (
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gosfc/sfc"
	"github.com/notargets/gosfc/types"
	"github.com/notargets/gosfc/utils"
)

// Extract sorts every curve column: curves[c] lists the points in curve order, inverses[c] gives the rank of each point
func Extract(cn *sfc.CurveNumbering) (curves, inverses []utils.Index, err error) {
	if err = cn.Validate(); err != nil {
		return
	}
	var (
		inds = make([]int, cn.N)
	)
	curves = make([]utils.Index, cn.C)
	inverses = make([]utils.Index, cn.C)
	for c := 0; c < cn.C; c++ {
		col := cn.Column(c)
		floats.ArgsortStable(col, inds)
		curves[c] = utils.Index(inds).Copy()
		inverses[c] = invert(curves[c])
	}
	return
}

// Inverse gives inv with inv[ord[i]] == i
func Inverse(ord utils.Index) (inv utils.Index, err error) {
	if len(ord) == 0 {
		err = types.ContractViolation("empty ordering")
		return
	}
	if err = ord.IsPermutation(); err != nil {
		err = types.ContractViolation("ordering is not a permutation: %v", err)
		return
	}
	inv = invert(ord)
	return
}

func invert(ord utils.Index) (inv utils.Index) {
	inv = utils.NewIndex(len(ord))
	for i, p := range ord {
		inv[p] = i
	}
	return
}

/*
Extend replicates an ordering over P partitions laid end to end.

	Partition b holds the points [b*N, (b+1)*N) and is reordered with the base ordering shifted by b*N:
		ord = [2,0,1], P = 2  ->  [2,0,1, 5,3,4]
*/
func Extend(ord utils.Index, partitions int) (ext utils.Index, err error) {
	var (
		n = len(ord)
	)
	if partitions <= 0 {
		err = types.ContractViolation("partition count must be positive, have %d", partitions)
		return
	}
	if n == 0 {
		err = types.ContractViolation("empty ordering")
		return
	}
	ext = make(utils.Index, 0, n*partitions)
	for b := 0; b < partitions; b++ {
		ext = append(ext, ord.Add(b*n)...)
	}
	return
}

// Successor is the next point along the ordering, the last point is its own successor
func Successor(ord utils.Index) (succ utils.Index, err error) {
	var (
		n = len(ord)
	)
	if n == 0 {
		err = types.ContractViolation("empty ordering")
		return
	}
	succ = ord.Subset(append(utils.NewRange(1, n-1), n-1))
	return
}

// Predecessor is the previous point along the ordering, the first point is its own predecessor
func Predecessor(ord utils.Index) (pred utils.Index, err error) {
	var (
		n = len(ord)
	)
	if n == 0 {
		err = types.ContractViolation("empty ordering")
		return
	}
	pred = ord.Subset(append(utils.Index{0}, utils.NewRange(0, n-2)...))
	return
}

// Stencil gives the neighbor arrays of the 1D curve: self, successor and predecessor
func Stencil(ord utils.Index) (st [3]utils.Index, err error) {
	if st[1], err = Successor(ord); err != nil {
		return
	}
	if st[2], err = Predecessor(ord); err != nil {
		return
	}
	st[0] = ord.Copy()
	return
}

// checkPermutation is the shared precondition of the reorder functions
func checkPermutation(ord utils.Index, n int) error {
	if len(ord) != n {
		return types.ContractViolation("ordering has %d entries, expected %d", len(ord), n)
	}
	if err := ord.IsPermutation(); err != nil {
		return types.ContractViolation("ordering is not a permutation: %v", err)
	}
	return nil
}
