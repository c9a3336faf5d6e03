package types

import "math"

// PointSet is the canonical index space of a mesh: point i has coordinates Coords[i].
// It is treated as read only once constructed.
type PointSet struct {
	Coords [][]float64 // [npoints][2 or 3]
}

func NewPointSet(coords [][]float64) (ps PointSet, err error) {
	ps = PointSet{Coords: coords}
	err = ps.Validate()
	return
}

// NewPointSetXY builds a 2D point set from separate coordinate slices
func NewPointSetXY(X, Y []float64) (ps PointSet, err error) {
	if len(X) != len(Y) {
		err = ContractViolation("coordinate lengths differ: len(X) = %d, len(Y) = %d", len(X), len(Y))
		return
	}
	coords := make([][]float64, len(X))
	for i := range X {
		coords[i] = []float64{X[i], Y[i]}
	}
	return NewPointSet(coords)
}

func (ps PointSet) N() int { return len(ps.Coords) }

func (ps PointSet) Dim() int {
	if len(ps.Coords) == 0 {
		return 0
	}
	return len(ps.Coords[0])
}

func (ps PointSet) Validate() error {
	if len(ps.Coords) == 0 {
		return ContractViolation("point set is empty")
	}
	dim := len(ps.Coords[0])
	if dim != 2 && dim != 3 {
		return ContractViolation("points must have 2 or 3 coordinates, have %d", dim)
	}
	for i, x := range ps.Coords {
		if len(x) != dim {
			return ContractViolation("point %d has %d coordinates, expected %d", i, len(x), dim)
		}
		for _, v := range x {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ContractViolation("point %d has a non finite coordinate", i)
			}
		}
	}
	return nil
}

// Equal reports whether two point sets have identical coordinates
func (ps PointSet) Equal(other PointSet) bool {
	if len(ps.Coords) != len(other.Coords) {
		return false
	}
	for i, x := range ps.Coords {
		y := other.Coords[i]
		if len(x) != len(y) {
			return false
		}
		for j := range x {
			if x[j] != y[j] {
				return false
			}
		}
	}
	return true
}

// Range returns the min/max extent of coordinate axis d
func (ps PointSet) Range(d int) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, x := range ps.Coords {
		if x[d] < min {
			min = x[d]
		}
		if x[d] > max {
			max = x[d]
		}
	}
	return
}

// DropLastAxis returns a copy of the point set without its trailing coordinate
func (ps PointSet) DropLastAxis() (out PointSet) {
	out.Coords = make([][]float64, len(ps.Coords))
	for i, x := range ps.Coords {
		out.Coords[i] = append([]float64(nil), x[:len(x)-1]...)
	}
	return
}
