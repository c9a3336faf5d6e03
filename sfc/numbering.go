package sfc

import (
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gosfc/connectivity"
	"github.com/notargets/gosfc/types"
)

// Generator produces ncurve independent curve numberings over the points of a connectivity graph.
// Implementations must be deterministic and keep graph neighbors close in every numbering.
type Generator interface {
	Generate(c *connectivity.Connectivity, n, ncurve int) (*CurveNumbering, error)
}

// CurveNumbering holds one traversal rank per point and curve, stored row major as N x C
type CurveNumbering struct {
	N, C int
	Data []float64
}

func NewCurveNumbering(n, ncurve int) *CurveNumbering {
	return &CurveNumbering{
		N:    n,
		C:    ncurve,
		Data: make([]float64, n*ncurve),
	}
}

func (cn *CurveNumbering) At(i, c int) float64     { return cn.Data[i*cn.C+c] }
func (cn *CurveNumbering) Set(i, c int, v float64) { cn.Data[i*cn.C+c] = v }

// Column returns a copy of the numbering of curve c
func (cn *CurveNumbering) Column(c int) (col []float64) {
	col = make([]float64, cn.N)
	for i := range col {
		col[i] = cn.At(i, c)
	}
	return
}

func (cn *CurveNumbering) Dense() *mat.Dense {
	data := make([]float64, len(cn.Data))
	copy(data, cn.Data)
	return mat.NewDense(cn.N, cn.C, data)
}

func (cn *CurveNumbering) Validate() error {
	switch {
	case cn == nil:
		return types.ContractViolation("nil curve numbering")
	case cn.N < 1 || cn.C < 1:
		return types.ContractViolation("curve numbering shape (%d, %d) must be positive", cn.N, cn.C)
	case len(cn.Data) != cn.N*cn.C:
		return types.ContractViolation("curve numbering has %d values, shape (%d, %d) needs %d",
			len(cn.Data), cn.N, cn.C, cn.N*cn.C)
	}
	return nil
}

// checkInputs rejects bad requests before any work is done
func checkInputs(c *connectivity.Connectivity, n, ncurve int) error {
	if ncurve <= 0 {
		return types.ContractViolation("curve count must be positive, have %d", ncurve)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if n != c.N {
		return types.ContractViolation("point count %d does not match connectivity size %d", n, c.N)
	}
	if !c.IsSymmetric() {
		return types.ContractViolation("connectivity of %d points is not symmetric", c.N)
	}
	return nil
}

// checkStart accepts 0 (automatic) or a one based point number
func checkStart(start, n int) error {
	if start < 0 || start > n {
		return types.ContractViolation("starting node %d outside [0, %d]", start, n)
	}
	return nil
}
