package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// CSR is a read only compressed sparse row matrix. Here it carries graph
// adjacency: a stored entry (i, j) is an edge between points i and j.
type CSR struct {
	M    *sparse.CSR
	name string
}

// NewAdjacencyCSR wraps row pointer / column index arrays as a unit weighted adjacency matrix
// The slices are copied, colInd must already be truncated to rowPtr[n]
func NewAdjacencyCSR(n int, rowPtr, colInd []int) (R CSR, err error) {
	if len(rowPtr) != n+1 {
		err = fmt.Errorf("row pointer length must be n+1: n = %d, len(rowPtr) = %d", n, len(rowPtr))
		return
	}
	if rowPtr[n] != len(colInd) {
		err = fmt.Errorf("column index length %d does not match row pointer end %d", len(colInd), rowPtr[n])
		return
	}
	var (
		ia   = make([]int, len(rowPtr))
		ja   = make([]int, len(colInd))
		data = make([]float64, len(colInd))
	)
	copy(ia, rowPtr)
	copy(ja, colInd)
	for i := range data {
		data[i] = 1
	}
	R = CSR{
		M:    sparse.NewCSR(n, n, ia, ja, data),
		name: "adjacency",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) NNZ() int                      { return m.M.NNZ() }

func (m CSR) Neighbors(i int) (J Index) {
	raw := m.RawMatrix()
	return Index(raw.Ind[raw.Indptr[i]:raw.Indptr[i+1]])
}

func (m CSR) Degree(i int) int {
	raw := m.RawMatrix()
	return raw.Indptr[i+1] - raw.Indptr[i]
}

// IsSymmetric reports whether every stored edge i->j has its j->i counterpart
func (m CSR) IsSymmetric() bool {
	var (
		nr, _ = m.Dims()
	)
	for i := 0; i < nr; i++ {
		for _, j := range m.Neighbors(i) {
			if m.At(j, i) == 0 {
				return false
			}
		}
	}
	return true
}

func (m CSR) String() string {
	nr, nc := m.Dims()
	return fmt.Sprintf("%s: %d x %d, nnz = %d", m.name, nr, nc, m.NNZ())
}
