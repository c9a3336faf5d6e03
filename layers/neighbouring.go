package layers

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gosfc/types"
	"github.com/notargets/gosfc/utils"
)

// NearestNeighbouring averages every point with its curve neighbors using one weight per point and neighbor
//
//	out[i] = sum_k x[i,k] * W[i,k] + b[i]
type NearestNeighbouring struct {
	Size     int
	NumNeigh int
	Weights  *mat.Dense    // Size x NumNeigh
	Bias     *mat.VecDense // Size
}

func NewNearestNeighbouring(size int, initialWeight float64, numNeigh int) (nn *NearestNeighbouring) {
	nn = &NearestNeighbouring{
		Size:     size,
		NumNeigh: numNeigh,
		Weights:  mat.NewDense(size, numNeigh, nil),
		Bias:     mat.NewVecDense(size, nil),
	}
	data := nn.Weights.RawMatrix().Data
	for i := range data {
		data[i] = initialWeight
	}
	return
}

func (nn *NearestNeighbouring) Forward(x *mat.Dense) (out *mat.VecDense, err error) {
	var (
		nr, nc = x.Dims()
	)
	if nr != nn.Size || nc != nn.NumNeigh {
		err = types.ContractViolation("input is %d x %d, layer expects %d x %d", nr, nc, nn.Size, nn.NumNeigh)
		return
	}
	var (
		w   = nn.Weights.RawMatrix()
		raw = x.RawMatrix()
	)
	out = mat.NewVecDense(nn.Size, nil)
	for i := 0; i < nn.Size; i++ {
		xi := blas64.Vector{N: nc, Inc: 1, Data: raw.Data[i*raw.Stride : i*raw.Stride+nc]}
		wi := blas64.Vector{N: nc, Inc: 1, Data: w.Data[i*w.Stride : i*w.Stride+nc]}
		out.SetVec(i, blas64.Dot(xi, wi)+nn.Bias.AtVec(i))
	}
	return
}

// Gather builds the layer input: column k holds values[neighbors[k][i]] for every point i
func (nn *NearestNeighbouring) Gather(values []float64, neighbors ...utils.Index) (x *mat.Dense, err error) {
	if len(neighbors) != nn.NumNeigh {
		err = types.ContractViolation("have %d neighbor arrays, layer expects %d", len(neighbors), nn.NumNeigh)
		return
	}
	x = mat.NewDense(nn.Size, nn.NumNeigh, nil)
	for k, nbr := range neighbors {
		if len(nbr) != nn.Size {
			x, err = nil, types.ContractViolation("neighbor array %d has %d entries, expected %d", k, len(nbr), nn.Size)
			return
		}
		for i, j := range nbr {
			if j < 0 || j >= len(values) {
				x, err = nil, types.ContractViolation("neighbor %d of point %d is outside [0, %d)", j, i, len(values))
				return
			}
			x.Set(i, k, values[j])
		}
	}
	return
}
