package ordering

import (
	"github.com/notargets/gosfc/types"
	"github.com/notargets/gosfc/utils"
)

/*
Reorder gathers a row major tensor of shape [batch][n][width] along its point axis:

	out[b][i][:] = data[b][ord[i]][:]

Reordering by an ordering and then by its inverse gives back the input.
*/
func Reorder(data []float64, batch, n, width int, ord utils.Index) (out []float64, err error) {
	if err = checkTensor(data, batch, n, width, ord); err != nil {
		return
	}
	out = make([]float64, len(data))
	reorderRange(out, data, 0, batch, n, width, ord)
	return
}

// ReorderParallel is Reorder with the batch split into np contiguous chunks, one goroutine each
func ReorderParallel(data []float64, batch, n, width int, ord utils.Index, np int) (out []float64, err error) {
	if err = checkTensor(data, batch, n, width, ord); err != nil {
		return
	}
	out = make([]float64, len(data))
	utils.NewPartitionMap(np, batch).Run(func(_, bMin, bMax int) {
		reorderRange(out, data, bMin, bMax, n, width, ord)
	})
	return
}

func reorderRange(out, data []float64, bMin, bMax, n, width int, ord utils.Index) {
	for b := bMin; b < bMax; b++ {
		base := b * n * width
		for i, p := range ord {
			copy(out[base+i*width:base+(i+1)*width], data[base+p*width:base+(p+1)*width])
		}
	}
}

func checkTensor(data []float64, batch, n, width int, ord utils.Index) error {
	if batch < 1 || n < 1 || width < 1 {
		return types.ContractViolation("tensor shape (%d, %d, %d) must be positive", batch, n, width)
	}
	if len(data) != batch*n*width {
		return types.ContractViolation("tensor has %d values, shape (%d, %d, %d) needs %d",
			len(data), batch, n, width, batch*n*width)
	}
	return checkPermutation(ord, n)
}
