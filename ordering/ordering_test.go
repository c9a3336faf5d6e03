package ordering

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosfc/sfc"
	"github.com/notargets/gosfc/types"
	"github.com/notargets/gosfc/utils"
)

var perms = []utils.Index{
	{0},
	{1, 0},
	{2, 0, 1},
	{0, 1, 2, 3, 4},
	{3, 7, 0, 5, 1, 6, 2, 4},
}

func isContract(err error) bool { return errors.Is(err, types.ErrContractViolation) }

func TestExtract(t *testing.T) {
	{
		cn := &sfc.CurveNumbering{N: 4, C: 2, Data: []float64{
			3, 1,
			1, 2,
			4, 3,
			2, 4,
		}}
		curves, inverses, err := Extract(cn)
		require.NoError(t, err)
		assert.Equal(t, utils.Index{1, 3, 0, 2}, curves[0])
		assert.Equal(t, utils.Index{2, 0, 3, 1}, inverses[0])
		assert.Equal(t, utils.Index{0, 1, 2, 3}, curves[1])
		assert.Equal(t, utils.Index{0, 1, 2, 3}, inverses[1])
		// Extract leaves the numbering alone
		assert.Equal(t, 3., cn.At(0, 0))
	}
	{ // Equal values keep point order
		cn := &sfc.CurveNumbering{N: 3, C: 1, Data: []float64{2, 1, 2}}
		curves, _, err := Extract(cn)
		require.NoError(t, err)
		assert.Equal(t, utils.Index{1, 0, 2}, curves[0])
	}
	{
		_, _, err := Extract(&sfc.CurveNumbering{N: 2, C: 1, Data: []float64{1}})
		assert.True(t, isContract(err))
	}
}

func TestInverse(t *testing.T) {
	for _, ord := range perms {
		inv, err := Inverse(ord)
		require.NoError(t, err)
		for i := range ord {
			assert.Equal(t, i, inv[ord[i]])
			assert.Equal(t, i, ord[inv[i]])
		}
	}
	for _, bad := range []utils.Index{{}, {0, 0}, {1, 2}, {-1, 0}} {
		_, err := Inverse(bad)
		assert.True(t, isContract(err), "%v", bad)
	}
}

func TestExtend(t *testing.T) {
	{
		ext, err := Extend(utils.Index{2, 0, 1}, 2)
		require.NoError(t, err)
		assert.Equal(t, utils.Index{2, 0, 1, 5, 3, 4}, ext)
	}
	for _, ord := range perms {
		for P := 1; P <= 4; P++ {
			N := len(ord)
			ext, err := Extend(ord, P)
			require.NoError(t, err)
			require.Len(t, ext, N*P)
			assert.NoError(t, ext.IsPermutation())
			for b := 0; b < P; b++ {
				assert.Equal(t, ord.Add(b*N), ext[b*N:(b+1)*N])
			}
		}
	}
	{
		_, err := Extend(utils.Index{0}, 0)
		assert.True(t, isContract(err))
		_, err = Extend(utils.Index{}, 1)
		assert.True(t, isContract(err))
	}
}

func TestShifts(t *testing.T) {
	{
		ord := utils.Index{0, 1, 2, 3, 4}
		succ, err := Successor(ord)
		require.NoError(t, err)
		pred, err := Predecessor(ord)
		require.NoError(t, err)
		assert.Equal(t, utils.Index{1, 2, 3, 4, 4}, succ)
		assert.Equal(t, utils.Index{0, 0, 1, 2, 3}, pred)
	}
	for _, ord := range perms {
		N := len(ord)
		st, err := Stencil(ord)
		require.NoError(t, err)
		self, succ, pred := st[0], st[1], st[2]
		assert.Equal(t, ord, self)
		assert.Equal(t, ord[N-1], succ[N-1])
		assert.Equal(t, ord[0], pred[0])
		for i := 1; i < N-1; i++ {
			assert.Equal(t, ord[i+1], succ[i])
			assert.Equal(t, ord[i-1], pred[i])
		}
	}
	{
		_, err := Successor(nil)
		assert.True(t, isContract(err))
		_, err = Predecessor(nil)
		assert.True(t, isContract(err))
		_, err = Stencil(nil)
		assert.True(t, isContract(err))
	}
}

func TestReorder(t *testing.T) {
	var (
		batch, n, width = 3, 8, 2
		ord             = perms[4]
		data            = make([]float64, batch*n*width)
	)
	for i := range data {
		data[i] = float64(i)
	}
	out, err := Reorder(data, batch, n, width, ord)
	require.NoError(t, err)
	// Point 0 of the second batch entry is old point 3
	assert.Equal(t, data[1*n*width+3*width:1*n*width+4*width], out[1*n*width:1*n*width+width])
	inv, err := Inverse(ord)
	require.NoError(t, err)
	back, err := Reorder(out, batch, n, width, inv)
	require.NoError(t, err)
	assert.Equal(t, data, back)
	for _, np := range []int{1, 2, 3, 7} {
		par, err := ReorderParallel(data, batch, n, width, ord, np)
		require.NoError(t, err)
		assert.Equal(t, out, par, "np = %d", np)
	}
	{
		_, err := Reorder(data[1:], batch, n, width, ord)
		assert.True(t, isContract(err))
		_, err = Reorder(data, batch, n, width, ord[1:])
		assert.True(t, isContract(err))
		_, err = Reorder(data, 0, n, width, ord)
		assert.True(t, isContract(err))
	}
}
