package types

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	{ // Test packed int for edge labeling
		en := NewEdgeKey([2]int{1, 0})
		assert.Equal(t, EdgeKey(1<<32), en)
		assert.Equal(t, [2]int{0, 1}, en.GetVertices())

		en = NewEdgeKey([2]int{0, 10})
		assert.Equal(t, EdgeKey(10*(1<<32)), en)
		assert.Equal(t, [2]int{0, 10}, en.GetVertices())

		en = NewEdgeKey([2]int{100, 1})
		assert.Equal(t, EdgeKey(100*(1<<32)+1), en)
		assert.Equal(t, [2]int{1, 100}, en.GetVertices())

		// Test maximum/minimum indices
		en = NewEdgeKey([2]int{1<<32 - 1, 1})
		assert.Equal(t, EdgeKey((1<<32-1)<<32+1), en)
		assert.Equal(t, [2]int{1, 1<<32 - 1}, en.GetVertices())

		assert.Panics(t, func() { NewEdgeKey([2]int{-1, 2}) })
	}
	{ // Edge set dedup
		es := NewEdgeSet(4)
		assert.True(t, es.Add(0, 1))
		assert.False(t, es.Add(1, 0))
		assert.False(t, es.Add(2, 2))
		assert.True(t, es.Add(2, 1))
		assert.Equal(t, 2, es.Len())
		assert.Equal(t, [2]int{1, 2}, es.Edges[1].GetVertices())
	}
}

func TestPointSet(t *testing.T) {
	ps, err := NewPointSet([][]float64{{0, 0, 1}, {1, 0, 1}, {0, 2, 1}})
	require.NoError(t, err)
	assert.Equal(t, 3, ps.N())
	assert.Equal(t, 3, ps.Dim())
	min, max := ps.Range(1)
	assert.Equal(t, 0., min)
	assert.Equal(t, 2., max)

	flat := ps.DropLastAxis()
	assert.Equal(t, 2, flat.Dim())
	assert.Equal(t, 3, ps.Dim()) // original untouched
	assert.False(t, flat.Equal(ps))

	_, err = NewPointSet(nil)
	assert.True(t, errors.Is(err, ErrContractViolation))
	_, err = NewPointSet([][]float64{{0}})
	assert.True(t, errors.Is(err, ErrContractViolation))
	_, err = NewPointSet([][]float64{{0, 0}, {0, 0, 0}})
	assert.True(t, errors.Is(err, ErrContractViolation))
	_, err = NewPointSet([][]float64{{0, math.NaN()}})
	assert.True(t, errors.Is(err, ErrContractViolation))
	_, err = NewPointSetXY([]float64{0, 1}, []float64{0})
	assert.True(t, errors.Is(err, ErrContractViolation))
}

func TestErrors(t *testing.T) {
	err := NewMissingFieldError("Pressure", "run_3.vtu", []string{"Velocity", "Density"})
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "Density, Velocity")
	assert.Contains(t, err.Error(), "run_3.vtu")

	var mfe *MissingFieldError
	wrapped := errors.Join(errors.New("reading series"), err)
	assert.True(t, errors.As(wrapped, &mfe))
	assert.Equal(t, "Pressure", mfe.Field)

	assert.True(t, errors.Is(OracleFailure("duplicate point %d", 3), ErrOracleFailure))
	assert.False(t, errors.Is(ContractViolation("x"), ErrOracleFailure))
}
