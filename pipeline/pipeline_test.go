package pipeline

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosfc/cache"
	"github.com/notargets/gosfc/connectivity"
	"github.com/notargets/gosfc/progress"
	"github.com/notargets/gosfc/readfiles"
	"github.com/notargets/gosfc/sfc"
	"github.com/notargets/gosfc/types"
	"github.com/notargets/gosfc/utils"
)

// jitteredGrid avoids cocircular points so the Delaunay triangulation is unique
func jitteredGrid(nx, ny int, seed int64) types.PointSet {
	var (
		rng    = rand.New(rand.NewSource(seed))
		coords = make([][]float64, 0, nx*ny)
	)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			coords = append(coords, []float64{float64(i) + 0.2*rng.Float64(), float64(j) + 0.2*rng.Float64()})
		}
	}
	return types.PointSet{Coords: coords}
}

type recorder struct {
	progress.Noop
	started int
	cached  []bool
}

func (r *recorder) OnOrderingStart(int, int) { r.started++ }
func (r *recorder) OnOrderingDone(_, _ int, _ time.Duration, cached bool) {
	r.cached = append(r.cached, cached)
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func checkResult(t *testing.T, res *Result, n, ncurve int) {
	require.Len(t, res.Curves, ncurve)
	require.Len(t, res.Inverses, ncurve)
	for c := range res.Curves {
		require.Len(t, res.Curves[c], n)
		assert.NoError(t, res.Curves[c].IsPermutation())
		for i, p := range res.Curves[c] {
			assert.Equal(t, i, res.Inverses[c][p])
		}
	}
}

func TestOrderMesh(t *testing.T) {
	var (
		ctx = context.Background()
		pts = jitteredGrid(8, 8, 1)
		mc  = cache.NewMemoryCache()
		rec = &recorder{}
	)
	r := NewRunner(WithCache(mc), WithObserver(rec), WithLogger(quietLogger()), WithNumCurves(2),
		WithCompression(cache.CompressionLZ4))
	res, err := r.OrderMesh(ctx, pts)
	require.NoError(t, err)
	checkResult(t, res, 64, 2)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, mc.Len())
	assert.Equal(t, cache.TopologyKey(pts, 2, "delaunay/"+sfc.NewDomainDecomposition().String()), res.Key)
	{
		again, err := r.OrderMesh(ctx, pts)
		require.NoError(t, err)
		assert.True(t, again.Cached)
		assert.Equal(t, res.Curves, again.Curves)
		assert.Equal(t, res.Inverses, again.Inverses)
	}
	{ // Another oracle is another key
		r2 := NewRunner(WithCache(mc), WithLogger(quietLogger()), WithBuilder(connectivity.KNNBuilder{K: 6}))
		res2, err := r2.OrderMesh(ctx, pts)
		require.NoError(t, err)
		checkResult(t, res2, 64, 2)
		assert.False(t, res2.Cached)
		assert.NotEqual(t, res.Key, res2.Key)
	}
	assert.Equal(t, 2, rec.started)
	assert.Equal(t, []bool{false, true}, rec.cached)
}

func TestOrderMeshCorruptCache(t *testing.T) {
	var (
		ctx = context.Background()
		pts = jitteredGrid(5, 4, 2)
		mc  = cache.NewMemoryCache()
	)
	r := NewRunner(WithCache(mc), WithLogger(quietLogger()), WithNumCurves(1))
	ref, err := r.OrderMesh(ctx, pts)
	require.NoError(t, err)
	require.NoError(t, mc.Set(ctx, ref.Key, []byte("garbage"), 0))
	res, err := r.OrderMesh(ctx, pts)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, ref.Curves, res.Curves)
	data, ok, err := mc.Get(ctx, ref.Key)
	require.NoError(t, err)
	require.True(t, ok)
	curves, _, err := cache.DecodeOrderings(data)
	require.NoError(t, err)
	assert.Equal(t, ref.Curves, curves)
}

type stuckGenerator struct {
	release chan struct{}
}

func (g stuckGenerator) Generate(c *connectivity.Connectivity, n, ncurve int) (*sfc.CurveNumbering, error) {
	<-g.release
	return nil, types.OracleFailure("released")
}

func TestOrderMeshErrors(t *testing.T) {
	var (
		pts = jitteredGrid(4, 4, 3)
	)
	{
		r := NewRunner(WithLogger(quietLogger()), WithNumCurves(0))
		_, err := r.OrderMesh(context.Background(), pts)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
		_, err = NewRunner().OrderMesh(context.Background(), types.PointSet{})
		assert.True(t, errors.Is(err, types.ErrContractViolation))
	}
	{ // Duplicate points are an oracle failure
		dup := types.PointSet{Coords: [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 0}}}
		_, err := NewRunner(WithLogger(quietLogger())).OrderMesh(context.Background(), dup)
		assert.True(t, errors.Is(err, types.ErrOracleFailure))
	}
	{
		g := stuckGenerator{release: make(chan struct{})}
		ctx, cancel := context.WithCancel(context.Background())
		r := NewRunner(WithLogger(quietLogger()), WithGenerator(g))
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		res, err := r.OrderMesh(ctx, pts)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, context.Canceled))
		close(g.release)
	}
	{
		g := stuckGenerator{release: make(chan struct{})}
		close(g.release)
		_, err := NewRunner(WithLogger(quietLogger()), WithGenerator(g)).OrderMesh(context.Background(), pts)
		assert.True(t, errors.Is(err, types.ErrOracleFailure))
		assert.Contains(t, err.Error(), "generating curves")
	}
}

// adaptedSeries has three snapshots of a two component field, the mesh moves after the second
func adaptedSeries() *readfiles.Series {
	var (
		first  = jitteredGrid(4, 3, 4)
		second = jitteredGrid(4, 3, 5)
		n      = first.N()
		data   = make([][]float64, 3)
	)
	for s := range data {
		data[s] = make([]float64, 2*n)
		for p := 0; p < n; p++ {
			data[s][2*p] = float64(100*s + p)
			data[s][2*p+1] = -float64(100*s + p)
		}
	}
	return &readfiles.Series{
		Field: "velocity",
		Segments: []readfiles.Segment{
			{Start: 0, End: 2, Coords: first},
			{Start: 2, End: 3, Coords: second},
		},
		Components: 2,
		Data:       data,
	}
}

func TestOrderAndReorderSeries(t *testing.T) {
	var (
		ctx = context.Background()
		s   = adaptedSeries()
		n   = s.NumPoints()
	)
	r := NewRunner(WithLogger(quietLogger()), WithNumCurves(2), WithParallelism(3))
	results, err := r.OrderSeries(ctx, s)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		checkResult(t, res, n, 2)
	}
	assert.NotEqual(t, results[0].Key, results[1].Key)

	out, err := r.ReorderSeries(ctx, s, results)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for c := range out {
		require.Len(t, out[c], 3)
		for snap, vals := range out[c] {
			ord := results[0].Curves[c]
			if snap == 2 {
				ord = results[1].Curves[c]
			}
			for i, p := range ord {
				assert.Equal(t, s.Data[snap][2*p], vals[2*i])
				assert.Equal(t, s.Data[snap][2*p+1], vals[2*i+1])
			}
		}
	}
	{ // Gathering with the inverse restores the snapshot
		inv := results[1].Inverses[1]
		back := make([]float64, 2*n)
		for p := 0; p < n; p++ {
			copy(back[2*p:2*p+2], out[1][2][2*inv[p]:2*inv[p]+2])
		}
		assert.Equal(t, s.Data[2], back)
	}
	{
		_, err := r.ReorderSeries(ctx, s, results[:1])
		assert.True(t, errors.Is(err, types.ErrContractViolation))
		short := &Result{Curves: []utils.Index{{0, 1}}, Inverses: []utils.Index{{0, 1}}}
		_, err = r.ReorderSeries(ctx, s, []*Result{results[0], short})
		assert.True(t, errors.Is(err, types.ErrContractViolation))
		truncated := *s
		truncated.Data = append([][]float64{s.Data[0][:2]}, s.Data[1:]...)
		_, err = r.ReorderSeries(ctx, &truncated, results)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
	}
	{
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.ReorderSeries(cctx, s, results)
		assert.True(t, errors.Is(err, context.Canceled))
	}
}
