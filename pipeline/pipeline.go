/*
Package pipeline ties the stages together: point set -> connectivity -> curve numbering -> orderings,
with the orderings cached per topology, and the reordering of a snapshot series along every curve.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/gosfc/cache"
	"github.com/notargets/gosfc/connectivity"
	"github.com/notargets/gosfc/ordering"
	"github.com/notargets/gosfc/progress"
	"github.com/notargets/gosfc/readfiles"
	"github.com/notargets/gosfc/sfc"
	"github.com/notargets/gosfc/types"
	"github.com/notargets/gosfc/utils"
)

type Runner struct {
	Builder     connectivity.Builder // nil picks one from the point dimension
	Generator   sfc.Generator
	Cache       cache.Cache
	Observer    progress.Observer
	Logger      *log.Logger
	NumCurves   int
	Neighbors   int // K for the nearest neighbor oracle
	Compression cache.CompressionType
	CacheTTL    time.Duration
	Parallelism int
}

type Option func(r *Runner)

func WithBuilder(b connectivity.Builder) Option      { return func(r *Runner) { r.Builder = b } }
func WithGenerator(g sfc.Generator) Option           { return func(r *Runner) { r.Generator = g } }
func WithCache(c cache.Cache) Option                 { return func(r *Runner) { r.Cache = c } }
func WithObserver(o progress.Observer) Option        { return func(r *Runner) { r.Observer = o } }
func WithLogger(l *log.Logger) Option                { return func(r *Runner) { r.Logger = l } }
func WithNumCurves(n int) Option                     { return func(r *Runner) { r.NumCurves = n } }
func WithNeighbors(k int) Option                     { return func(r *Runner) { r.Neighbors = k } }
func WithCompression(c cache.CompressionType) Option { return func(r *Runner) { r.Compression = c } }
func WithCacheTTL(ttl time.Duration) Option          { return func(r *Runner) { r.CacheTTL = ttl } }
func WithParallelism(np int) Option                  { return func(r *Runner) { r.Parallelism = np } }

func NewRunner(opts ...Option) (r *Runner) {
	r = &Runner{
		Generator:   sfc.NewDomainDecomposition(),
		Cache:       cache.NewNullCache(),
		Observer:    progress.Noop{},
		Logger:      log.Default(),
		NumCurves:   2,
		Neighbors:   connectivity.DefaultNeighbors,
		Compression: cache.CompressionZSTD,
		Parallelism: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Cache == nil {
		r.Cache = cache.NewNullCache()
	}
	if r.Observer == nil {
		r.Observer = progress.Noop{}
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	return
}

// Result holds the orderings of one topology, Curves[c] lists the points in the order of curve c
type Result struct {
	Key      string
	Curves   []utils.Index
	Inverses []utils.Index
	Cached   bool
}

func (res *Result) NumPoints() int { return len(res.Curves[0]) }

func (r *Runner) builder(dim int) connectivity.Builder {
	if r.Builder != nil {
		return r.Builder
	}
	return connectivity.NewBuilder(dim, r.Neighbors)
}

func describe(v interface{}) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T%+v", v, v)
}

/*
OrderMesh returns NumCurves orderings of the points, from the cache when this topology was seen before.

	Cache failures are logged and the orderings recomputed. The curve generator runs in its own
	goroutine, when ctx is cancelled OrderMesh returns ctx.Err() and the result is dropped.
*/
func (r *Runner) OrderMesh(ctx context.Context, pts types.PointSet) (res *Result, err error) {
	if err = pts.Validate(); err != nil {
		return
	}
	if r.NumCurves <= 0 {
		err = types.ContractViolation("number of curves must be positive, have %d", r.NumCurves)
		return
	}
	var (
		n        = pts.N()
		start    = time.Now()
		builder  = r.builder(pts.Dim())
		strategy = describe(builder) + "/" + describe(r.Generator)
	)
	res = &Result{Key: cache.TopologyKey(pts, r.NumCurves, strategy)}
	r.Observer.OnOrderingStart(n, r.NumCurves)
	if res.Curves, res.Inverses, res.Cached = r.lookup(ctx, res.Key, n); res.Cached {
		r.Observer.OnOrderingDone(n, r.NumCurves, time.Since(start), true)
		return
	}
	var c *connectivity.Connectivity
	if c, err = builder.Build(pts); err != nil {
		res, err = nil, fmt.Errorf("building connectivity with %s: %w", describe(builder), err)
		return
	}
	r.Logger.Debug("connectivity built", "points", n, "entries", c.Edges(), "oracle", describe(builder))
	var cn *sfc.CurveNumbering
	if cn, err = r.generate(ctx, c, n); err != nil {
		res = nil
		return
	}
	if res.Curves, res.Inverses, err = ordering.Extract(cn); err != nil {
		res, err = nil, fmt.Errorf("extracting orderings: %w", err)
		return
	}
	r.store(ctx, res)
	r.Observer.OnOrderingDone(n, r.NumCurves, time.Since(start), false)
	return
}

func (r *Runner) generate(ctx context.Context, c *connectivity.Connectivity, n int) (cn *sfc.CurveNumbering, err error) {
	type generated struct {
		cn  *sfc.CurveNumbering
		err error
	}
	done := make(chan generated, 1)
	go func() {
		cn, err := r.Generator.Generate(c, n, r.NumCurves)
		done <- generated{cn, err}
	}()
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case g := <-done:
		if cn, err = g.cn, g.err; err != nil {
			err = fmt.Errorf("generating curves with %s: %w", describe(r.Generator), err)
		}
	}
	return
}

func (r *Runner) lookup(ctx context.Context, key string, n int) (curves, inverses []utils.Index, ok bool) {
	data, found, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("ordering cache read failed", "key", key, "err", err)
		return
	}
	if !found {
		return
	}
	if curves, inverses, err = cache.DecodeOrderings(data); err == nil && len(curves) == r.NumCurves &&
		len(curves[0]) == n {
		ok = true
		return
	}
	if err == nil {
		err = fmt.Errorf("%w: cached orderings do not match %d curves of %d points", cache.ErrCorrupt, r.NumCurves, n)
	}
	r.Logger.Warn("discarding cached orderings", "key", key, "err", err)
	if err = r.Cache.Delete(ctx, key); err != nil {
		r.Logger.Warn("ordering cache delete failed", "key", key, "err", err)
	}
	return nil, nil, false
}

func (r *Runner) store(ctx context.Context, res *Result) {
	data, err := cache.EncodeOrderings(res.Curves, res.Inverses, r.Compression)
	if err == nil {
		err = r.Cache.Set(ctx, res.Key, data, r.CacheTTL)
	}
	if err != nil {
		r.Logger.Warn("ordering cache write failed", "key", res.Key, "err", err)
		return
	}
	r.Logger.Debug("orderings cached", "key", res.Key, "bytes", len(data), "compression", r.Compression)
}

// OrderSeries orders every topology segment of the series, results[i] belongs to s.Segments[i]
func (r *Runner) OrderSeries(ctx context.Context, s *readfiles.Series) (results []*Result, err error) {
	results = make([]*Result, len(s.Segments))
	for i, seg := range s.Segments {
		if results[i], err = r.OrderMesh(ctx, seg.Coords); err != nil {
			results, err = nil, fmt.Errorf("segment %d (snapshots %d-%d): %w", i, seg.Start, seg.End-1, err)
			return
		}
	}
	return
}

/*
ReorderSeries gathers every snapshot of the series along every curve of its segment. The snapshots of a
segment form one batch per curve, split over Parallelism goroutines.

	out[c][snapshot] holds npoints*Components values, component index fastest, in the order of curve c
*/
func (r *Runner) ReorderSeries(ctx context.Context, s *readfiles.Series, results []*Result) (out [][][]float64, err error) {
	if len(results) == 0 || len(results) != len(s.Segments) {
		err = types.ContractViolation("have %d ordering results for %d segments", len(results), len(s.Segments))
		return
	}
	var (
		ncurve = len(results[0].Curves)
		n      = s.NumPoints()
		nsnap  = len(s.Data)
	)
	for i, res := range results {
		if len(res.Curves) != ncurve || res.NumPoints() != n {
			err = types.ContractViolation("segment %d has %d curves of %d points, expected %d of %d",
				i, len(res.Curves), res.NumPoints(), ncurve, n)
			return
		}
	}
	width := n * s.Components
	for snap, data := range s.Data {
		if len(data) != width {
			err = types.ContractViolation("snapshot %d has %d values, expected %d", snap, len(data), width)
			return
		}
	}
	out = make([][][]float64, ncurve)
	for c := range out {
		out[c] = make([][]float64, nsnap)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Parallelism, 1))
	for i, seg := range s.Segments {
		var (
			res   = results[i]
			nb    = seg.End - seg.Start
			batch = make([]float64, 0, nb*width)
		)
		for snap := seg.Start; snap < seg.End; snap++ {
			batch = append(batch, s.Data[snap]...)
		}
		for c, ord := range res.Curves {
			g.Go(func() (err error) {
				if err = gctx.Err(); err != nil {
					return
				}
				var gathered []float64
				if gathered, err = ordering.ReorderParallel(batch, nb, n, s.Components, ord, r.Parallelism); err != nil {
					return
				}
				for b := 0; b < nb; b++ {
					out[c][seg.Start+b] = gathered[b*width : (b+1)*width : (b+1)*width]
				}
				return
			})
		}
	}
	if err = g.Wait(); err != nil {
		out = nil
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("reordering snapshots: %w", err)
		}
	}
	return
}
