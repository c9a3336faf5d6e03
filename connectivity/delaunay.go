package connectivity

import (
	"math"

	"github.com/pradeep-pyro/triangle"

	"github.com/notargets/gosfc/types"
)

// DelaunayBuilder connects 2D points along the edges of their Delaunay triangulation
type DelaunayBuilder struct{}

func (DelaunayBuilder) String() string { return "delaunay" }

func (DelaunayBuilder) Build(pts types.PointSet) (c *Connectivity, err error) {
	if err = pts.Validate(); err != nil {
		return
	}
	if pts.Dim() != 2 {
		err = types.ContractViolation("delaunay connectivity needs 2D points, have %dD", pts.Dim())
		return
	}
	if err = checkDuplicates(pts); err != nil {
		return
	}
	var (
		n  = pts.N()
		es = types.NewEdgeSet(3 * n)
	)
	// A planar triangulation has at most 3N-6 edges, each stored twice
	capacity := 6 * n
	switch n {
	case 1:
		return FromEdges(n, es, capacity), nil
	case 2:
		es.Add(0, 1)
		return FromEdges(n, es, capacity), nil
	}
	xy := make([][2]float64, n)
	for i, x := range pts.Coords {
		xy[i] = [2]float64{x[0], x[1]}
	}
	if collinear(xy) {
		err = types.OracleFailure("delaunay triangulation of %d points is empty, points are collinear", n)
		return
	}
	tris := triangle.Delaunay(xy)
	if len(tris) == 0 {
		err = types.OracleFailure("delaunay triangulation of %d points produced no triangles, points are collinear", n)
		return
	}
	for k, tri := range tris {
		var (
			a, b, v = int(tri[0]), int(tri[1]), int(tri[2])
		)
		if a < 0 || a >= n || b < 0 || b >= n || v < 0 || v >= n {
			err = types.OracleFailure("triangle %d references a point outside [0, %d): %v", k, n, tri)
			return
		}
		es.Add(a, b)
		es.Add(b, v)
		es.Add(v, a)
	}
	c = FromEdges(n, es, capacity)
	return
}

// collinear reports whether every point lies on the line through the first point and the point farthest from it
func collinear(xy [][2]float64) bool {
	var (
		o    = xy[0]
		far  int
		dmax float64
	)
	for i, p := range xy {
		if d := math.Hypot(p[0]-o[0], p[1]-o[1]); d > dmax {
			far, dmax = i, d
		}
	}
	dx, dy := xy[far][0]-o[0], xy[far][1]-o[1]
	for _, p := range xy {
		if math.Abs(dx*(p[1]-o[1])-dy*(p[0]-o[0])) > 1.e-12*dmax*dmax {
			return false
		}
	}
	return true
}
