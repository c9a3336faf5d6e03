package connectivity

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/notargets/gosfc/types"
)

const DefaultNeighbors = 8

// KNNBuilder connects every point to its K nearest neighbors, the graph is
// symmetrised so point j lists i whenever i lists j.
type KNNBuilder struct {
	K int
}

func (b KNNBuilder) String() string { return fmt.Sprintf("knn(k=%d)", b.K) }

func (b KNNBuilder) Build(pts types.PointSet) (c *Connectivity, err error) {
	if err = pts.Validate(); err != nil {
		return
	}
	if b.K < 1 {
		err = types.ContractViolation("neighbor count must be positive, have %d", b.K)
		return
	}
	if err = checkDuplicates(pts); err != nil {
		return
	}
	var (
		n        = pts.N()
		k        = b.K
		es       = types.NewEdgeSet(k * n)
		capacity = 2 * k * n
	)
	if k > n-1 {
		k = n - 1
	}
	if k == 0 {
		return FromEdges(n, es, capacity), nil
	}
	points := make(indexedPoints, n)
	for i, x := range pts.Coords {
		points[i] = indexedPoint{idx: i, x: x}
	}
	// kdtree.New reorders its input
	tree := kdtree.New(append(indexedPoints(nil), points...), false)
	for i, q := range points {
		keep := kdtree.NewNKeeper(k + 1)
		tree.NearestSet(keep, q)
		found := make([]kdtree.ComparableDist, 0, len(keep.Heap))
		for _, cd := range keep.Heap {
			if cd.Comparable != nil {
				found = append(found, cd)
			}
		}
		sort.Slice(found, func(a, b int) bool {
			if found[a].Dist != found[b].Dist {
				return found[a].Dist < found[b].Dist
			}
			return found[a].Comparable.(indexedPoint).idx < found[b].Comparable.(indexedPoint).idx
		})
		var added int
		for _, cd := range found {
			j := cd.Comparable.(indexedPoint).idx
			if j == i {
				continue
			}
			if added == k {
				break
			}
			es.Add(i, j)
			added++
		}
	}
	c = FromEdges(n, es, capacity)
	return
}

type indexedPoint struct {
	idx int
	x   []float64
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	return p.x[d] - q.x[d]
}

func (p indexedPoint) Dims() int { return len(p.x) }

// Distance is the squared euclidean distance
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	var (
		q   = c.(indexedPoint)
		sum float64
	)
	for d, v := range p.x {
		dx := v - q.x[d]
		sum += dx * dx
	}
	return sum
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p indexedPoints) Len() int                      { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{Dim: d, points: p}, kdtree.MedianOfMedians(plane{Dim: d, points: p}))
}

// plane sorts points along one axis for the kd tree median selection
type plane struct {
	kdtree.Dim
	points indexedPoints
}

func (p plane) Len() int { return len(p.points) }
func (p plane) Less(i, j int) bool {
	return p.points[i].x[p.Dim] < p.points[j].x[p.Dim]
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{Dim: p.Dim, points: p.points[start:end]}
}
