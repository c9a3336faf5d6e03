// Package connectivity builds the sparse point adjacency that feeds the
// space-filling curve generator.
//
// The layout is the compressed row form used by graph partitioners (METIS
// xadj/adjncy): RowPtr has N+1 entries, the neighbors of point i are
// ColInd[RowPtr[i]:RowPtr[i+1]]. Builders allocate ColInd conservatively and
// report the prefix they filled in Used; callers work with Truncated().
package connectivity

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/notargets/gosfc/types"
	"github.com/notargets/gosfc/utils"
)

// Builder turns raw point coordinates into a sparse adjacency graph.
type Builder interface {
	Build(pts types.PointSet) (*Connectivity, error)
}

type Connectivity struct {
	N      int
	RowPtr []int // len N+1, non decreasing
	ColInd []int // allocated capacity, only ColInd[:Used] is meaningful
	Used   int
}

// NewBuilder picks the neighbor oracle for the mesh dimension: Delaunay edges
// in 2D, a symmetric k nearest neighbor graph in 3D.
func NewBuilder(dim, k int) Builder {
	if dim == 2 {
		return DelaunayBuilder{}
	}
	return KNNBuilder{K: k}
}

// FromEdges assembles a Connectivity from unique undirected edges, allocating capacity column slots.
// Rows are sorted so that the result only depends on the edge set.
func FromEdges(n int, es *types.EdgeSet, capacity int) (c *Connectivity) {
	var (
		degree = make([]int, n)
		used   = 2 * es.Len()
	)
	if capacity < used {
		capacity = used
	}
	for _, ek := range es.Edges {
		v := ek.GetVertices()
		degree[v[0]]++
		degree[v[1]]++
	}
	c = &Connectivity{
		N:      n,
		RowPtr: make([]int, n+1),
		ColInd: make([]int, capacity),
		Used:   used,
	}
	for i := 0; i < n; i++ {
		c.RowPtr[i+1] = c.RowPtr[i] + degree[i]
	}
	fill := make([]int, n)
	copy(fill, c.RowPtr[:n])
	for _, ek := range es.Edges {
		v := ek.GetVertices()
		c.ColInd[fill[v[0]]] = v[1]
		fill[v[0]]++
		c.ColInd[fill[v[1]]] = v[0]
		fill[v[1]]++
	}
	for i := 0; i < n; i++ {
		sort.Ints(c.ColInd[c.RowPtr[i]:c.RowPtr[i+1]])
	}
	return
}

// Validate checks the structural invariants, it does not check symmetry.
func (c *Connectivity) Validate() error {
	switch {
	case c == nil:
		return types.ContractViolation("nil connectivity")
	case c.N < 1:
		return types.ContractViolation("connectivity has %d points", c.N)
	case len(c.RowPtr) != c.N+1:
		return types.ContractViolation("row pointer length must be N+1: N = %d, len = %d", c.N, len(c.RowPtr))
	case c.RowPtr[0] != 0:
		return types.ContractViolation("row pointer must start at 0, have %d", c.RowPtr[0])
	case c.Used > len(c.ColInd):
		return types.ContractViolation("used length %d exceeds allocated %d", c.Used, len(c.ColInd))
	case c.RowPtr[c.N] != c.Used:
		return types.ContractViolation("row pointer end %d does not match used length %d", c.RowPtr[c.N], c.Used)
	}
	for i := 0; i < c.N; i++ {
		if c.RowPtr[i+1] < c.RowPtr[i] {
			return types.ContractViolation("row pointer decreases at row %d", i)
		}
	}
	for k, j := range c.Truncated() {
		if j < 0 || j >= c.N {
			return types.ContractViolation("column index %d at slot %d out of range [0, %d)", j, k, c.N)
		}
	}
	return nil
}

// Truncated returns the filled prefix of the column index array
func (c *Connectivity) Truncated() []int { return c.ColInd[:c.Used] }

// Edges is the number of stored (directed) adjacency entries
func (c *Connectivity) Edges() int { return c.Used }

func (c *Connectivity) Neighbors(i int) []int {
	return c.ColInd[c.RowPtr[i]:c.RowPtr[i+1]]
}

func (c *Connectivity) ToCSR() (utils.CSR, error) {
	return utils.NewAdjacencyCSR(c.N, c.RowPtr, c.Truncated())
}

func (c *Connectivity) IsSymmetric() bool {
	m, err := c.ToCSR()
	if err != nil {
		return false
	}
	return m.IsSymmetric()
}

// Graph returns the adjacency as a gonum undirected graph, node IDs are point indices
func (c *Connectivity) Graph() *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := 0; i < c.N; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < c.N; i++ {
		for _, j := range c.Neighbors(i) {
			if j > i {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}
	return g
}

// Components returns the connected components, each sorted ascending, ordered by their smallest point
func (c *Connectivity) Components() (comps [][]int) {
	for _, cc := range topo.ConnectedComponents(c.Graph()) {
		comp := make([]int, len(cc))
		for i, node := range cc {
			comp[i] = int(node.ID())
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	return
}

// checkDuplicates fails when two distinct points share coordinates, the
// neighbor oracles cannot assign a zero length edge.
func checkDuplicates(pts types.PointSet) error {
	var (
		n   = pts.N()
		ind = make([]int, n)
	)
	for i := range ind {
		ind[i] = i
	}
	less := func(a, b []float64) bool {
		for d := range a {
			if a[d] != b[d] {
				return a[d] < b[d]
			}
		}
		return false
	}
	sort.Slice(ind, func(i, j int) bool { return less(pts.Coords[ind[i]], pts.Coords[ind[j]]) })
	for k := 1; k < n; k++ {
		a, b := pts.Coords[ind[k-1]], pts.Coords[ind[k]]
		if !less(a, b) && !less(b, a) {
			lo, hi := ind[k-1], ind[k]
			if lo > hi {
				lo, hi = hi, lo
			}
			return types.OracleFailure("points %d and %d are duplicates at %v", lo, hi, a)
		}
	}
	return nil
}

// MeshBuilder connects points along the edges of an existing mesh instead of searching for neighbors
type MeshBuilder struct {
	Edges *types.EdgeSet
}

func (b MeshBuilder) Build(pts types.PointSet) (c *Connectivity, err error) {
	if err = pts.Validate(); err != nil {
		return
	}
	if b.Edges == nil {
		err = types.ContractViolation("mesh builder has no edges")
		return
	}
	n := pts.N()
	for _, ek := range b.Edges.Edges {
		if v := ek.GetVertices(); v[1] >= n {
			err = types.ContractViolation("mesh edge %v references a point outside [0, %d)", v, n)
			return
		}
	}
	c = FromEdges(n, b.Edges, 0)
	return
}

// String names the edge set by its size and a hash of the sorted edge keys
func (b MeshBuilder) String() string {
	if b.Edges == nil {
		return "mesh-edges(none)"
	}
	var (
		keys = make([]uint64, b.Edges.Len())
		buf  = make([]byte, 8*len(keys))
	)
	for i, ek := range b.Edges.Edges {
		keys[i] = uint64(ek)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for i, k := range keys {
		binary.LittleEndian.PutUint64(buf[8*i:], k)
	}
	return fmt.Sprintf("mesh-edges(n=%d,%016x)", len(keys), xxhash.Sum64(buf))
}
