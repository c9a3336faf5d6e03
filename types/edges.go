package types

import (
	"fmt"
	"math"
)

/*
EdgeKey is an always positive number that stores an undirected graph edge as a pair of point indices
An edge between points [4] and [0] will always be stored as [0,4], in the ascending order of the index values
*/
type EdgeKey uint64

func NewEdgeKey(verts [2]int) (packed EdgeKey) {
	// This packs two point indices into two 32 bit unsigned integers to act as a hash and an indirect access method
	var (
		limit = math.MaxUint32
	)
	for _, vert := range verts {
		if vert < 0 || vert > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				verts[0], verts[1]))
		}
	}
	var i1, i2 int
	if verts[0] <= verts[1] {
		i1, i2 = verts[0], verts[1]
	} else {
		i1, i2 = verts[1], verts[0]
	}
	packed = EdgeKey(i1 + i2<<32)
	return
}

func (ek EdgeKey) GetVertices() (verts [2]int) {
	var (
		enTmp EdgeKey
	)
	enTmp = ek >> 32
	verts[1] = int(enTmp)
	verts[0] = int(ek - enTmp*(1<<32))
	return
}

// EdgeSet collects unique undirected edges, remembering insertion order so
// that anything built from it is deterministic.
type EdgeSet struct {
	seen  map[EdgeKey]struct{}
	Edges []EdgeKey
}

func NewEdgeSet(capacity int) *EdgeSet {
	return &EdgeSet{
		seen:  make(map[EdgeKey]struct{}, capacity),
		Edges: make([]EdgeKey, 0, capacity),
	}
}

// Add inserts the edge i-j, self loops are ignored. Returns true when the edge is new.
func (es *EdgeSet) Add(i, j int) bool {
	if i == j {
		return false
	}
	ek := NewEdgeKey([2]int{i, j})
	if _, ok := es.seen[ek]; ok {
		return false
	}
	es.seen[ek] = struct{}{}
	es.Edges = append(es.Edges, ek)
	return true
}

func (es *EdgeSet) Len() int { return len(es.Edges) }
