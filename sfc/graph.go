package sfc

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/notargets/gosfc/connectivity"
)

// Leaves above this size are linearised in plain BFS order, the greedy walk is quadratic
const walkLimit = 256

// graphView walks the truncated adjacency of a block of points. A block is a
// roaring bitmap of point indices; every traversal is restricted to it.
// dist and mark are scratch distance arrays, -1 means unvisited. Every routine
// that fills one resets it before returning control to the recursion.
type graphView struct {
	n      int
	rowPtr []int
	colInd []int
	dist   []int
	mark   []int
}

func newGraphView(c *connectivity.Connectivity) (g *graphView) {
	g = &graphView{
		n:      c.N,
		rowPtr: c.RowPtr,
		colInd: c.Truncated(),
		dist:   make([]int, c.N),
		mark:   make([]int, c.N),
	}
	for i := 0; i < c.N; i++ {
		g.dist[i] = -1
		g.mark[i] = -1
	}
	return
}

func (g *graphView) neighbors(v int) []int { return g.colInd[g.rowPtr[v]:g.rowPtr[v+1]] }
func (g *graphView) degree(v int) int      { return g.rowPtr[v+1] - g.rowPtr[v] }

// bfs visits every member of block starting from sources, filling dist.
// Members not reachable inside the block are picked up from the smallest
// unvisited index at one level beyond the deepest level so far.
func (g *graphView) bfs(block *roaring.Bitmap, members []uint32, sources []int, dist []int) (order []int) {
	var (
		head, next int
	)
	order = make([]int, 0, len(members))
	for _, s := range sources {
		if dist[s] == -1 {
			dist[s] = 0
			order = append(order, s)
		}
	}
	for {
		for head < len(order) {
			v := order[head]
			head++
			for _, w := range g.neighbors(v) {
				if dist[w] == -1 && block.Contains(uint32(w)) {
					dist[w] = dist[v] + 1
					order = append(order, w)
				}
			}
		}
		if len(order) >= len(members) {
			return
		}
		for next < len(members) && dist[members[next]] != -1 {
			next++
		}
		m := int(members[next])
		if len(order) == 0 {
			dist[m] = 0
		} else {
			dist[m] = dist[order[len(order)-1]] + 1
		}
		order = append(order, m)
	}
}

func (g *graphView) reset(dist []int, order []int) {
	for _, v := range order {
		dist[v] = -1
	}
}

// pseudoPeripheral finds a node of near maximal eccentricity (George and Liu)
func (g *graphView) pseudoPeripheral(block *roaring.Bitmap, members []uint32, start int) (r int) {
	r = start
	order := g.bfs(block, members, []int{r}, g.dist)
	ecc := g.dist[order[len(order)-1]]
	for {
		cand, candDeg := -1, 0
		for i := len(order) - 1; i >= 0 && g.dist[order[i]] == ecc; i-- {
			v := order[i]
			d := g.degree(v)
			if cand < 0 || d < candDeg || (d == candDeg && v < cand) {
				cand, candDeg = v, d
			}
		}
		g.reset(g.dist, order)
		if cand == r {
			return
		}
		order = g.bfs(block, members, []int{cand}, g.dist)
		e := g.dist[order[len(order)-1]]
		if e <= ecc {
			g.reset(g.dist, order)
			return
		}
		r, ecc = cand, e
	}
}

// farthestFrom returns the member with the largest distance to its closest source, lowest index on ties
func (g *graphView) farthestFrom(block *roaring.Bitmap, members []uint32, sources []int) (far int) {
	order := g.bfs(block, members, sources, g.dist)
	far = order[0]
	for _, v := range order {
		if g.dist[v] > g.dist[far] || (g.dist[v] == g.dist[far] && v < far) {
			far = v
		}
	}
	g.reset(g.dist, order)
	return
}

// firstReached is the first node of tail met by a BFS from a node of block, or
// the smallest node of tail when none is reachable
func (g *graphView) firstReached(block *roaring.Bitmap, from int, tail *roaring.Bitmap) (found int) {
	found = -1
	g.dist[from] = 0
	queue := []int{from}
	for head := 0; head < len(queue) && found < 0; head++ {
		v := queue[head]
		for _, w := range g.neighbors(v) {
			if g.dist[w] == -1 && block.Contains(uint32(w)) {
				g.dist[w] = g.dist[v] + 1
				queue = append(queue, w)
				if tail.Contains(uint32(w)) {
					found = w
					break
				}
			}
		}
	}
	g.reset(g.dist, queue)
	if found < 0 {
		found = int(tail.Minimum())
	}
	return
}

// walk linearises a small block: from the current node step to the closest
// unvisited member, preferring members far from target so the walk ends near it.
func (g *graphView) walk(block *roaring.Bitmap, members []uint32, entry, target int) (path []int) {
	var (
		size = len(members)
	)
	if size > walkLimit {
		path = g.bfs(block, members, []int{entry}, g.dist)
		g.reset(g.dist, path)
		return
	}
	var orderT []int
	haveTarget := target >= 0 && target != entry && block.Contains(uint32(target))
	if haveTarget {
		orderT = g.bfs(block, members, []int{target}, g.mark)
	}
	visited := make(map[int]bool, size)
	path = make([]int, 0, size)
	path = append(path, entry)
	visited[entry] = true
	for cur := entry; len(path) < size; {
		order := g.bfs(block, members, []int{cur}, g.dist)
		best := -1
		for _, v := range order {
			if visited[v] {
				continue
			}
			if best >= 0 && g.dist[v] > g.dist[best] {
				break
			}
			switch {
			case best < 0:
				best = v
			case haveTarget && g.mark[v] != g.mark[best]:
				if g.mark[v] > g.mark[best] {
					best = v
				}
			case v < best:
				best = v
			}
		}
		g.reset(g.dist, order)
		path = append(path, best)
		visited[best] = true
		cur = best
	}
	if haveTarget {
		g.reset(g.mark, orderT)
	}
	return
}

func bitmapOf(nodes []int) (rb *roaring.Bitmap) {
	rb = roaring.New()
	for _, v := range nodes {
		rb.Add(uint32(v))
	}
	return
}
