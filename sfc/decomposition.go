package sfc

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/notargets/gosfc/connectivity"
)

// DefaultGraphTrim has always been -10: stop decomposing at blocks of ten points
const DefaultGraphTrim = -10

/*
DomainDecomposition numbers points along a curve obtained by recursive graph bisection.

	A block is entered at one node and should be left near a target node. The block is cut in
	two halves across the entry->target direction, using the difference of the BFS distances to
	the entry and to the target. The entry half is traversed first, ending at the cut, then the
	target half is entered at the first node reached from where the first half ended.
	Small blocks are linearised by a nearest unvisited walk.

StartingNode is one based, zero lets the generator pick a pseudo peripheral node.
GraphTrim < 0 stops the recursion at blocks of |GraphTrim| points, GraphTrim > 0 limits the recursion
depth, zero recurses down to single points.
*/
type DomainDecomposition struct {
	StartingNode int
	GraphTrim    int
}

func NewDomainDecomposition() *DomainDecomposition {
	return &DomainDecomposition{
		StartingNode: 0,
		GraphTrim:    DefaultGraphTrim,
	}
}

func (dd *DomainDecomposition) Generate(c *connectivity.Connectivity, n, ncurve int) (cn *CurveNumbering, err error) {
	if err = checkInputs(c, n, ncurve); err != nil {
		return
	}
	if err = checkStart(dd.StartingNode, n); err != nil {
		return
	}
	var (
		g     = newGraphView(c)
		comps = componentBlocks(c)
	)
	cn = NewCurveNumbering(n, ncurve)
	entries := make([][]int, len(comps))
	for ci, cb := range comps {
		entries[ci] = curveEntries(g, cb, ncurve, dd.StartingNode-1)
	}
	for k := 0; k < ncurve; k++ {
		var pos int
		for ci, cb := range comps {
			path := dd.linearize(g, cb.block, entries[ci][k], -1, 0, make([]int, 0, len(cb.members)))
			for _, v := range path {
				pos++
				cn.Set(v, k, float64(pos))
			}
		}
	}
	return
}

// String identifies the strategy and its tuning, it is part of ordering cache keys
func (dd *DomainDecomposition) String() string {
	return fmt.Sprintf("domain-decomposition(start=%d,trim=%d)", dd.StartingNode, dd.GraphTrim)
}

func (dd *DomainDecomposition) isLeaf(size, depth int) bool {
	switch {
	case size <= 1:
		return true
	case dd.GraphTrim < 0:
		return size <= -dd.GraphTrim
	case dd.GraphTrim > 0:
		return depth >= dd.GraphTrim
	}
	return false
}

type keyedNode struct {
	node, key, spread int
}

func (dd *DomainDecomposition) linearize(g *graphView, block *roaring.Bitmap, entry, target, depth int, out []int) []int {
	var (
		members = block.ToArray()
		size    = len(members)
	)
	if size == 0 {
		return out
	}
	if dd.isLeaf(size, depth) {
		return append(out, g.walk(block, members, entry, target)...)
	}
	orderE := g.bfs(block, members, []int{entry}, g.dist)
	if target < 0 || target == entry || !block.Contains(uint32(target)) {
		target = orderE[len(orderE)-1]
	}
	orderT := g.bfs(block, members, []int{target}, g.mark)
	keyed := make([]keyedNode, size)
	for i, m := range members {
		v := int(m)
		keyed[i] = keyedNode{node: v, key: g.dist[v] - g.mark[v], spread: g.dist[v] + g.mark[v]}
	}
	g.reset(g.dist, orderE)
	g.reset(g.mark, orderT)
	sort.Slice(keyed, func(a, b int) bool {
		ka, kb := keyed[a], keyed[b]
		switch {
		case ka.node == kb.node:
			return false
		case ka.node == entry:
			return true
		case kb.node == entry:
			return false
		case ka.node == target:
			return false
		case kb.node == target:
			return true
		case ka.key != kb.key:
			return ka.key < kb.key
		}
		return ka.node < kb.node
	})
	var (
		h          = size / 2
		head, tail = roaring.New(), roaring.New()
	)
	for i, kn := range keyed {
		if i < h {
			head.Add(uint32(kn.node))
		} else {
			tail.Add(uint32(kn.node))
		}
	}
	out = dd.linearize(g, head, entry, g.headExit(keyed[:h], tail), depth+1, out)
	tailEntry := g.firstReached(block, out[len(out)-1], tail)
	return dd.linearize(g, tail, tailEntry, target, depth+1, out)
}

// headExit picks where the entry half should end: on the cut, as far as
// possible from both the entry and the target so the second half has room
// to reach the target. Ties go to the lowest index.
func (g *graphView) headExit(head []keyedNode, tail *roaring.Bitmap) (exit int) {
	var (
		best = -1
	)
	exit = head[len(head)-1].node
	for _, kn := range head {
		onCut := false
		for _, w := range g.neighbors(kn.node) {
			if tail.Contains(uint32(w)) {
				onCut = true
				break
			}
		}
		if !onCut {
			continue
		}
		if kn.spread > best || (kn.spread == best && kn.node < exit) {
			best, exit = kn.spread, kn.node
		}
	}
	return
}

type componentBlock struct {
	block   *roaring.Bitmap
	members []uint32
}

func componentBlocks(c *connectivity.Connectivity) (cbs []componentBlock) {
	for _, comp := range c.Components() {
		block := bitmapOf(comp)
		cbs = append(cbs, componentBlock{block: block, members: block.ToArray()})
	}
	return
}

// curveEntries picks where each curve starts in a component: the hint (or a
// pseudo peripheral node) for the first curve, then each following curve starts
// as far as possible from the starts of the curves before it.
func curveEntries(g *graphView, cb componentBlock, ncurve, hint int) (entries []int) {
	entries = make([]int, 0, ncurve)
	if hint >= 0 && cb.block.Contains(uint32(hint)) {
		entries = append(entries, hint)
	} else {
		entries = append(entries, g.pseudoPeripheral(cb.block, cb.members, int(cb.members[0])))
	}
	for k := 1; k < ncurve; k++ {
		entries = append(entries, g.farthestFrom(cb.block, cb.members, entries))
	}
	return
}
