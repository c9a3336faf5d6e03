package sfc

import (
	"fmt"

	"github.com/notargets/gosfc/connectivity"
)

// LevelSetGenerator numbers points in BFS level order from the same curve
// entries DomainDecomposition would use. Locality is weaker, it is mainly a
// cheap baseline behind the Generator interface.
type LevelSetGenerator struct {
	StartingNode int
}

func (ls LevelSetGenerator) Generate(c *connectivity.Connectivity, n, ncurve int) (cn *CurveNumbering, err error) {
	if err = checkInputs(c, n, ncurve); err != nil {
		return
	}
	if err = checkStart(ls.StartingNode, n); err != nil {
		return
	}
	var (
		g     = newGraphView(c)
		comps = componentBlocks(c)
	)
	cn = NewCurveNumbering(n, ncurve)
	for k := 0; k < ncurve; k++ {
		var pos int
		for _, cb := range comps {
			entries := curveEntries(g, cb, k+1, ls.StartingNode-1)
			order := g.bfs(cb.block, cb.members, []int{entries[k]}, g.dist)
			g.reset(g.dist, order)
			for _, v := range order {
				pos++
				cn.Set(v, k, float64(pos))
			}
		}
	}
	return
}

func (ls LevelSetGenerator) String() string { return fmt.Sprintf("level-set(start=%d)", ls.StartingNode) }
