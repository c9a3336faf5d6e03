package cache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/notargets/gosfc/types"
)

/*
TopologyKey identifies a set of orderings: the point coordinates, the number of curves and a
description of the strategy (neighbor oracle and generator settings) that produced them.

	"sfc:" + 16 hex digits of xxhash64
*/
func TopologyKey(pts types.PointSet, ncurve int, strategy string) string {
	var (
		d   = xxhash.New()
		buf [8]byte
	)
	put := func(u uint64) {
		binary.LittleEndian.PutUint64(buf[:], u)
		_, _ = d.Write(buf[:])
	}
	put(uint64(pts.N()))
	put(uint64(pts.Dim()))
	put(uint64(ncurve))
	for _, x := range pts.Coords {
		for _, v := range x {
			put(math.Float64bits(v))
		}
	}
	_, _ = d.WriteString(strategy)
	return fmt.Sprintf("sfc:%016x", d.Sum64())
}
