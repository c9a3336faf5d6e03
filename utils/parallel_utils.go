package utils

import "sync"

// PartitionMap splits MaxIndex items into ParallelDegree contiguous buckets, sizes differ by at most one
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // [start, end) of each bucket
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for bn := range pm.Partitions {
		pm.Partitions[bn] = pm.Split1D(bn)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bn int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bn][0], pm.Partitions[bn][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) int {
	kMin, kMax := pm.GetBucketRange(bn)
	return kMax - kMin
}

// Split1D gives the range of bucket bn, the first MaxIndex % ParallelDegree buckets take one extra item
func (pm *PartitionMap) Split1D(bn int) (bucket [2]int) {
	var (
		size  = pm.MaxIndex / pm.ParallelDegree
		extra = pm.MaxIndex % pm.ParallelDegree
	)
	bucket[0] = bn*size + min(bn, extra)
	bucket[1] = bucket[0] + size
	if bn < extra {
		bucket[1]++
	}
	return
}

// Run calls f for every non empty bucket, one goroutine each, and waits for all of them
func (pm *PartitionMap) Run(f func(bn, kMin, kMax int)) {
	var wg sync.WaitGroup
	for bn := 0; bn < pm.ParallelDegree; bn++ {
		kMin, kMax := pm.GetBucketRange(bn)
		if kMax == kMin {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(bn, kMin, kMax)
		}()
	}
	wg.Wait()
}
