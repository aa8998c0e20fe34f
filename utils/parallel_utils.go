package utils

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultParallelDegree is used by NewPartitionMapFor when the caller does not
// pin a degree. Zero means runtime.NumCPU().
var DefaultParallelDegree = 0

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
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
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// NewPartitionMapFor sizes the parallel degree from DefaultParallelDegree or
// the CPU count, never exceeding the number of items.
func NewPartitionMapFor(maxIndex int) (pm *PartitionMap) {
	var (
		np = DefaultParallelDegree
	)
	if np < 1 {
		np = runtime.NumCPU()
	}
	if np > maxIndex {
		np = maxIndex
	}
	if np < 1 {
		np = 1
	}
	return NewPartitionMap(np, maxIndex)
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// Run calls fn once per bucket, each in its own goroutine, and waits for all of
// them. fn must only write to outputs owned by its [kMin, kMax) range.
func (pm *PartitionMap) Run(fn func(bn, kMin, kMax int)) {
	if pm.ParallelDegree == 1 {
		fn(0, 0, pm.MaxIndex)
		return
	}
	wg := sync.WaitGroup{}
	for np := 0; np < pm.ParallelDegree; np++ {
		kMin, kMax := pm.GetBucketRange(np)
		if kMin == kMax {
			continue
		}
		wg.Add(1)
		go func(np, kMin, kMax int) {
			defer wg.Done()
			fn(np, kMin, kMax)
		}(np, kMin, kMax)
	}
	wg.Wait()
}

// RunE is Run for fallible work. All buckets run to completion; the error of the
// lowest failing bucket is returned so the reported failure is reproducible.
func (pm *PartitionMap) RunE(fn func(bn, kMin, kMax int) error) error {
	if pm.ParallelDegree == 1 {
		return fn(0, 0, pm.MaxIndex)
	}
	var (
		g    errgroup.Group
		errs = make([]error, pm.ParallelDegree)
	)
	for np := 0; np < pm.ParallelDegree; np++ {
		kMin, kMax := pm.GetBucketRange(np)
		if kMin == kMax {
			continue
		}
		np := np
		g.Go(func() error {
			errs[np] = fn(np, kMin, kMax)
			return errs[np]
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Reduce gives every bucket a private zeroed buffer of length n to accumulate
// into, then sums the buffers in bucket order so the result does not depend on
// goroutine scheduling.
func (pm *PartitionMap) Reduce(n int, fn func(kMin, kMax int, acc []float64)) (sum []float64) {
	var (
		bufs = make([][]float64, pm.ParallelDegree)
	)
	for np := range bufs {
		bufs[np] = make([]float64, n)
	}
	pm.Run(func(bn, kMin, kMax int) {
		fn(kMin, kMax, bufs[bn])
	})
	sum = bufs[0]
	for np := 1; np < pm.ParallelDegree; np++ {
		for i, val := range bufs[np] {
			sum[i] += val
		}
	}
	return
}
