// Package forest implements a seedable isolation-forest anomaly scorer.
//
// An ensemble of random partitioning trees is grown over subsamples of
// the batch; transactions that isolate in fewer partitioning steps score
// as more anomalous. The whole construction is driven by explicit seeded
// RNGs so identical inputs yield bit-for-bit identical scores.
package forest

import (
	"math"
	"runtime"
	"sort"
	"sync"
)

// Options configures forest construction.
type Options struct {
	// Trees is the ensemble size.
	Trees int

	// SubsampleSize caps the without-replacement sample each tree is
	// grown from; the effective size is min(SubsampleSize, N).
	SubsampleSize int

	// Seed drives every subsample draw, feature choice and split value.
	// Tree i derives its own RNG from Seed+i, so parallel builds stay
	// deterministic regardless of goroutine scheduling.
	Seed int64

	// Workers bounds build/score parallelism. Zero means one per CPU.
	Workers int
}

// Forest is a built isolation-tree ensemble.
type Forest struct {
	trees     []*node
	subsample int
	workers   int
}

// Build grows the ensemble over the given feature matrix. An empty
// matrix yields an empty forest whose ScoreAll returns no scores.
func Build(data [][]float64, opts Options) *Forest {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	n := len(data)
	if n == 0 || opts.Trees <= 0 {
		return &Forest{workers: workers}
	}

	sample := opts.SubsampleSize
	if sample > n {
		sample = n
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sample))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	f := &Forest{
		trees:     make([]*node, opts.Trees),
		subsample: sample,
		workers:   workers,
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i := range f.trees {
		wg.Add(1)
		go func(treeIdx int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			rng := newTreeRNG(opts.Seed, treeIdx)
			idx := rng.Perm(n)[:sample]
			f.trees[treeIdx] = buildTree(data, idx, 0, maxDepth, rng)
		}(i)
	}
	wg.Wait()

	return f
}

// Score returns the normalized average isolation depth of one point
// across all trees. Lower means more anomalous.
func (f *Forest) Score(x []float64) float64 {
	if len(f.trees) == 0 {
		return 1
	}

	total := 0.0
	for _, t := range f.trees {
		total += pathLength(t, x)
	}
	avg := total / float64(len(f.trees))

	norm := avgPathLength(f.subsample)
	if norm == 0 {
		return 1
	}
	return avg / norm
}

// ScoreAll scores every row of the feature matrix, in row order.
func (f *Forest) ScoreAll(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	if len(data) == 0 {
		return scores
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, f.workers)

	for i := range data {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			scores[row] = f.Score(data[row])
		}(i)
	}
	wg.Wait()

	return scores
}

// Threshold flags the round(contamination * N) lowest-scoring rows.
// Ties break on row index so the flag set is deterministic.
func Threshold(scores []float64, contamination float64) []bool {
	flags := make([]bool, len(scores))
	k := int(math.Round(contamination * float64(len(scores))))
	if k <= 0 {
		return flags
	}
	if k > len(scores) {
		k = len(scores)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] < scores[order[b]]
		}
		return order[a] < order[b]
	})

	for _, i := range order[:k] {
		flags[i] = true
	}
	return flags
}
