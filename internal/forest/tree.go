package forest

import (
	"math"
	"math/rand"
)

// eulerGamma is the Euler-Mascheroni constant, used in the expected
// average path length of an unsuccessful BST search.
const eulerGamma = 0.5772156649015329

// newTreeRNG derives the dedicated RNG for one tree. Offsetting the base
// seed by the tree index keeps every tree's randomness independent of
// build scheduling.
func newTreeRNG(seed int64, tree int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(tree)))
}

// node is a single partition node in an isolation tree. Leaves carry the
// remaining sample size so scoring can add the expected-depth correction
// for points that were not fully isolated.
type node struct {
	feature int
	split   float64
	left    *node
	right   *node
	size    int // leaf only
}

func (n *node) isLeaf() bool { return n.left == nil }

// buildTree recursively partitions the sample rows identified by idx.
// Each split picks a feature uniformly at random and a split value
// uniformly within the feature's range in the current sample. Degenerate
// features (single-point range) are retried; if every feature is
// degenerate the node becomes a leaf.
func buildTree(data [][]float64, idx []int, depth, maxDepth int, rng *rand.Rand) *node {
	if len(idx) <= 1 || depth >= maxDepth {
		return &node{size: len(idx)}
	}

	feature, split, ok := pickSplit(data, idx, rng)
	if !ok {
		return &node{size: len(idx)}
	}

	var left, right []int
	for _, i := range idx {
		if data[i][feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	// A split value drawn at the range minimum sends every point right;
	// the depth cap still bounds the recursion.
	return &node{
		feature: feature,
		split:   split,
		left:    buildTree(data, left, depth+1, maxDepth, rng),
		right:   buildTree(data, right, depth+1, maxDepth, rng),
	}
}

// pickSplit chooses a random non-degenerate feature and a uniform split
// value within its range. Returns ok=false when all features collapse to
// a single value in this sample.
func pickSplit(data [][]float64, idx []int, rng *rand.Rand) (feature int, split float64, ok bool) {
	dims := len(data[idx[0]])
	for _, f := range rng.Perm(dims) {
		lo, hi := featureRange(data, idx, f)
		if lo == hi {
			continue
		}
		return f, lo + rng.Float64()*(hi-lo), true
	}
	return 0, 0, false
}

func featureRange(data [][]float64, idx []int, feature int) (lo, hi float64) {
	lo = data[idx[0]][feature]
	hi = lo
	for _, i := range idx[1:] {
		v := data[i][feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// pathLength descends from the root and returns the isolation depth of x,
// adding the expected-depth correction for unresolved leaves.
func pathLength(root *node, x []float64) float64 {
	depth := 0.0
	n := root
	for !n.isLeaf() {
		if x[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return depth + avgPathLength(n.size)
}

// avgPathLength is c(m), the closed-form average path length of an
// unsuccessful search in a random binary tree over m points.
func avgPathLength(m int) float64 {
	switch {
	case m <= 1:
		return 0
	case m == 2:
		return 1
	default:
		h := math.Log(float64(m-1)) + eulerGamma
		return 2*h - 2*float64(m-1)/float64(m)
	}
}
