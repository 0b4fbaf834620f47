// Package clustering implements agglomerative clustering over a pairwise
// distance matrix. It knows nothing about documents: callers build the
// matrix from whatever features they cluster on.
package clustering

import (
	"fmt"
	"math"
)

// Clusterizer partitions matrix indices into clusters.
type Clusterizer interface {
	Clusterize(matrix [][]float64, maxDistance float64) []int
}

// CompleteLinkage merges the pair of clusters whose largest item-to-item
// distance is smallest, one pair per round.
//
// Merging continues while the smallest linkage distance is below
// maxDistance, or while Evaluator (when set) rejects the current partition.
// An Evaluator can therefore force merges past the threshold.
type CompleteLinkage struct {
	Evaluator Evaluator
}

// NewCompleteLinkage returns a clusterizer using the given evaluator, which
// may be nil.
func NewCompleteLinkage(ev Evaluator) *CompleteLinkage {
	return &CompleteLinkage{Evaluator: ev}
}

// Clusterize returns a slice mapping each index of matrix to a cluster id.
// Ids are dense from 0 and numbered by each cluster's smallest member.
//
// Ties between equally distant pairs go to the pair with the fewest members
// combined, then to the pair whose clusters have the smallest members,
// compared first on the left cluster then on the right.
//
// matrix must be square, symmetric, non-negative and free of NaN; anything
// else panics. +Inf distances are allowed. A maxDistance of +Inf merges
// everything into one cluster, +Inf distances included.
func (c *CompleteLinkage) Clusterize(matrix [][]float64, maxDistance float64) []int {
	mustValidate(matrix)
	n := len(matrix)

	// clusters[k] lists member indices; order of clusters follows their
	// smallest member, which merging preserves by folding the later
	// cluster into the earlier one.
	clusters := make([][]int, n)
	// linkage[a][b] is the complete-linkage distance between clusters a and b.
	linkage := make([][]float64, n)
	for i := range n {
		clusters[i] = []int{i}
		linkage[i] = make([]float64, n)
		copy(linkage[i], matrix[i])
	}

	for len(clusters) > 1 {
		a, b, minDist := closestPair(linkage, clusters)

		mustMerge := minDist < maxDistance || math.IsInf(maxDistance, 1)
		if !mustMerge && c.Evaluator != nil {
			mustMerge = !c.Evaluator.IsAcceptable(partition(n, clusters))
		}
		if !mustMerge {
			break
		}

		clusters[a] = append(clusters[a], clusters[b]...)
		clusters = append(clusters[:b], clusters[b+1:]...)
		linkage = mergeLinkage(linkage, a, b)
	}

	return partition(n, clusters)
}

// closestPair scans pairs a < b in order and keeps the first minimum by
// distance, then by combined size.
func closestPair(linkage [][]float64, clusters [][]int) (int, int, float64) {
	bestA, bestB, bestSize := -1, -1, 0
	best := math.Inf(1)
	for a := range linkage {
		for b := a + 1; b < len(linkage); b++ {
			d := linkage[a][b]
			size := len(clusters[a]) + len(clusters[b])
			if bestA < 0 || d < best || (d == best && size < bestSize) {
				bestA, bestB, best, bestSize = a, b, d, size
			}
		}
	}
	return bestA, bestB, best
}

// mergeLinkage folds row/column b into a using the complete-linkage update
// d(a∪b, k) = max(d(a,k), d(b,k)) and removes b.
func mergeLinkage(linkage [][]float64, a, b int) [][]float64 {
	for k := range linkage {
		if k == a || k == b {
			continue
		}
		d := math.Max(linkage[a][k], linkage[b][k])
		linkage[a][k] = d
		linkage[k][a] = d
	}
	linkage = append(linkage[:b], linkage[b+1:]...)
	for k := range linkage {
		linkage[k] = append(linkage[k][:b], linkage[k][b+1:]...)
	}
	return linkage
}

func partition(n int, clusters [][]int) []int {
	out := make([]int, n)
	for id, members := range clusters {
		for _, m := range members {
			out[m] = id
		}
	}
	return out
}

func mustValidate(matrix [][]float64) {
	n := len(matrix)
	for i, row := range matrix {
		if len(row) != n {
			panic(fmt.Sprintf("clustering: row %d has %d columns, want %d", i, len(row), n))
		}
		for j, d := range row {
			switch {
			case math.IsNaN(d):
				panic(fmt.Sprintf("clustering: distance (%d,%d) is NaN", i, j))
			case d < 0:
				panic(fmt.Sprintf("clustering: distance (%d,%d) is negative", i, j))
			case j < i && d != matrix[j][i]:
				panic(fmt.Sprintf("clustering: matrix not symmetric at (%d,%d)", i, j))
			}
		}
	}
}

// Groups converts a partition into member lists ordered by cluster id.
func Groups(partition []int) [][]int {
	var groups [][]int
	for item, id := range partition {
		for len(groups) <= id {
			groups = append(groups, nil)
		}
		groups[id] = append(groups[id], item)
	}
	return groups
}

// Count returns the number of distinct clusters in a partition.
func Count(partition []int) int {
	seen := make(map[int]struct{}, len(partition))
	for _, id := range partition {
		seen[id] = struct{}{}
	}
	return len(seen)
}
