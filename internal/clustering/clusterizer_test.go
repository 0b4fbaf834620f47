package clustering

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canon relabels a partition by order of first appearance so partitions
// compare by co-membership only.
func canon(p []int) []int {
	ids := make(map[int]int)
	out := make([]int, len(p))
	for i, id := range p {
		c, ok := ids[id]
		if !ok {
			c = len(ids)
			ids[id] = c
		}
		out[i] = c
	}
	return out
}

// symmetric builds an n×n matrix where unlisted pairs take def.
func symmetric(n int, def float64, pairs map[[2]int]float64) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			if i != j {
				m[i][j] = def
			}
		}
	}
	for k, d := range pairs {
		m[k[0]][k[1]] = d
		m[k[1]][k[0]] = d
	}
	return m
}

func TestClusterize_Boundaries(t *testing.T) {
	c := NewCompleteLinkage(nil)

	assert.Empty(t, c.Clusterize([][]float64{}, 10))
	assert.Equal(t, []int{0}, c.Clusterize([][]float64{{0}}, 10))
}

func TestClusterize_Threshold(t *testing.T) {
	tests := []struct {
		name        string
		matrix      [][]float64
		maxDistance float64
		want        []int
	}{
		{
			name:        "two tight pairs",
			matrix:      symmetric(4, 10, map[[2]int]float64{{0, 1}: 1, {2, 3}: 2}),
			maxDistance: 5,
			want:        []int{0, 0, 1, 1},
		},
		{
			name:        "equal distances below threshold collapse",
			matrix:      symmetric(5, 1, nil),
			maxDistance: 2,
			want:        []int{0, 0, 0, 0, 0},
		},
		{
			name:        "infinite threshold merges everything",
			matrix:      symmetric(4, 1000, map[[2]int]float64{{0, 3}: 1}),
			maxDistance: math.Inf(1),
			want:        []int{0, 0, 0, 0},
		},
		{
			name:        "zero threshold keeps singletons",
			matrix:      symmetric(3, 1, nil),
			maxDistance: 0,
			want:        []int{0, 1, 2},
		},
		{
			name:        "negative threshold keeps singletons",
			matrix:      symmetric(3, 0, nil),
			maxDistance: -1,
			want:        []int{0, 1, 2},
		},
		{
			name: "complete linkage refuses chaining",
			// Points at 0, 1 and 2 on a line: single linkage would chain
			// them, complete linkage sees d(0,2)=2 once {0,1} forms.
			matrix:      symmetric(3, 0, map[[2]int]float64{{0, 1}: 1, {1, 2}: 1, {0, 2}: 2}),
			maxDistance: 1.5,
			want:        []int{0, 0, 1},
		},
		{
			name:        "interleaved groups",
			matrix:      symmetric(4, 9, map[[2]int]float64{{0, 2}: 1, {1, 3}: 1}),
			maxDistance: 3,
			want:        []int{0, 1, 0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCompleteLinkage(nil).Clusterize(tt.matrix, tt.maxDistance)
			if diff := cmp.Diff(canon(tt.want), canon(got)); diff != "" {
				t.Errorf("partition mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClusterize_EvaluatorOverridesThreshold(t *testing.T) {
	rejectMany := EvaluatorFunc(func(p []int) bool { return Count(p) <= 1 })
	m := symmetric(4, 100, map[[2]int]float64{{0, 1}: 1})

	got := NewCompleteLinkage(rejectMany).Clusterize(m, 0)
	assert.Equal(t, 1, Count(got))
}

func TestClusterize_EvaluatorForcesLeastBadPair(t *testing.T) {
	m := symmetric(4, 100, map[[2]int]float64{{0, 1}: 1, {2, 3}: 50})

	got := NewCompleteLinkage(MaxClusters(2)).Clusterize(m, 5)
	if diff := cmp.Diff([]int{0, 0, 1, 1}, canon(got)); diff != "" {
		t.Errorf("partition mismatch (-want +got):\n%s", diff)
	}
}

func TestClusterize_EvaluatorForcedTiesPairSmallClusters(t *testing.T) {
	// {0,1} merges on distance. Every remaining linkage is 100, so the
	// forced merge joins the two singletons rather than growing {0,1}.
	m := symmetric(4, 100, map[[2]int]float64{{0, 1}: 1})

	got := NewCompleteLinkage(MaxClusters(2)).Clusterize(m, 5)
	if diff := cmp.Diff([][]int{{0, 1}, {2, 3}}, Groups(got)); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestClusterize_InfiniteThresholdMergesInfiniteDistances(t *testing.T) {
	inf := math.Inf(1)
	m := symmetric(3, inf, map[[2]int]float64{{0, 1}: 2})

	got := NewCompleteLinkage(nil).Clusterize(m, inf)
	assert.Equal(t, []int{0, 0, 0}, got)

	got = NewCompleteLinkage(nil).Clusterize(m, 1e300)
	assert.Equal(t, []int{0, 0, 1}, got)
}

func TestClusterize_TieBreakSmallestThenLowestPair(t *testing.T) {
	m := symmetric(4, 100, nil)

	got := NewCompleteLinkage(MaxClusters(3)).Clusterize(m, 5)
	assert.Equal(t, []int{0, 0, 1, 2}, got)

	got = NewCompleteLinkage(MaxClusters(2)).Clusterize(m, 5)
	assert.Equal(t, []int{0, 0, 1, 1}, got)
}

func TestClusterize_EvaluatorSeesPreMergePartition(t *testing.T) {
	var seen [][]int
	ev := EvaluatorFunc(func(p []int) bool {
		seen = append(seen, append([]int(nil), p...))
		return Count(p) <= 2
	})
	m := symmetric(3, 100, map[[2]int]float64{{0, 1}: 1})

	got := NewCompleteLinkage(ev).Clusterize(m, 5)

	// The first merge is decided by distance alone, so the evaluator is
	// only consulted once the threshold stops merging.
	require.Len(t, seen, 1)
	assert.Equal(t, []int{0, 0, 1}, seen[0])
	assert.Equal(t, []int{0, 0, 1}, got)
}

func TestClusterize_EvaluatorNeverAcceptingStopsAtOneCluster(t *testing.T) {
	never := EvaluatorFunc(func([]int) bool { return false })
	got := NewCompleteLinkage(never).Clusterize(symmetric(3, 7, nil), 1)
	assert.Equal(t, []int{0, 0, 0}, got)
}

func TestClusterize_Deterministic(t *testing.T) {
	m := randomMatrix(rand.New(rand.NewPCG(1, 2)), 12)
	c := NewCompleteLinkage(nil)
	first := c.Clusterize(m, 0.4)
	for range 5 {
		if diff := cmp.Diff(canon(first), canon(c.Clusterize(m, 0.4))); diff != "" {
			t.Fatalf("repeated run differs (-first +again):\n%s", diff)
		}
	}
}

func TestClusterize_MonotoneInThreshold(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	c := NewCompleteLinkage(nil)
	for range 10 {
		m := randomMatrix(rng, 15)
		prev := math.MaxInt
		for _, th := range []float64{0, 0.1, 0.2, 0.4, 0.6, 0.8, 1.0, 2.0} {
			n := Count(c.Clusterize(m, th))
			assert.LessOrEqual(t, n, prev, "threshold %v increased cluster count", th)
			prev = n
		}
	}
}

func TestClusterize_DoesNotModifyInput(t *testing.T) {
	m := symmetric(3, 2, map[[2]int]float64{{0, 1}: 1})
	orig := symmetric(3, 2, map[[2]int]float64{{0, 1}: 1})
	NewCompleteLinkage(nil).Clusterize(m, 10)
	assert.Equal(t, orig, m)
}

func TestClusterize_PanicsOnMalformedMatrix(t *testing.T) {
	tests := map[string][][]float64{
		"not square": {{0, 1}, {1}},
		"asymmetric": {{0, 1}, {2, 0}},
		"negative":   {{0, -1}, {-1, 0}},
		"nan":        {{0, math.NaN()}, {math.NaN(), 0}},
	}
	for name, m := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Panics(t, func() { NewCompleteLinkage(nil).Clusterize(m, 1) })
		})
	}
}

func TestGroups(t *testing.T) {
	assert.Equal(t, [][]int{{0, 2}, {1}}, Groups([]int{0, 1, 0}))
	assert.Nil(t, Groups(nil))
}

func randomMatrix(rng *rand.Rand, n int) [][]float64 {
	pts := make([][2]float64, n)
	for i := range pts {
		pts[i] = [2]float64{rng.Float64(), rng.Float64()}
	}
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = math.Hypot(pts[i][0]-pts[j][0], pts[i][1]-pts[j][1])
		}
	}
	return m
}
