package content

import (
	"context"
	"math"
	"slices"

	"github.com/dgallion1/papertree/internal/clustering"
)

// HeaderClusterer assigns section levels by clustering headers on their
// typography. Clusters set in larger type become shallower levels.
type HeaderClusterer struct {
	Clusterizer clustering.Clusterizer
	// MaxDistance is the linkage distance under which headers share a level.
	MaxDistance float64
	// DepthWeight and BoldWeight scale the numbering-depth and boldness
	// differences against the font size difference in points.
	DepthWeight float64
	BoldWeight  float64
}

// NewHeaderClusterer returns a clusterer with complete linkage, capped at
// maxLevels levels when maxLevels > 0.
func NewHeaderClusterer(maxDistance float64, maxLevels int) *HeaderClusterer {
	var ev clustering.Evaluator
	if maxLevels > 0 {
		ev = clustering.MaxClusters(maxLevels)
	}
	return &HeaderClusterer{
		Clusterizer: clustering.NewCompleteLinkage(ev),
		MaxDistance: maxDistance,
		DepthWeight: 2,
		BoldWeight:  1,
	}
}

func (h *HeaderClusterer) Cluster(ctx context.Context, raw *Raw) (*Raw, error) {
	headers := raw.Headers()
	if len(headers) == 0 {
		return raw, nil
	}

	matrix := make([][]float64, len(headers))
	for i := range headers {
		matrix[i] = make([]float64, len(headers))
	}
	for i := range headers {
		for j := i + 1; j < len(headers); j++ {
			d := h.distance(headers[i], headers[j])
			matrix[i][j] = d
			matrix[j][i] = d
		}
	}

	partition := h.Clusterizer.Clusterize(matrix, h.MaxDistance)
	groups := clustering.Groups(partition)

	type rank struct {
		id    int
		size  float64
		depth float64
		bold  bool
	}
	ranks := make([]rank, len(groups))
	for id, members := range groups {
		r := rank{id: id}
		bold := 0
		for _, m := range members {
			r.size += headers[m].FontSize
			r.depth += float64(headers[m].Depth)
			if headers[m].Bold {
				bold++
			}
		}
		r.size /= float64(len(members))
		r.depth /= float64(len(members))
		r.bold = bold*2 > len(members)
		ranks[id] = r
	}
	slices.SortStableFunc(ranks, func(a, b rank) int {
		switch {
		case math.Abs(a.size-b.size) > 0.1:
			if a.size > b.size {
				return -1
			}
			return 1
		case a.depth != b.depth:
			if a.depth < b.depth {
				return -1
			}
			return 1
		case a.bold != b.bold:
			if a.bold {
				return -1
			}
			return 1
		}
		return a.id - b.id
	})

	level := make([]int, len(groups))
	for i, r := range ranks {
		level[r.id] = i + 1
	}
	for i, hdr := range headers {
		hdr.Level = level[partition[i]]
	}
	return raw, nil
}

func (h *HeaderClusterer) distance(a, b *Header) float64 {
	d := math.Abs(a.FontSize - b.FontSize)
	d += h.DepthWeight * math.Abs(float64(a.Depth-b.Depth))
	if a.Bold != b.Bold {
		d += h.BoldWeight
	}
	return d
}
