package cluster

import (
	"fmt"
	"sort"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
)

// labObservation is a color positioned in CIELAB for k-means.
type labObservation struct {
	color  colorspace.ARGB
	coords clusters.Coordinates
}

func (o labObservation) Coordinates() clusters.Coordinates { return o.coords }

func (o labObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// ReduceSeeds groups colors into at most k seed clusters.
//
// Single-link clustering is quadratic in its seed count, so a foreground
// with thousands of distinct colors is first partitioned with k-means in
// CIELAB. With k or fewer colors every color is its own seed. Groups are
// returned in a stable order (by their darkest member) and never empty.
func ReduceSeeds(colors []colorspace.ARGB, k int) ([][]colorspace.ARGB, error) {
	if k <= 0 {
		return nil, fmt.Errorf("seed count must be positive, got %d", k)
	}
	if len(colors) <= k {
		seeds := make([][]colorspace.ARGB, len(colors))
		for i, c := range colors {
			seeds[i] = []colorspace.ARGB{c}
		}
		return seeds, nil
	}

	dataset := make(clusters.Observations, len(colors))
	for i, c := range colors {
		lab := colorspace.LabOf(c)
		dataset[i] = labObservation{color: c, coords: clusters.Coordinates{lab.L, lab.A, lab.B}}
	}

	km := kmeans.New()
	parts, err := km.Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("failed to partition colors: %w", err)
	}

	seeds := make([][]colorspace.ARGB, 0, len(parts))
	for _, part := range parts {
		if len(part.Observations) == 0 {
			continue
		}
		group := make([]colorspace.ARGB, 0, len(part.Observations))
		for _, obs := range part.Observations {
			group = append(group, obs.(labObservation).color)
		}
		sort.Slice(group, func(i, j int) bool { return group[i] < group[j] })
		seeds = append(seeds, group)
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i][0] < seeds[j][0] })
	return seeds, nil
}
