package cluster

import (
	"math"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
	"github.com/ironsheep/texgen-mcp/internal/palette"
)

// Unknown is the category of a color that was never added.
const Unknown = -1

// Clusterer groups colors by greedy single-link merging in CIELAB.
//
// Seed clusters are added first; Run then repeatedly merges the two closest
// clusters (closest pair of members) while their distance is below the
// cutoff. A negative cutoff merges everything into one cluster. After Run,
// Category reports which cluster a seeded color ended in.
type Clusterer struct {
	cutoff   float64
	clusters [][]colorspace.ARGB
	category map[colorspace.ARGB]int
	labs     *colorspace.LabCache
}

// New creates a clusterer with the given merge cutoff.
func New(cutoff float64) *Clusterer {
	return &Clusterer{
		cutoff:   cutoff,
		category: make(map[colorspace.ARGB]int),
		labs:     &colorspace.LabCache{},
	}
}

// AddCluster adds a seed cluster and returns its provisional category.
func (c *Clusterer) AddCluster(colors ...colorspace.ARGB) int {
	id := len(c.clusters)
	members := make([]colorspace.ARGB, 0, len(colors))
	for _, col := range colors {
		col = col.Opaque()
		members = append(members, col)
		c.category[col] = id
	}
	c.clusters = append(c.clusters, members)
	return id
}

// AddPalette adds every entry of p as one seed cluster.
func (c *Clusterer) AddPalette(p *palette.Palette) int {
	return c.AddCluster(p.Colors()...)
}

// Len returns the current number of clusters.
func (c *Clusterer) Len() int { return len(c.clusters) }

// Clusters returns a copy of the current clusters.
func (c *Clusterer) Clusters() [][]colorspace.ARGB {
	out := make([][]colorspace.ARGB, len(c.clusters))
	for i, cl := range c.clusters {
		out[i] = append([]colorspace.ARGB(nil), cl...)
	}
	return out
}

// Run merges clusters until no pair is closer than the cutoff, then
// renumbers categories densely in cluster order.
func (c *Clusterer) Run() {
	n := len(c.clusters)
	if n < 2 {
		c.renumber()
		return
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := c.linkDistance(c.clusters[i], c.clusters[j])
			dist[i][j], dist[j][i] = d, d
		}
	}

	alive := make([]bool, n)
	for i := range alive {
		alive[i] = true
	}
	remaining := n
	for remaining > 1 {
		bi, bj, best := -1, -1, math.Inf(1)
		for i := 0; i < n; i++ {
			if !alive[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if alive[j] && dist[i][j] < best {
					bi, bj, best = i, j, dist[i][j]
				}
			}
		}
		if bi < 0 || (c.cutoff >= 0 && best >= c.cutoff) {
			break
		}
		c.clusters[bi] = append(c.clusters[bi], c.clusters[bj]...)
		c.clusters[bj] = nil
		alive[bj] = false
		remaining--
		for k := 0; k < n; k++ {
			if alive[k] && k != bi {
				d := math.Min(dist[bi][k], dist[bj][k])
				dist[bi][k], dist[k][bi] = d, d
			}
		}
	}

	merged := c.clusters[:0]
	for i, cl := range c.clusters {
		if alive[i] {
			merged = append(merged, cl)
		}
	}
	c.clusters = merged
	c.renumber()
}

func (c *Clusterer) renumber() {
	for id, cl := range c.clusters {
		for _, col := range cl {
			c.category[col] = id
		}
	}
}

func (c *Clusterer) linkDistance(a, b []colorspace.ARGB) float64 {
	best := math.Inf(1)
	for _, x := range a {
		lx := c.labs.Lab(x)
		for _, y := range b {
			if d := lx.Distance(c.labs.Lab(y)); d < best {
				best = d
			}
		}
	}
	return best
}

// Category returns the cluster id of col, or Unknown.
func (c *Clusterer) Category(col colorspace.ARGB) int {
	if id, ok := c.category[col.Opaque()]; ok {
		return id
	}
	return Unknown
}

// Equivalent reports whether two known colors share a cluster.
func (c *Clusterer) Equivalent(a, b colorspace.ARGB) bool {
	ca, cb := c.Category(a), c.Category(b)
	return ca != Unknown && ca == cb
}
