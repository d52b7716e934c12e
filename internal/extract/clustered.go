package extract

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/ironsheep/texgen-mcp/internal/cluster"
	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/palette"
)

// clustered is the fallback extraction. New colors are clustered together
// with the background palette; those that do not end up in the
// background's cluster are the front colors. Classification then uses
// cluster membership instead of the queued search.
func (s *state) clustered(logger hclog.Logger) (*Result, error) {
	s.overlay = imaging.New(s.dim, s.dim)
	s.paletted = imaging.New(s.dim, s.dim)

	fronts, err := s.clusterFronts()
	if err != nil {
		return nil, err
	}

	if fronts.Len() == 0 {
		logger.Warn("images differ only by palette shifts; extracting remaps only")
		imaging.ParallelRows(s.dim, func(y int) {
			for x := 0; x < s.dim; x++ {
				if w := s.woAt(x, y); w.A() != 0 {
					s.remap(x, y, w)
				}
			}
		})
		return &Result{Overlay: s.overlay, Paletted: s.paletted, Clustered: true}, nil
	}

	frontColors := fronts.Colors()
	imaging.ParallelRows(s.dim, func(y int) {
		for x := 0; x < s.dim; x++ {
			w := s.woAt(x, y)
			switch {
			case w.A() == 0:
			case fronts.Contains(w):
				imaging.Set(s.overlay, x, y, w.Opaque())
			case s.bp.Contains(w):
				s.remap(x, y, w)
			default:
				s.apply(x, y, s.search(w, frontColors), frontColors)
			}
		}
	})
	s.trimAndForce()
	return &Result{Overlay: s.overlay, Paletted: s.paletted, Clustered: true}, nil
}

// clusterFronts returns the colors of the overlay image that cluster apart
// from the background palette.
func (s *state) clusterFronts() (*palette.Palette, error) {
	wp, err := palette.FromImage(s.wo, palette.DefaultCutoff)
	if err != nil {
		return nil, err
	}
	fresh := palette.New()
	for _, c := range wp.Colors() {
		if !s.bp.Contains(c) {
			fresh.Add(c)
		}
	}
	fronts := palette.New()
	if fresh.Len() == 0 {
		return fronts, nil
	}

	c := cluster.New(cluster.MinimumSpacing(s.bp.Colors()))
	c.AddPalette(s.bp)
	seeds, err := cluster.ReduceSeeds(fresh.Colors(), maxSeeds)
	if err != nil {
		return nil, fmt.Errorf("failed to seed clusters: %w", err)
	}
	for _, seed := range seeds {
		c.AddCluster(seed...)
	}
	c.Run()

	background := c.Category(s.bp.ColorAt(0))
	for _, col := range fresh.Colors() {
		if c.Category(col) != background {
			fronts.Add(col)
		}
	}
	return fronts, nil
}
