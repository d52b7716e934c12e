package palette

import (
	"math"
	"sort"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
)

// indexToSample maps a (possibly fractional) entry position to a sample
// number. Rounding up keeps Color(indexToSample(i)) == entry i for every
// palette of at most 256 entries.
func indexToSample(pos float64, n int) int {
	s := int(math.Ceil(pos*256/float64(n) - 1e-9))
	if s < 0 {
		return 0
	}
	if s > 255 {
		return 255
	}
	return s
}

// Sample returns where c sits in the palette as a number in 0-255.
//
// If the nearest entry is within the cutoff (or the palette has a single
// entry) the sample is that entry's position. Otherwise the position is
// interpolated between the two nearest entries, weighted by their relative
// distances, so colors that are not in the palette still get a continuous
// tonal position.
func (p *Palette) Sample(c colorspace.ARGB) (int, error) {
	n := len(p.colors)
	if n == 0 {
		return 0, ErrEmpty
	}
	c = c.Opaque()
	type ranked struct {
		index int
		dist  float64
	}
	ranks := make([]ranked, n)
	for i, e := range p.colors {
		ranks[i] = ranked{i, colorspace.RGBDistance(c, e)}
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].dist < ranks[j].dist })

	first := ranks[0]
	if n == 1 || first.dist <= p.cutoff {
		return indexToSample(float64(first.index), n), nil
	}
	next := ranks[1]
	lerp := first.dist / (first.dist + next.dist)
	lerp = math.Max(0, math.Min(1, lerp))
	pos := float64(first.index)*(1-lerp) + float64(next.index)*lerp
	return indexToSample(pos, n), nil
}

// SampleAt returns the sample number of the entry at index i.
func (p *Palette) SampleAt(i int) int {
	return indexToSample(float64(i), len(p.colors))
}

// MustSample is Sample for palettes known to be non-empty.
func (p *Palette) MustSample(c colorspace.ARGB) int {
	s, err := p.Sample(c)
	if err != nil {
		panic(err)
	}
	return s
}

// Color maps a sample number back to the entry at that proportional
// position.
func (p *Palette) Color(sample int) (colorspace.ARGB, error) {
	if sample < 0 || sample > 255 {
		return 0, ErrSampleRange
	}
	if len(p.colors) == 0 {
		return 0, ErrEmpty
	}
	return p.colors[sample*len(p.colors)/256], nil
}

// OriginalStartSample is the sample number of the darkest original entry.
func (p *Palette) OriginalStartSample() (int, error) {
	if len(p.colors) == 0 {
		return 0, ErrEmpty
	}
	return indexToSample(float64(p.extendedLow), len(p.colors)), nil
}

// OriginalEndSample is the sample number of the lightest original entry.
func (p *Palette) OriginalEndSample() (int, error) {
	if len(p.colors) == 0 {
		return 0, ErrEmpty
	}
	return indexToSample(float64(len(p.colors)-p.extendedHigh-1), len(p.colors)), nil
}

// OriginalCenterSample is the sample number halfway between the original
// start and end entries.
func (p *Palette) OriginalCenterSample() (int, error) {
	if len(p.colors) == 0 {
		return 0, ErrEmpty
	}
	start := float64(p.extendedLow)
	end := float64(len(p.colors) - p.extendedHigh - 1)
	return indexToSample((start+end)/2, len(p.colors)), nil
}

// OriginalToExtended converts a sample taken against the palette before
// extension into the extended palette's sample space.
func (p *Palette) OriginalToExtended(sample int) (int, error) {
	start, err := p.OriginalStartSample()
	if err != nil {
		return 0, err
	}
	return int(colorspace.Clamp8(sample*p.OriginalSize()/len(p.colors) + start)), nil
}

// ExtendedToOriginal converts a sample taken against the extended palette
// back into the sample space of the original entries.
func (p *Palette) ExtendedToOriginal(sample int) (int, error) {
	if p.OriginalSize() <= 0 {
		return 0, ErrEmpty
	}
	start, err := p.OriginalStartSample()
	if err != nil {
		return 0, err
	}
	span := p.OriginalSize() * 256 / len(p.colors)
	if span == 0 {
		return 0, ErrEmpty
	}
	return int(colorspace.Clamp8((sample - start) * 256 / span)), nil
}
