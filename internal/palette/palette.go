package palette

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
)

// DefaultCutoff is the default fuzzy-equality radius, in RGB units.
const DefaultCutoff = 3.5

var (
	// ErrEmpty is returned by operations that need at least one entry.
	ErrEmpty = errors.New("palette is empty")

	// ErrSampleRange is returned for sample numbers outside 0-255.
	ErrSampleRange = errors.New("sample number must be between 0 and 255")
)

// Predicate reports whether a palette has been extended far enough.
type Predicate func(*Palette) bool

// ToSize is satisfied once the palette holds at least n entries.
func ToSize(n int) Predicate {
	return func(p *Palette) bool { return p.Len() >= n }
}

// ToWidth is satisfied once the darkest and lightest entries are at least
// width apart in RGB.
func ToWidth(width float64) Predicate {
	return func(p *Palette) bool {
		if len(p.colors) == 0 {
			return false
		}
		return colorspace.RGBDistance(p.colors[0], p.colors[len(p.colors)-1]) >= width
	}
}

// entry is one fuzzy-set member: a representative color and every color
// merged into it.
type entry struct {
	key     colorspace.ARGB
	members []colorspace.ARGB
}

// Palette is a sorted, fuzzily de-duplicated set of opaque colors.
//
// Colors closer than the cutoff (Euclidean RGB) are merged and represented by
// their channel-wise average. Entries are kept sorted by channel sum, darkest
// first. A palette may be extended with synthetic entries toward black and
// white; ExtendedLow and ExtendedHigh count those so sample numbers can be
// converted between the original and extended ranges.
//
// A Palette is not safe for concurrent mutation. Once built it may be read
// from any number of goroutines.
type Palette struct {
	cutoff       float64
	entries      []entry
	colors       []colorspace.ARGB
	extendedLow  int
	extendedHigh int
}

// New creates an empty palette with DefaultCutoff.
func New() *Palette {
	return &Palette{cutoff: DefaultCutoff}
}

// NewWithCutoff creates an empty palette with the given fuzzy-equality
// radius. The cutoff must not be negative.
func NewWithCutoff(cutoff float64) (*Palette, error) {
	if cutoff < 0 || math.IsNaN(cutoff) {
		return nil, fmt.Errorf("invalid palette cutoff %v", cutoff)
	}
	return &Palette{cutoff: cutoff}, nil
}

// FromColors builds a palette from a list of colors.
func FromColors(colors []colorspace.ARGB, cutoff float64) (*Palette, error) {
	p, err := NewWithCutoff(cutoff)
	if err != nil {
		return nil, err
	}
	p.AddAll(colors)
	return p, nil
}

// FromImage collects every non-transparent pixel of img into a palette.
//
// Fully transparent pixels carry no tone and are skipped. The result may be
// empty if the whole image is transparent.
func FromImage(img image.Image, cutoff float64) (*Palette, error) {
	p, err := NewWithCutoff(cutoff)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := colorspace.FromColor(img.At(x, y))
			if c.A() == 0 {
				continue
			}
			p.Add(c)
		}
	}
	return p, nil
}

// Clone returns an independent copy.
func (p *Palette) Clone() *Palette {
	out := &Palette{
		cutoff:       p.cutoff,
		entries:      make([]entry, len(p.entries)),
		colors:       append([]colorspace.ARGB(nil), p.colors...),
		extendedLow:  p.extendedLow,
		extendedHigh: p.extendedHigh,
	}
	for i, e := range p.entries {
		out.entries[i] = entry{key: e.key, members: append([]colorspace.ARGB(nil), e.members...)}
	}
	return out
}

// Cutoff returns the fuzzy-equality radius.
func (p *Palette) Cutoff() float64 { return p.cutoff }

// Len returns the number of entries, including synthetic ones.
func (p *Palette) Len() int { return len(p.colors) }

// Colors returns a copy of the entries, darkest first.
func (p *Palette) Colors() []colorspace.ARGB {
	return append([]colorspace.ARGB(nil), p.colors...)
}

// ColorAt returns the entry at a sorted index.
func (p *Palette) ColorAt(i int) colorspace.ARGB { return p.colors[i] }

// ExtendedLow is the number of entries synthesized at the dark end.
func (p *Palette) ExtendedLow() int { return p.extendedLow }

// ExtendedHigh is the number of entries synthesized at the light end.
func (p *Palette) ExtendedHigh() int { return p.extendedHigh }

// OriginalSize is the number of entries that were not synthesized.
func (p *Palette) OriginalSize() int {
	return len(p.colors) - p.extendedLow - p.extendedHigh
}

// Add inserts a color, forcing it opaque. A color within the cutoff of an
// existing entry (and of everything already merged into it) is merged and
// the entry's representative becomes the members' average.
//
// Add reports whether a new entry was created; merging never changes Len.
func (p *Palette) Add(c colorspace.ARGB) bool {
	c = c.Opaque()
	if i := p.find(c); i >= 0 {
		e := &p.entries[i]
		for _, m := range e.members {
			if m == c {
				return false
			}
		}
		e.members = append(e.members, c)
		e.key = average(e.members)
		p.sort()
		return false
	}
	p.entries = append(p.entries, entry{key: c, members: []colorspace.ARGB{c}})
	p.sort()
	return true
}

// AddAll adds every color and reports whether any new entry was created.
func (p *Palette) AddAll(colors []colorspace.ARGB) bool {
	grew := false
	for _, c := range colors {
		if p.Add(c) {
			grew = true
		}
	}
	return grew
}

// Contains reports whether c is fuzzily equal to an entry.
func (p *Palette) Contains(c colorspace.ARGB) bool {
	return p.find(c.Opaque()) >= 0
}

func (p *Palette) find(c colorspace.ARGB) int {
outer:
	for i, e := range p.entries {
		if !p.within(e.key, c) {
			continue
		}
		if len(e.members) > 1 {
			for _, m := range e.members {
				if !p.within(m, c) {
					continue outer
				}
			}
		}
		return i
	}
	return -1
}

func (p *Palette) within(a, b colorspace.ARGB) bool {
	if a.RGB() == b.RGB() {
		return true
	}
	return colorspace.RGBDistance(a, b) < p.cutoff
}

func (p *Palette) sort() {
	colors := make([]colorspace.ARGB, len(p.entries))
	for i, e := range p.entries {
		colors[i] = e.key
	}
	sort.Slice(colors, func(i, j int) bool {
		li, lj := colorspace.Luma(colors[i]), colorspace.Luma(colors[j])
		if li != lj {
			return li < lj
		}
		return colors[i] < colors[j]
	})
	p.colors = colors
}

func average(colors []colorspace.ARGB) colorspace.ARGB {
	var r, g, b int
	for _, c := range colors {
		r += int(c.R())
		g += int(c.G())
		b += int(c.B())
	}
	n := len(colors)
	return colorspace.Pack(0xFF, uint8(r/n), uint8(g/n), uint8(b/n))
}

// Average returns the average of all entries.
func (p *Palette) Average() (colorspace.ARGB, error) {
	if len(p.colors) == 0 {
		return 0, ErrEmpty
	}
	return average(p.colors), nil
}

// ClosestIndex returns the sorted index of the entry nearest to c in RGB.
func (p *Palette) ClosestIndex(c colorspace.ARGB) (int, error) {
	if len(p.colors) == 0 {
		return 0, ErrEmpty
	}
	best, bestDist := 0, math.Inf(1)
	for i, e := range p.colors {
		if d := colorspace.RGBDistance(c, e); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

// Closest returns the entry nearest to c in RGB.
func (p *Palette) Closest(c colorspace.ARGB) (colorspace.ARGB, error) {
	i, err := p.ClosestIndex(c)
	if err != nil {
		return 0, err
	}
	return p.colors[i], nil
}
