package extract

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/hashicorp/go-hclog"

	"github.com/ironsheep/texgen-mcp/internal/cluster"
	"github.com/ironsheep/texgen-mcp/internal/colorspace"
	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/palette"
)

const (
	// DefaultClusteringCutoff bounds frontColors x paletteSize x queueLength
	// before the direct search gives way to clustering.
	DefaultClusteringCutoff = 1_000_000

	// DefaultCloseCutoff scales the average background spacing into the
	// distance under which a pixel is treated as a blend.
	DefaultCloseCutoff = 2.0

	// DefaultExtendSize is the size the background palette is extended to.
	DefaultExtendSize = 6

	// maxSearchDistance caps the blend search; a blend further than this
	// from the pixel is never chosen.
	maxSearchDistance = 200.0

	// maxSeeds bounds the clusters new colors start in.
	maxSeeds = 64

	full = 0xFF
)

// blendAlphas are the overlay opacities tried when explaining a pixel as a
// foreground color laid over a background entry.
var blendAlphas = []uint8{26, 38, 51, 64}

// Options configures an extraction.
type Options struct {
	// Extend grows the background palette before classification. Nil
	// leaves it as extracted.
	Extend palette.Predicate
	// TrimTrailing clears palette remaps with no overlay pixel around them.
	TrimTrailing bool
	// ForceNeighbors adds a palette remap under pixels next to a solid
	// overlay pixel.
	ForceNeighbors bool
	// FillHoles promotes colors that keep appearing inside the overlay to
	// full overlay pixels. Only runs with TrimTrailing or ForceNeighbors.
	FillHoles bool
	// CloseCutoff scales the background palette's average CIELAB spacing
	// into the blend threshold.
	CloseCutoff float64
	// ClusteringCutoff is the largest direct search allowed.
	ClusteringCutoff int
}

// DefaultOptions returns the settings of a foreground_transfer node with no
// fields given.
func DefaultOptions() Options {
	return Options{
		Extend:           palette.ToSize(DefaultExtendSize),
		TrimTrailing:     true,
		ForceNeighbors:   true,
		FillHoles:        true,
		CloseCutoff:      DefaultCloseCutoff,
		ClusteringCutoff: DefaultClusteringCutoff,
	}
}

// Result is the pair of layers an extraction produces. Both are square.
//
// Overlay holds the foreground: transparent where the background only needs
// a palette remap, partially transparent for blends, opaque for pixels
// replaced outright.
//
// Paletted holds sample numbers as opaque grays; a transparent pixel means
// the background is kept as it is.
type Result struct {
	Overlay   *image.NRGBA
	Paletted  *image.NRGBA
	Clustered bool
}

// Extractor splits a textured image into overlay and palette layers.
type Extractor struct {
	opts   Options
	logger hclog.Logger
}

// New creates an extractor. A nil logger discards output.
func New(opts Options, logger hclog.Logger) *Extractor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Extractor{opts: opts, logger: logger.Named("extract")}
}

// pending is a pixel whose color is close to the background palette and
// is resolved once the front colors are known.
type pending struct {
	x, y  int
	color colorspace.ARGB
}

type state struct {
	opts     Options
	bg, wo   *image.NRGBA
	bs, ws   int
	dim      int
	bp       *palette.Palette
	labs     *colorspace.LabCache
	overlay  *image.NRGBA
	paletted *image.NRGBA
}

// Extract decomposes withOverlay, relative to background, into an overlay
// layer and a palette layer at the least common multiple of the two
// images' square sizes.
func (e *Extractor) Extract(background, withOverlay image.Image) (*Result, error) {
	s, err := e.prepare(background, withOverlay)
	if err != nil {
		return nil, err
	}

	queue, front := s.classify()

	var reason string
	switch {
	case front.Len() == 0:
		reason = "no colors differ enough from the background palette"
	case front.Len()*s.bp.Len()*len(queue) > e.opts.ClusteringCutoff:
		reason = fmt.Sprintf("direct search over %d front colors, %d palette entries and %d queued pixels is too large",
			front.Len(), s.bp.Len(), len(queue))
	}
	if reason != "" {
		e.logger.Warn("falling back to clustering extraction", "reason", reason)
		return s.clustered(e.logger)
	}

	fronts := front.Colors()
	parallel.Line(len(queue), func(start, end int) {
		for _, p := range queue[start:end] {
			s.resolve(p, fronts)
		}
	})

	s.trimAndForce()
	if (e.opts.TrimTrailing || e.opts.ForceNeighbors) && e.opts.FillHoles {
		s.fillHoles()
	}
	return &Result{Overlay: s.overlay, Paletted: s.paletted}, nil
}

func (e *Extractor) prepare(background, withOverlay image.Image) (*state, error) {
	if background == nil || withOverlay == nil {
		return nil, fmt.Errorf("extraction needs both images: %w", imaging.ErrGeometry)
	}
	bg := imaging.ToNRGBA(background)
	wo := imaging.ToNRGBA(withOverlay)
	bDim := min(bg.Rect.Dx(), bg.Rect.Dy())
	wDim := min(wo.Rect.Dx(), wo.Rect.Dy())
	if bDim <= 0 || wDim <= 0 {
		return nil, fmt.Errorf("background %v and overlay %v must be non-empty: %w", bg.Rect.Size(), wo.Rect.Size(), imaging.ErrGeometry)
	}
	dim := imaging.LCM(bDim, wDim)

	bp, err := palette.FromImage(bg, palette.DefaultCutoff)
	if err != nil {
		return nil, err
	}
	if bp.Len() == 0 {
		return nil, fmt.Errorf("background has no opaque pixels: %w", palette.ErrEmpty)
	}
	if e.opts.Extend != nil {
		if err := bp.Extend(e.opts.Extend); err != nil {
			return nil, fmt.Errorf("failed to extend background palette: %w", err)
		}
	}

	return &state{
		opts:     e.opts,
		bg:       bg,
		wo:       wo,
		bs:       dim / bDim,
		ws:       dim / wDim,
		dim:      dim,
		bp:       bp,
		labs:     &colorspace.LabCache{},
		overlay:  imaging.New(dim, dim),
		paletted: imaging.New(dim, dim),
	}, nil
}

func (s *state) bgAt(x, y int) colorspace.ARGB { return imaging.Get(s.bg, x/s.bs, y/s.bs) }

func (s *state) woAt(x, y int) colorspace.ARGB { return imaging.Get(s.wo, x/s.ws, y/s.ws) }

// sampleColor encodes the sample number of background entry i as a pixel.
func (s *state) sampleColor(i int) colorspace.ARGB {
	return colorspace.Gray(uint8(s.bp.SampleAt(i)))
}

// closest is the background entry nearest to c in RGB. The palette is
// never empty here.
func (s *state) closest(c colorspace.ARGB) int {
	i, _ := s.bp.ClosestIndex(c)
	return i
}

// nearestLab returns the index of, and CIELAB distance to, the entry of
// colors nearest to c.
func (s *state) nearestLab(c colorspace.ARGB, colors []colorspace.ARGB) (int, float64) {
	best, dist := 0, math.Inf(1)
	for i, e := range colors {
		if d := s.labs.Distance(c, e); d < dist {
			best, dist = i, d
		}
	}
	return best, dist
}

// remap records a palette remap when a background-palette pixel moved to a
// different entry.
func (s *state) remap(x, y int, w colorspace.ARGB) {
	wi, bi := s.closest(w), s.closest(s.bgAt(x, y))
	if wi != bi {
		imaging.Set(s.paletted, x, y, s.sampleColor(wi))
	}
}

// classify is the direct pass. Pixels in the background palette become
// remaps, pixels near it are queued, everything else goes to the overlay
// and its color becomes a front color.
func (s *state) classify() ([]pending, *palette.Palette) {
	threshold := s.opts.CloseCutoff * cluster.AverageSpacing(s.bp.Colors())
	entries := s.bp.Colors()
	queueRows := make([][]pending, s.dim)
	frontRows := make([][]colorspace.ARGB, s.dim)

	imaging.ParallelRows(s.dim, func(y int) {
		for x := 0; x < s.dim; x++ {
			w := s.woAt(x, y)
			if w.A() == 0 {
				continue
			}
			if s.bp.Contains(w) {
				s.remap(x, y, w)
				continue
			}
			i, d := s.nearestLab(w, entries)
			if d <= threshold {
				imaging.Set(s.paletted, x, y, s.sampleColor(i))
				queueRows[y] = append(queueRows[y], pending{x: x, y: y, color: w})
				continue
			}
			imaging.Set(s.overlay, x, y, w)
			frontRows[y] = append(frontRows[y], w)
		}
	})

	var queue []pending
	front := palette.New()
	for y := 0; y < s.dim; y++ {
		queue = append(queue, queueRows[y]...)
		front.AddAll(frontRows[y])
	}
	return queue, front
}

// blend is the best explanation found for a pixel's color.
type blend struct {
	front       int
	background  int
	alpha       uint8
	skipOverlay bool
	dist        float64
}

// search finds the combination that best reproduces w: a front color over
// a background entry, one background entry over another, or a front color
// on its own.
func (s *state) search(w colorspace.ARGB, fronts []colorspace.ARGB) blend {
	best := blend{dist: maxSearchDistance}
	entries := s.bp.Colors()
	for _, a := range blendAlphas {
		for b, under := range entries {
			for f, over := range fronts {
				if d := s.labs.Distance(w, colorspace.AlphaBlend(over.WithAlpha(a), under)); d < best.dist {
					best = blend{front: f, background: b, alpha: a, dist: d}
				}
			}
			for _, over := range entries {
				mixed := colorspace.AlphaBlend(over.WithAlpha(a), under)
				if d := s.labs.Distance(w, mixed); d < best.dist {
					best = blend{front: best.front, background: s.closest(mixed), alpha: a, skipOverlay: true, dist: d}
				}
			}
		}
	}
	for f, c := range fronts {
		if d := s.labs.Distance(w, c); d < best.dist {
			best = blend{front: f, background: best.background, alpha: full, dist: d}
		}
	}
	return best
}

// apply writes a search result at (x, y).
func (s *state) apply(x, y int, best blend, fronts []colorspace.ARGB) {
	imaging.Set(s.paletted, x, y, s.sampleColor(best.background))
	// A search that found nothing leaves alpha 0; the overlay stays clear.
	if !best.skipOverlay && best.alpha > 0 && len(fronts) > 0 {
		imaging.Set(s.overlay, x, y, fronts[best.front].WithAlpha(best.alpha))
	}
	if best.alpha == full {
		imaging.Set(s.paletted, x, y, 0)
	}
}

// resolve settles a queued pixel. A pixel nearer to some front color than
// to any background entry is taken over by the overlay.
func (s *state) resolve(p pending, fronts []colorspace.ARGB) {
	_, toFront := s.nearestLab(p.color, fronts)
	_, toBackground := s.nearestLab(p.color, s.bp.Colors())
	if toBackground > toFront {
		imaging.Set(s.overlay, p.x, p.y, p.color.Opaque())
		imaging.Set(s.paletted, p.x, p.y, 0)
		return
	}
	s.apply(p.x, p.y, s.search(p.color, fronts), fronts)
}

// trimAndForce runs the neighbour cleanup over the 3x3 block around every
// pixel. It reads only the overlay and writes only the palette layer.
func (s *state) trimAndForce() {
	if !s.opts.TrimTrailing && !s.opts.ForceNeighbors {
		return
	}
	imaging.ParallelRows(s.dim, func(y int) {
		for x := 0; x < s.dim; x++ {
			hasNeighbor, hasFull := false, false
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if !imaging.InBounds(s.overlay, x+dx, y+dy) {
						continue
					}
					a := imaging.Get(s.overlay, x+dx, y+dy).A()
					hasNeighbor = hasNeighbor || a != 0
					hasFull = hasFull || a == full
				}
			}
			if s.opts.TrimTrailing && !hasNeighbor {
				imaging.Set(s.paletted, x, y, 0)
			}
			if s.opts.ForceNeighbors && hasFull && imaging.Get(s.overlay, x, y).A() == 0 {
				if w := s.woAt(x, y); w.A() != 0 {
					imaging.Set(s.paletted, x, y, s.sampleColor(s.closest(w)))
				}
			}
		}
	})
}
