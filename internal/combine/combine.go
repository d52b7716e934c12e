// Package combine lays an extracted overlay and palette layer over a
// background, mapping sample numbers onto the background's own palette.
package combine

import (
	"fmt"
	"image"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/palette"
)

// DefaultExtendSize is the palette size a palette_combined node extends
// the background palette to when none is given.
const DefaultExtendSize = 6

// Options configures Combine.
type Options struct {
	// IncludeBackground draws the background itself under the result.
	IncludeBackground bool
	// StretchPaletted rescales the palette layer's values to span 0-255
	// before looking them up.
	StretchPaletted bool
	// Extend grows the background palette first. Nil leaves it as is.
	Extend palette.Predicate
}

// DefaultOptions returns the settings of a palette_combined node with no
// fields given.
func DefaultOptions() Options {
	return Options{
		IncludeBackground: true,
		Extend:            palette.ToSize(DefaultExtendSize),
	}
}

// Combine renders overlay over the palette layer over (optionally) the
// background. Each palette-layer pixel's gray value is a sample number
// resolved against the background's palette; its alpha is kept, so
// transparent palette pixels let the background through.
func Combine(background, overlay, paletted image.Image, opts Options) (*image.NRGBA, error) {
	if background == nil || overlay == nil || paletted == nil {
		return nil, fmt.Errorf("combine needs background, overlay and palette images: %w", imaging.ErrGeometry)
	}
	bg := imaging.ToNRGBA(background)
	ov := imaging.ToNRGBA(overlay)
	pl := imaging.ToNRGBA(paletted)

	p, err := palette.FromImage(bg, palette.DefaultCutoff)
	if err != nil {
		return nil, err
	}
	if p.Len() == 0 {
		return nil, fmt.Errorf("background has no opaque pixels: %w", palette.ErrEmpty)
	}
	if opts.Extend != nil {
		if err := p.Extend(opts.Extend); err != nil {
			return nil, fmt.Errorf("failed to extend background palette: %w", err)
		}
	}

	stretch := identity
	if opts.StretchPaletted {
		stretch = stretcher(pl)
	}
	resolve := func(c colorspace.ARGB, inBounds bool) colorspace.ARGB {
		if !inBounds {
			return 0
		}
		c = stretch(c)
		col, err := p.Color(value(c))
		if err != nil {
			return 0
		}
		return col.WithAlpha(c.A())
	}

	if opts.IncludeBackground {
		return imaging.Pointwise(func(colors []colorspace.ARGB, inBounds []bool) colorspace.ARGB {
			layers := []colorspace.ARGB{colors[1], resolve(colors[2], inBounds[2]), colors[0]}
			return stack(layers, []bool{inBounds[1], inBounds[2], inBounds[0]})
		}, bg, ov, pl)
	}
	return imaging.Pointwise(func(colors []colorspace.ARGB, inBounds []bool) colorspace.ARGB {
		layers := []colorspace.ARGB{colors[0], resolve(colors[1], inBounds[1])}
		return stack(layers, inBounds)
	}, ov, pl)
}

// value is the sample number a palette-layer pixel encodes.
func value(c colorspace.ARGB) int {
	return (int(c.R()) + int(c.G()) + int(c.B())) / 3
}

func identity(c colorspace.ARGB) colorspace.ARGB { return c }

// stretcher maps the palette layer's value range onto 0-255.
func stretcher(img *image.NRGBA) func(colorspace.ARGB) colorspace.ARGB {
	lo, hi := 0xFF, 0x00
	for y := 0; y < img.Rect.Dy(); y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			v := value(imaging.Get(img, x, y))
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	if hi <= lo {
		return identity
	}
	return func(c colorspace.ARGB) colorspace.ARGB {
		v := uint8((value(c) - lo) * 255 / (hi - lo))
		return colorspace.Pack(c.A(), v, v, v)
	}
}

// stack composites layers with the first on top.
func stack(layers []colorspace.ARGB, inBounds []bool) colorspace.ARGB {
	var out colorspace.ARGB
	for i, c := range layers {
		if inBounds[i] {
			out = colorspace.AlphaBlend(out, c)
		}
	}
	return out
}
