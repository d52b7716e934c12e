package imaging

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/cenkalti/dominantcolor"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
	"github.com/ironsheep/texgen-mcp/internal/palette"
)

// maxColorSquare is the largest side of an image built by ColorSquare.
const maxColorSquare = 128

// ColorSquare lays colors out row by row in the smallest power-of-two square
// that holds them, up to 128x128. Unused pixels stay transparent and extra
// colors are dropped.
func ColorSquare(colors []colorspace.ARGB) (*image.NRGBA, error) {
	n := min(len(colors), maxColorSquare*maxColorSquare)
	if n == 0 {
		return nil, fmt.Errorf("no colors given: %w", ErrGeometry)
	}
	side := 1
	for side*side < n {
		side *= 2
	}
	out := New(side, side)
	for i := 0; i < n; i++ {
		Set(out, i%side, i/side, colors[i])
	}
	return out, nil
}

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSLColor represents a color in HSL space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// ColorResult contains a color value in several representations.
type ColorResult struct {
	Hex    string   `json:"hex"`
	RGB    RGBColor `json:"rgb"`
	HSL    HSLColor `json:"hsl"`
	Sample int      `json:"sample"` // position within the palette, 0-255
}

// DominantColor is a color and the share of the image it covers.
type DominantColor struct {
	Hex    string   `json:"hex"`
	RGB    RGBColor `json:"rgb"`
	Weight float64  `json:"weight"` // 0-1
}

// PaletteReport describes the colors of a texture: the fuzzy palette the
// extractor and combiner see, and the dominant colors by area.
type PaletteReport struct {
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	Cutoff       float64         `json:"cutoff"`
	Palette      []ColorResult   `json:"palette"`
	ExtendedLow  int             `json:"extended_low"`
	ExtendedHigh int             `json:"extended_high"`
	Dominant     []DominantColor `json:"dominant"`
}

// NewColorResult describes c, with its sample number in p.
func NewColorResult(c colorspace.ARGB, p *palette.Palette) ColorResult {
	hsl := colorspace.ToHSL32(c)
	return ColorResult{
		Hex: hexOf(c),
		RGB: RGBColor{R: c.R(), G: c.G(), B: c.B()},
		HSL: HSLColor{
			H: int(math.Round(float64(hsl.Hue()) * 360 / 256)),
			S: int(math.Round(float64(hsl.Saturation()) * 100 / 255)),
			L: int(math.Round(float64(hsl.Lightness()) * 100 / 255)),
		},
		Sample: p.MustSample(c),
	}
}

func hexOf(c colorspace.ARGB) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R(), c.G(), c.B())
}

// FormatHexColor renders c as "#AARRGGBB".
func FormatHexColor(c colorspace.ARGB) string {
	return fmt.Sprintf("#%08X", uint32(c))
}

// ParseHexColor parses "#RRGGBB" (opaque) or "#AARRGGBB". The leading '#'
// is optional.
func ParseHexColor(hex string) (colorspace.ARGB, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return 0, fmt.Errorf("invalid hex color %q: want 6 or 8 digits", hex)
	}
	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	c := colorspace.ARGB(val)
	if len(hex) == 6 {
		c = c.Opaque()
	}
	return c, nil
}

// AnalyzePalette builds a PaletteReport for img.
//
// Parameters:
//   - img: the texture to analyze.
//   - extendTo: if positive, the palette is extended to at least this many
//     entries before reporting, the way a palette_combined node would.
//   - dominant: how many dominant colors to report.
func AnalyzePalette(img *image.NRGBA, extendTo, dominant int) (*PaletteReport, error) {
	p, err := palette.FromImage(img, palette.DefaultCutoff)
	if err != nil {
		return nil, err
	}
	if p.Len() == 0 {
		return nil, fmt.Errorf("image has no opaque pixels: %w", palette.ErrEmpty)
	}
	if extendTo > 0 {
		if err := p.ExtendToSize(extendTo); err != nil {
			return nil, fmt.Errorf("failed to extend palette: %w", err)
		}
	}

	report := &PaletteReport{
		Width:        img.Rect.Dx(),
		Height:       img.Rect.Dy(),
		Cutoff:       p.Cutoff(),
		ExtendedLow:  p.ExtendedLow(),
		ExtendedHigh: p.ExtendedHigh(),
	}
	for _, c := range p.Colors() {
		report.Palette = append(report.Palette, NewColorResult(c, p))
	}

	if dominant > 0 {
		for _, dc := range dominantcolor.FindWeight(img, dominant) {
			c := colorspace.FromColor(dc.RGBA)
			report.Dominant = append(report.Dominant, DominantColor{
				Hex:    hexOf(c),
				RGB:    RGBColor{R: c.R(), G: c.G(), B: c.B()},
				Weight: dc.Weight,
			})
		}
	}
	return report, nil
}
