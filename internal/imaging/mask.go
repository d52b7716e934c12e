package imaging

import (
	"image"
	"math"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
)

// Mask multiplies the alpha of input by the alpha of mask. Both images are
// scaled to their common size first.
func Mask(input, mask *image.NRGBA) (*image.NRGBA, error) {
	return Pointwise(func(colors []colorspace.ARGB, inBounds []bool) colorspace.ARGB {
		if !inBounds[0] || !inBounds[1] {
			return 0
		}
		a := int(colors[0].A()) * int(colors[1].A()) / 255
		return colors[0].WithAlpha(uint8(a))
	}, input, mask)
}

// Overlay stacks the inputs with the first one on top.
func Overlay(imgs ...*image.NRGBA) (*image.NRGBA, error) {
	return Pointwise(overlayPixel, imgs...)
}

func overlayPixel(colors []colorspace.ARGB, inBounds []bool) colorspace.ARGB {
	var out colorspace.ARGB
	for i, c := range colors {
		if inBounds[i] {
			out = colorspace.AlphaBlend(out, c)
		}
	}
	return out
}

// Add sums every channel of the inputs, alpha included, clamping at 255.
func Add(imgs ...*image.NRGBA) (*image.NRGBA, error) {
	return Pointwise(func(colors []colorspace.ARGB, inBounds []bool) colorspace.ARGB {
		var a, r, g, b int
		for i, c := range colors {
			if !inBounds[i] {
				continue
			}
			a += int(c.A())
			r += int(c.R())
			g += int(c.G())
			b += int(c.B())
		}
		return colorspace.Pack(colorspace.Clamp8(a), colorspace.Clamp8(r), colorspace.Clamp8(g), colorspace.Clamp8(b))
	}, imgs...)
}

// Multiply multiplies every channel of the inputs, alpha included, each
// treated as a fraction of 255.
func Multiply(imgs ...*image.NRGBA) (*image.NRGBA, error) {
	return Pointwise(func(colors []colorspace.ARGB, inBounds []bool) colorspace.ARGB {
		a, r, g, b := 255.0, 255.0, 255.0, 255.0
		for i, c := range colors {
			if !inBounds[i] {
				continue
			}
			a *= float64(c.A()) / 255
			r *= float64(c.R()) / 255
			g *= float64(c.G()) / 255
			b *= float64(c.B()) / 255
		}
		round := func(v float64) uint8 { return colorspace.Clamp8(int(math.Round(v))) }
		return colorspace.Pack(round(a), round(r), round(g), round(b))
	}, imgs...)
}

// Invert flips every bit of every pixel, alpha included.
func Invert(img *image.NRGBA) *image.NRGBA {
	return Map(img, func(c colorspace.ARGB) colorspace.ARGB { return ^c })
}

// CutoffMask paints white wherever the channel value of a pixel, as a
// fraction in [0,1], is above cutoff, and leaves the rest transparent.
func CutoffMask(img *image.NRGBA, ch Channel, cutoff float64) *image.NRGBA {
	return Map(img, func(c colorspace.ARGB) colorspace.ARGB {
		if float64(ch.Value(c))/255 > cutoff {
			return 0xFFFFFFFF
		}
		return 0
	})
}

// ChannelMask turns a channel into the alpha of an otherwise white image.
func ChannelMask(img *image.NRGBA, ch Channel) *image.NRGBA {
	return Map(img, func(c colorspace.ARGB) colorspace.ARGB {
		return colorspace.Pack(ch.Value(c), 0xFF, 0xFF, 0xFF)
	})
}

// GrowMask dilates the opaque part of a mask. Every pixel within
// floor(width*growth) pixels (square neighbourhood) of a pixel whose alpha
// fraction is above cutoff becomes white; everything else is transparent.
func GrowMask(img *image.NRGBA, growth, cutoff float64) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	r := int(math.Floor(float64(w) * growth))
	if r < 0 {
		r = 0
	}
	limit := cutoff * 255
	out := New(w, h)
	ParallelRows(h, func(y int) {
		for x := 0; x < w; x++ {
			if grows(img, x, y, r, limit) {
				Set(out, x, y, 0xFFFFFFFF)
			}
		}
	})
	return out
}

func grows(img *image.NRGBA, x, y, r int, limit float64) bool {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if InBounds(img, x+dx, y+dy) && float64(Get(img, x+dx, y+dy).A()) > limit {
				return true
			}
		}
	}
	return false
}

// ChannelRoute builds each output channel from a channel of the input.
// A nil route leaves that output channel at zero.
func ChannelRoute(img *image.NRGBA, red, green, blue, alpha *Channel) *image.NRGBA {
	pick := func(ch *Channel, c colorspace.ARGB) uint8 {
		if ch == nil {
			return 0
		}
		return ch.Value(c)
	}
	return Map(img, func(c colorspace.ARGB) colorspace.ARGB {
		return colorspace.Pack(pick(alpha, c), pick(red, c), pick(green, c), pick(blue, c))
	})
}
