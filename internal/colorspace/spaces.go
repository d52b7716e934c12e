package colorspace

import (
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

func toColorful(c ARGB) colorful.Color {
	return colorful.Color{
		R: float64(c.R()) / 255,
		G: float64(c.G()) / 255,
		B: float64(c.B()) / 255,
	}
}

func fromColorful(col colorful.Color, a uint8) ARGB {
	r, g, b := col.Clamped().RGB255()
	return Pack(a, r, g, b)
}

// Lab is a CIELAB color under the D65 white point. L runs 0-100; A and B
// are roughly -128 to 127.
type Lab struct {
	L, A, B float64
}

// LabOf converts an ARGB color to CIELAB. Alpha is dropped.
func LabOf(c ARGB) Lab {
	l, a, b := toColorful(c).Lab()
	return Lab{L: l * 100, A: a * 100, B: b * 100}
}

// ARGB converts back to an opaque ARGB color, clamping out-of-gamut values.
func (l Lab) ARGB() ARGB {
	return fromColorful(colorful.Lab(l.L/100, l.A/100, l.B/100), 0xFF)
}

// Distance is the Euclidean distance in CIELAB.
func (l Lab) Distance(o Lab) float64 {
	dl, da, db := l.L-o.L, l.A-o.A, l.B-o.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// LabDistance is the perceptual distance between two ARGB colors.
func LabDistance(c1, c2 ARGB) float64 {
	return LabOf(c1).Distance(LabOf(c2))
}

// Lab32 packs a CIELAB color into 32 bits: alpha, lightness (0-100) and the
// a/b axes as signed bytes.
type Lab32 uint32

// ToLab32 converts and packs an ARGB color, keeping its alpha.
func ToLab32(c ARGB) Lab32 {
	lab := LabOf(c)
	l := Clamp8(int(math.Round(lab.L)))
	a := int8(clampSigned(math.Round(lab.A)))
	b := int8(clampSigned(math.Round(lab.B)))
	return Lab32(uint32(c.A())<<24 | uint32(l)<<16 | uint32(uint8(a))<<8 | uint32(uint8(b)))
}

func clampSigned(v float64) float64 {
	return math.Max(-128, math.Min(127, v))
}

// Alpha returns the alpha byte.
func (c Lab32) Alpha() uint8 { return uint8(c >> 24) }

// Lightness returns L in 0-100.
func (c Lab32) Lightness() uint8 { return uint8(c >> 16) }

// AAxis returns the green-red axis.
func (c Lab32) AAxis() int8 { return int8(uint8(c >> 8)) }

// BAxis returns the blue-yellow axis.
func (c Lab32) BAxis() int8 { return int8(uint8(c)) }

// Lab unpacks to the float form.
func (c Lab32) Lab() Lab {
	return Lab{L: float64(c.Lightness()), A: float64(c.AAxis()), B: float64(c.BAxis())}
}

// ARGB converts back to the canonical encoding.
func (c Lab32) ARGB() ARGB {
	return c.Lab().ARGB().WithAlpha(c.Alpha())
}

// Distance is the Euclidean distance over the packed channels.
func (c Lab32) Distance(o Lab32) float64 {
	return c.Lab().Distance(o.Lab())
}

// HSL32 packs hue, saturation and lightness as bytes. Hue 0-255 spans the
// full 360 degree circle.
type HSL32 uint32

// ToHSL32 converts an ARGB color, keeping its alpha.
func ToHSL32(c ARGB) HSL32 {
	h, s, l := toColorful(c).Hsl()
	return HSL32(packHue(c.A(), h, s, l))
}

// Alpha returns the alpha byte.
func (c HSL32) Alpha() uint8 { return uint8(c >> 24) }

// Hue returns the hue byte.
func (c HSL32) Hue() uint8 { return uint8(c >> 16) }

// Saturation returns the saturation byte.
func (c HSL32) Saturation() uint8 { return uint8(c >> 8) }

// Lightness returns the lightness byte.
func (c HSL32) Lightness() uint8 { return uint8(c) }

// ARGB converts back to the canonical encoding.
func (c HSL32) ARGB() ARGB {
	h, s, l := unpackHue(uint32(c))
	return fromColorful(colorful.Hsl(h, s, l), c.Alpha())
}

// HSV32 packs hue, saturation and value as bytes.
type HSV32 uint32

// ToHSV32 converts an ARGB color, keeping its alpha.
func ToHSV32(c ARGB) HSV32 {
	h, s, v := toColorful(c).Hsv()
	return HSV32(packHue(c.A(), h, s, v))
}

// Alpha returns the alpha byte.
func (c HSV32) Alpha() uint8 { return uint8(c >> 24) }

// Hue returns the hue byte.
func (c HSV32) Hue() uint8 { return uint8(c >> 16) }

// Saturation returns the saturation byte.
func (c HSV32) Saturation() uint8 { return uint8(c >> 8) }

// Value returns the value byte.
func (c HSV32) Value() uint8 { return uint8(c) }

// ARGB converts back to the canonical encoding.
func (c HSV32) ARGB() ARGB {
	h, s, v := unpackHue(uint32(c))
	return fromColorful(colorful.Hsv(h, s, v), c.Alpha())
}

func packHue(a uint8, h, s, x float64) uint32 {
	if math.IsNaN(h) {
		h = 0
	}
	hb := uint8(int(math.Round(h/360*256)) & 0xFF)
	sb := Clamp8(int(math.Round(s * 255)))
	xb := Clamp8(int(math.Round(x * 255)))
	return uint32(a)<<24 | uint32(hb)<<16 | uint32(sb)<<8 | uint32(xb)
}

func unpackHue(v uint32) (h, s, x float64) {
	h = float64(uint8(v>>16)) / 256 * 360
	s = float64(uint8(v>>8)) / 255
	x = float64(uint8(v)) / 255
	return h, s, x
}

// LabCache memoizes ARGB to CIELAB conversions. It is safe for concurrent
// use; the extractor shares one across its per-pixel workers.
type LabCache struct {
	m sync.Map
}

// Lab returns the CIELAB form of c, ignoring alpha.
func (lc *LabCache) Lab(c ARGB) Lab {
	key := c.RGB()
	if v, ok := lc.m.Load(key); ok {
		return v.(Lab)
	}
	lab := LabOf(c)
	lc.m.Store(key, lab)
	return lab
}

// Distance is LabDistance backed by the cache.
func (lc *LabCache) Distance(c1, c2 ARGB) float64 {
	return lc.Lab(c1).Distance(lc.Lab(c2))
}
