package colorspace

import (
	"image/color"
	"math"
)

// ARGB is the canonical interchange encoding: 8-bit alpha, red, green and
// blue packed from the high byte down. Channels are not premultiplied.
type ARGB uint32

// Pack builds an ARGB value from its channels.
func Pack(a, r, g, b uint8) ARGB {
	return ARGB(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// A returns the alpha channel.
func (c ARGB) A() uint8 { return uint8(c >> 24) }

// R returns the red channel.
func (c ARGB) R() uint8 { return uint8(c >> 16) }

// G returns the green channel.
func (c ARGB) G() uint8 { return uint8(c >> 8) }

// B returns the blue channel.
func (c ARGB) B() uint8 { return uint8(c) }

// Opaque returns c with alpha forced to 255.
func (c ARGB) Opaque() ARGB { return c | 0xFF000000 }

// RGB returns the color channels with alpha cleared.
func (c ARGB) RGB() uint32 { return uint32(c) & 0xFFFFFF }

// WithAlpha replaces the alpha channel.
func (c ARGB) WithAlpha(a uint8) ARGB {
	return ARGB(uint32(c)&0xFFFFFF | uint32(a)<<24)
}

// NRGBA converts to the standard library's non-premultiplied color.
func (c ARGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: c.A()}
}

// FromColor converts any color.Color into ARGB, undoing premultiplication.
func FromColor(c color.Color) ARGB {
	if n, ok := c.(color.NRGBA); ok {
		return Pack(n.A, n.R, n.G, n.B)
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Pack(n.A, n.R, n.G, n.B)
}

// Gray returns an opaque gray with every channel set to v.
func Gray(v uint8) ARGB {
	return Pack(0xFF, v, v, v)
}

// Clamp8 clamps an integer to the 0-255 range.
func Clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// RGBDistance is the Euclidean distance over the red, green and blue
// channels. Alpha is ignored.
func RGBDistance(c1, c2 ARGB) float64 {
	dr := float64(int(c1.R()) - int(c2.R()))
	dg := float64(int(c1.G()) - int(c2.G()))
	db := float64(int(c1.B()) - int(c2.B()))
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Luma is the ordering key used by palettes: the plain channel sum.
func Luma(c ARGB) int {
	return int(c.R()) + int(c.G()) + int(c.B())
}

// AlphaBlend composites over atop under with straight alpha.
//
//	a = aOver + aUnder*(255-aOver)/255
//	channel = (cOver*aOver + cUnder*aUnder*(255-aOver)/255) / a
//
// A zero result alpha yields transparent black.
func AlphaBlend(over, under ARGB) ARGB {
	aO := int(over.A())
	aU := int(under.A())
	a := aO + aU*(255-aO)/255
	if a == 0 {
		return 0
	}
	mix := func(o, u uint8) uint8 {
		return Clamp8((int(o)*aO + int(u)*aU*(255-aO)/255) / a)
	}
	return Pack(uint8(a), mix(over.R(), under.R()), mix(over.G(), under.G()), mix(over.B(), under.B()))
}

// ABGR is ARGB with the red and blue channels swapped, the layout some
// native image buffers use.
type ABGR uint32

// ToABGR converts from the canonical encoding.
func ToABGR(c ARGB) ABGR {
	return ABGR(uint32(c.A())<<24 | uint32(c.B())<<16 | uint32(c.G())<<8 | uint32(c.R()))
}

// ARGB converts back to the canonical encoding.
func (c ABGR) ARGB() ARGB {
	return Pack(uint8(c>>24), uint8(c), uint8(c>>8), uint8(c>>16))
}

// ARGB64 holds 16 bits per channel for intermediate precision.
type ARGB64 uint64

// To64 widens an ARGB color, replicating each byte into both halves.
func To64(c ARGB) ARGB64 {
	w := func(v uint8) uint64 { return uint64(v)<<8 | uint64(v) }
	return ARGB64(w(c.A())<<48 | w(c.R())<<32 | w(c.G())<<16 | w(c.B()))
}

// ARGB narrows back to 8 bits per channel, rounding.
func (c ARGB64) ARGB() ARGB {
	n := func(v uint64) uint8 { return uint8(((v & 0xFFFF) + 0x80) / 0x101) }
	return Pack(n(uint64(c)>>48), n(uint64(c)>>32), n(uint64(c)>>16), n(uint64(c)))
}
