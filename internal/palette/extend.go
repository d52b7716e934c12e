package palette

import (
	"math"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
)

const (
	black colorspace.ARGB = 0xFF000000
	white colorspace.ARGB = 0xFFFFFFFF
)

// ExtendToSize extends until the palette has at least n entries, or both
// ends have reached black and white.
func (p *Palette) ExtendToSize(n int) error {
	return p.Extend(ToSize(n))
}

// ExtendToWidth extends until the darkest and lightest entries are at least
// width apart in RGB, or both ends have reached black and white.
func (p *Palette) ExtendToWidth(width float64) error {
	return p.Extend(ToWidth(width))
}

// Extend grows the palette by synthesizing entries past its darkest and
// lightest colors, stepping toward black and white respectively.
//
// Each round adds one entry at the dark end and then one at the light end.
// The step is the palette's average spacing between neighbouring entries, so
// new entries roughly match the existing granularity. An end whose distance
// to its target is below one step snaps to the target and is done. The
// predicate is checked before every round; extension also stops once both
// ends are done.
//
// A single-entry palette has no spacing of its own; the step is then half
// the distance to the nearer of black and white (or to the farther one, if
// the entry already is black or white).
func (p *Palette) Extend(done Predicate) error {
	if len(p.colors) == 0 {
		return ErrEmpty
	}
	spacing := p.spacing()
	reachedLow, reachedHigh := false, false

	for !done(p) {
		for _, low := range []bool{true, false} {
			if (low && reachedLow) || (!low && reachedHigh) {
				continue
			}
			if !p.extendEnd(low, spacing) {
				if low {
					reachedLow = true
				} else {
					reachedHigh = true
				}
			}
		}
		if reachedLow && reachedHigh {
			break
		}
	}
	return nil
}

// extendEnd adds one entry at the given end and reports whether that end
// can keep growing.
func (p *Palette) extendEnd(low bool, spacing float64) bool {
	end, target, targetChannel := p.colors[len(p.colors)-1], white, 255.0
	if low {
		end, target, targetChannel = p.colors[0], black, 0
	}
	endDist := colorspace.RGBDistance(end, target)

	if endDist < spacing || endDist == 0 {
		p.addExtension(low, target)
		return false
	}

	step := func(v uint8) uint8 {
		return colorspace.Clamp8(int((float64(v)*(endDist-spacing) + targetChannel*spacing) / endDist))
	}
	next := colorspace.Pack(0xFF, step(end.R()), step(end.G()), step(end.B()))
	return p.addExtension(low, next)
}

func (p *Palette) addExtension(low bool, c colorspace.ARGB) bool {
	if !p.Add(c) {
		return false
	}
	if low {
		p.extendedLow++
	} else {
		p.extendedHigh++
	}
	return true
}

func (p *Palette) spacing() float64 {
	n := len(p.colors)
	if n > 1 {
		return colorspace.RGBDistance(p.colors[0], p.colors[n-1]) / float64(n-1)
	}
	c := p.colors[0]
	toBlack := colorspace.RGBDistance(c, black)
	toWhite := colorspace.RGBDistance(c, white)
	near := math.Min(toBlack, toWhite)
	if near == 0 {
		near = math.Max(toBlack, toWhite)
	}
	return near / 2
}
