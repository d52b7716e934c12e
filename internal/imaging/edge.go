package imaging

import (
	"fmt"
	"image"
	"strings"
)

// Direction is one of the eight neighbours of a pixel.
type Direction string

// Compass directions, with north pointing up the image.
const (
	North     Direction = "north"
	NorthEast Direction = "northeast"
	East      Direction = "east"
	SouthEast Direction = "southeast"
	South     Direction = "south"
	SouthWest Direction = "southwest"
	West      Direction = "west"
	NorthWest Direction = "northwest"
)

// AllDirections lists every direction, clockwise from north.
var AllDirections = []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var directionOffsets = map[Direction]image.Point{
	North:     {0, -1},
	NorthEast: {1, -1},
	East:      {1, 0},
	SouthEast: {1, 1},
	South:     {0, 1},
	SouthWest: {-1, 1},
	West:      {-1, 0},
	NorthWest: {-1, -1},
}

// ParseDirection validates a direction name, case-insensitively.
func ParseDirection(name string) (Direction, error) {
	d := Direction(strings.ToLower(name))
	if _, ok := directionOffsets[d]; !ok {
		return "", fmt.Errorf("unknown direction %q", name)
	}
	return d, nil
}

// EdgeOptions configures EdgeMask.
type EdgeOptions struct {
	// Directions are the neighbours inspected. Empty means all eight.
	Directions []Direction
	// CountOutsideFrame treats pixels beyond the image border as empty.
	CountOutsideFrame bool
	// Cutoff is the alpha fraction above which a pixel counts as solid.
	Cutoff float64
}

// EdgeMask marks the boundary of the solid region of img.
//
// A pixel is an edge when its alpha is above the cutoff and at least one
// neighbour in the chosen directions is at or below it. Neighbours outside
// the image only count when CountOutsideFrame is set. Edge pixels are white,
// everything else transparent.
func EdgeMask(img *image.NRGBA, opts EdgeOptions) *image.NRGBA {
	dirs := opts.Directions
	if len(dirs) == 0 {
		dirs = AllDirections
	}
	offsets := make([]image.Point, 0, len(dirs))
	for _, d := range dirs {
		if off, ok := directionOffsets[d]; ok {
			offsets = append(offsets, off)
		}
	}

	limit := opts.Cutoff * 255
	solid := func(x, y int) bool { return float64(Get(img, x, y).A()) > limit }

	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := New(w, h)
	ParallelRows(h, func(y int) {
		for x := 0; x < w; x++ {
			if !solid(x, y) {
				continue
			}
			for _, off := range offsets {
				nx, ny := x+off.X, y+off.Y
				if !InBounds(img, nx, ny) {
					if opts.CountOutsideFrame {
						Set(out, x, y, 0xFFFFFFFF)
						break
					}
					continue
				}
				if !solid(nx, ny) {
					Set(out, x, y, 0xFFFFFFFF)
					break
				}
			}
		}
	})
	return out
}
