package extract

import (
	"image"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
	"github.com/ironsheep/texgen-mcp/internal/imaging"
)

var fourNeighbors = []image.Point{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

// fillHoles promotes colors surrounded by overlay to full overlay pixels.
//
// Solid overlay pixels are first reset to their source color. Then, until a
// pass changes nothing, any interior pixel that is not solid but has at
// least three solid 4-neighbours, or four neighbours that were partial
// before this step, and whose source color is not a background color, is
// promoted: every pixel of that exact source color becomes solid overlay.
//
// Promotion order matters, so this runs on one goroutine.
func (s *state) fillHoles() {
	dim := s.dim
	before := make([]uint8, dim*dim)
	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			o := imaging.Get(s.overlay, x, y)
			before[y*dim+x] = o.A()
			if o.A() == full {
				imaging.Set(s.overlay, x, y, s.woAt(x, y).Opaque())
			}
		}
	}

	for {
		promoted := false
		for y := 1; y < dim-1; y++ {
			for x := 1; x < dim-1; x++ {
				if imaging.Get(s.overlay, x, y).A() == full {
					continue
				}
				solid, partial := 0, 0
				for _, n := range fourNeighbors {
					nx, ny := x+n.X, y+n.Y
					a := imaging.Get(s.overlay, nx, ny).A()
					if a == full {
						solid++
					}
					if a > 0 && before[ny*dim+nx] < full {
						partial++
					}
				}
				if solid < 3 && partial < 4 {
					continue
				}
				orig := s.woAt(x, y)
				if orig.A() == 0 || s.bp.Contains(orig) {
					continue
				}
				s.promote(orig)
				promoted = true
			}
		}
		if !promoted {
			return
		}
	}
}

func (s *state) promote(orig colorspace.ARGB) {
	for y := 0; y < s.dim; y++ {
		for x := 0; x < s.dim; x++ {
			if s.woAt(x, y) == orig {
				imaging.Set(s.overlay, x, y, orig.Opaque())
			}
		}
	}
}
