package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
)

// ErrGeometry reports image dimensions or crop bounds that cannot produce an
// image: zero or negative sizes, zero scale factors, non-square frames.
var ErrGeometry = errors.New("malformed geometry")

// New returns a fully transparent image of the given size.
func New(width, height int) *image.NRGBA {
	return imaging.New(width, height, color.NRGBA{})
}

// ToNRGBA copies any image into an *image.NRGBA whose bounds start at (0,0).
// Every operation in this package works on that representation.
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// Copy returns an independent copy of img.
func Copy(img *image.NRGBA) *image.NRGBA {
	if img == nil {
		return nil
	}
	return imaging.Clone(img)
}

// Get returns the pixel at (x, y), or transparent black outside the image.
func Get(img *image.NRGBA, x, y int) colorspace.ARGB {
	if !InBounds(img, x, y) {
		return 0
	}
	i := img.PixOffset(x+img.Rect.Min.X, y+img.Rect.Min.Y)
	p := img.Pix[i : i+4 : i+4]
	return colorspace.Pack(p[3], p[0], p[1], p[2])
}

// Set writes c at (x, y). Writes outside the image are dropped.
func Set(img *image.NRGBA, x, y int, c colorspace.ARGB) {
	if !InBounds(img, x, y) {
		return
	}
	i := img.PixOffset(x+img.Rect.Min.X, y+img.Rect.Min.Y)
	p := img.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = c.R(), c.G(), c.B(), c.A()
}

// InBounds reports whether (x, y) lies inside img.
func InBounds(img *image.NRGBA, x, y int) bool {
	return x >= 0 && y >= 0 && x < img.Rect.Dx() && y < img.Rect.Dy()
}

// Fill sets every pixel of img to c.
func Fill(img *image.NRGBA, c colorspace.ARGB) {
	ParallelRows(img.Rect.Dy(), func(y int) {
		for x := 0; x < img.Rect.Dx(); x++ {
			Set(img, x, y, c)
		}
	})
}

// ParallelRows calls fn once per row in [0, height), spreading rows across
// the available CPUs. fn must only write to its own row's output.
func ParallelRows(height int, fn func(y int)) {
	if height <= 0 {
		return
	}
	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			fn(y)
		}
	})
}

// GCD returns the greatest common divisor of a and b.
func GCD(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// LCM returns the least common multiple of all values, or 0 if any is 0.
func LCM(values ...int) int {
	if len(values) == 0 {
		return 0
	}
	l := values[0]
	for _, v := range values[1:] {
		if l == 0 || v == 0 {
			return 0
		}
		l = l / GCD(l, v) * v
	}
	return l
}

// ScaledSize returns the size of an image that holds every input scaled to a
// common width: the least common multiple of the widths, and the tallest
// height after scaling.
func ScaledSize(imgs ...*image.NRGBA) (width, height int, err error) {
	if len(imgs) == 0 {
		return 0, 0, fmt.Errorf("no images to size: %w", ErrGeometry)
	}
	widths := make([]int, len(imgs))
	for i, img := range imgs {
		w, h := img.Rect.Dx(), img.Rect.Dy()
		if w <= 0 || h <= 0 {
			return 0, 0, fmt.Errorf("image %d is %dx%d: %w", i, w, h, ErrGeometry)
		}
		widths[i] = w
	}
	width = LCM(widths...)
	for _, img := range imgs {
		if h := width / img.Rect.Dx() * img.Rect.Dy(); h > height {
			height = h
		}
	}
	return width, height, nil
}

// PointwiseFunc computes one output pixel from the co-located pixels of
// every input. inBounds[k] reports whether colors[k] came from inside input k.
type PointwiseFunc func(colors []colorspace.ARGB, inBounds []bool) colorspace.ARGB

// Pointwise applies op over all inputs at their common scaled size. Each
// input is sampled nearest-neighbor, stretched over the whole output.
func Pointwise(op PointwiseFunc, imgs ...*image.NRGBA) (*image.NRGBA, error) {
	width, height, err := ScaledSize(imgs...)
	if err != nil {
		return nil, err
	}
	out := New(width, height)
	ParallelRows(height, func(y int) {
		colors := make([]colorspace.ARGB, len(imgs))
		inBounds := make([]bool, len(imgs))
		for x := 0; x < width; x++ {
			for k, img := range imgs {
				sx := x * img.Rect.Dx() / width
				sy := y * img.Rect.Dy() / height
				inBounds[k] = InBounds(img, sx, sy)
				colors[k] = Get(img, sx, sy)
			}
			Set(out, x, y, op(colors, inBounds))
		}
	})
	return out, nil
}

// Map applies fn to every pixel of img, producing a new image.
func Map(img *image.NRGBA, fn func(colorspace.ARGB) colorspace.ARGB) *image.NRGBA {
	out := New(img.Rect.Dx(), img.Rect.Dy())
	ParallelRows(img.Rect.Dy(), func(y int) {
		for x := 0; x < img.Rect.Dx(); x++ {
			Set(out, x, y, fn(Get(img, x, y)))
		}
	})
	return out
}

// Upscale resizes img by nearest-neighbor to width x height.
func Upscale(img *image.NRGBA, width, height int) *image.NRGBA {
	if img.Rect.Dx() == width && img.Rect.Dy() == height {
		return Copy(img)
	}
	return imaging.Resize(img, width, height, imaging.NearestNeighbor)
}
