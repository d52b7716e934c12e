package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Transform rotates img clockwise by 90 degrees rotate times, then mirrors
// it horizontally when flip is set. Negative rotations turn
// counter-clockwise.
func Transform(img *image.NRGBA, rotate int, flip bool) *image.NRGBA {
	out := img
	for i := 0; i < ((rotate%4)+4)%4; i++ {
		out = imaging.Rotate270(out)
	}
	if flip {
		out = imaging.FlipH(out)
	}
	if out == img {
		out = Copy(img)
	}
	return out
}
