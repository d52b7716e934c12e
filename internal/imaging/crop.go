package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropRect copies the part of img inside r into a new image of r's size.
// Pixels of r that fall outside img are transparent.
func CropRect(img *image.NRGBA, r image.Rectangle) (*image.NRGBA, error) {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("crop region %v is empty: %w", r, ErrGeometry)
	}
	out := New(r.Dx(), r.Dy())
	visible := r.Intersect(img.Bounds())
	if visible.Empty() {
		return out, nil
	}
	return imaging.Paste(out, imaging.Crop(img, visible), visible.Min.Sub(r.Min)), nil
}

// CropScaled cuts a region measured in texture units.
//
// The image is treated as totalSize units wide, so one unit is
// width/totalSize pixels (integer division). The region starts at
// (startX, startY) units and is sizeX by sizeY units large.
//
// # Errors
//
//   - negative sizes, or totalSize <= 0
//   - an image narrower than totalSize (a zero unit)
//   - a region that scales to less than one pixel
func CropScaled(img *image.NRGBA, totalSize, startX, startY, sizeX, sizeY int) (*image.NRGBA, error) {
	if sizeX < 0 || sizeY < 0 {
		return nil, fmt.Errorf("crop size %dx%d is negative: %w", sizeX, sizeY, ErrGeometry)
	}
	if totalSize <= 0 {
		return nil, fmt.Errorf("total size %d must be positive: %w", totalSize, ErrGeometry)
	}
	scale := img.Rect.Dx() / totalSize
	if scale == 0 {
		return nil, fmt.Errorf("image is %d wide, total size is %d, scale is zero: %w", img.Rect.Dx(), totalSize, ErrGeometry)
	}
	distX, distY := sizeX*scale, sizeY*scale
	if distX < 1 || distY < 1 {
		return nil, fmt.Errorf("crop size %dx%d is not positive: %w", sizeX, sizeY, ErrGeometry)
	}
	x0, y0 := startX*scale, startY*scale
	return CropRect(img, image.Rect(x0, y0, x0+distX, y0+distY))
}

// FrameCount is the number of square frames stacked vertically in img.
func FrameCount(img *image.NRGBA) int {
	if img.Rect.Dx() == 0 {
		return 0
	}
	return img.Rect.Dy() / img.Rect.Dx()
}

// Frame returns square frame i of a vertical strip.
func Frame(img *image.NRGBA, i int) (*image.NRGBA, error) {
	n := FrameCount(img)
	if n == 0 {
		return nil, fmt.Errorf("image %dx%d holds no square frame: %w", img.Rect.Dx(), img.Rect.Dy(), ErrGeometry)
	}
	size := img.Rect.Dx()
	i %= n
	return CropRect(img, image.Rect(0, i*size, size, (i+1)*size))
}
