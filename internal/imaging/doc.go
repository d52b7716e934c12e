// Package imaging provides the raster operations behind texture pipelines.
//
// Every function works on *image.NRGBA values whose bounds start at (0,0);
// use ToNRGBA to normalize a decoded image first. Pixels are read and
// written as colorspace.ARGB values with straight (non-premultiplied)
// alpha.
//
// # Coordinate System
//
// (0,0) is the top-left corner, X increases rightward and Y downward.
// Reads outside an image yield transparent black; writes outside are
// dropped.
//
// # Scaled Operations
//
// Operations over several images (Overlay, Mask, Add, Multiply and the
// palette combiner) first bring the inputs to a common size: the least
// common multiple of their widths, and the tallest height once every input
// is scaled to that width. Each input is then sampled nearest-neighbor over
// the whole output. See ScaledSize and Pointwise.
//
// # Thread Safety
//
// Functions never mutate their inputs and always return a fresh image, so
// they can be called concurrently on shared inputs. Per-pixel work is
// spread across CPUs with ParallelRows.
//
// # Error Handling
//
// Geometry problems (empty images, zero crop scale, regions smaller than a
// pixel, strips with no square frame) wrap ErrGeometry.
package imaging
