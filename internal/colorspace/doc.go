// Package colorspace holds the color encodings used across the generator
// and the pure conversion and distance functions between them.
//
// ARGB is the canonical 32-bit interchange form. Every other encoding
// (ABGR, ARGB64, packed CIELAB, HSL and HSV) converts to and from it:
//
//	lab := colorspace.ToLab32(c)
//	back := lab.ARGB()
//
// Two distances are provided. RGBDistance is used for palette matching;
// LabDistance is used wherever classification has to track perceived
// similarity, such as foreground extraction.
package colorspace
