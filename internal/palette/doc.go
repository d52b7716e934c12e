// Package palette implements the fuzzy, extensible color palette that the
// extractor and combiner use to move tonal information between images.
//
// # Sample numbers
//
// A sample number is a position in 0-255 that says where a color sits in a
// palette, independent of how many entries the palette has. A paletted
// layer stores sample numbers as gray values, so a layer produced against
// one palette can be resolved against another of a different size.
//
// # Extension
//
// Extend synthesizes entries past the darkest and lightest colors so that
// a short palette (for example a two-tone texture) still spreads over a
// useful tonal range. The conversions OriginalToExtended and
// ExtendedToOriginal move samples between the two ranges.
package palette
