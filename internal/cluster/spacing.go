package cluster

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
)

// pairDistances returns the CIELAB distance of every unordered pair.
func pairDistances(colors []colorspace.ARGB) []float64 {
	if len(colors) < 2 {
		return nil
	}
	labs := make([]colorspace.Lab, len(colors))
	for i, c := range colors {
		labs[i] = colorspace.LabOf(c)
	}
	d := make([]float64, 0, len(colors)*(len(colors)-1)/2)
	for i := range labs {
		for j := i + 1; j < len(labs); j++ {
			d = append(d, labs[i].Distance(labs[j]))
		}
	}
	return d
}

// MinimumSpacing is the smallest CIELAB distance between two colors, or 0
// for fewer than two colors.
func MinimumSpacing(colors []colorspace.ARGB) float64 {
	d := pairDistances(colors)
	if len(d) == 0 {
		return 0
	}
	return floats.Min(d)
}

// MaximumSpacing is the largest CIELAB distance between two colors, or 0
// for fewer than two colors.
func MaximumSpacing(colors []colorspace.ARGB) float64 {
	d := pairDistances(colors)
	if len(d) == 0 {
		return 0
	}
	return floats.Max(d)
}

// AverageSpacing is the mean CIELAB distance over all pairs, or 0 for fewer
// than two colors.
func AverageSpacing(colors []colorspace.ARGB) float64 {
	d := pairDistances(colors)
	if len(d) == 0 {
		return 0
	}
	return stat.Mean(d, nil)
}
