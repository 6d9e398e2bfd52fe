// Package grid defines the fixed output raster and the machinery that folds
// irregular satellite footprints into it: the cell-center grid model, the
// sub-grid sampler used to approximate area overlap, and the online weighted
// accumulator that maintains per-cell running means.
package grid

import (
	"fmt"
	"math"
)

// Bounds is the geographic extent of the output raster, in degrees.
type Bounds struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// Grid is an immutable equirectangular output raster. LatVals and LonVals
// hold cell-center coordinates, strictly increasing and evenly spaced.
type Grid struct {
	Bounds  Bounds
	LatRes  float64
	LonRes  float64
	LatVals []float64
	LonVals []float64
}

// New builds a grid of cell centers covering bounds at the given resolution.
// Construction is deterministic: the same inputs always produce bit-identical
// coordinate arrays.
func New(b Bounds, latRes, lonRes float64) (*Grid, error) {
	if latRes <= 0 || lonRes <= 0 {
		return nil, fmt.Errorf("grid: resolution must be positive, got lat=%g lon=%g", latRes, lonRes)
	}
	if b.LatMax <= b.LatMin || b.LonMax <= b.LonMin {
		return nil, fmt.Errorf("grid: empty bounds %+v", b)
	}
	return &Grid{
		Bounds:  b,
		LatRes:  latRes,
		LonRes:  lonRes,
		LatVals: centers(b.LatMin, b.LatMax, latRes),
		LonVals: centers(b.LonMin, b.LonMax, lonRes),
	}, nil
}

// centers returns cell-center coordinates from min+res/2 up to max-res/2,
// with a tolerance of res/100 on the upper end so that a span that is an
// exact multiple of res keeps its last cell despite rounding.
func centers(min, max, res float64) []float64 {
	span := (max - min) / res
	count := int(math.Floor(span-1+0.01)) + 1 // 0.01 = (res/100)/res
	if count < 1 {
		count = 1
	}
	vals := make([]float64, count)
	for i := range vals {
		vals[i] = min + res/2 + float64(i)*res
	}
	return vals
}

// LatIndex maps a latitude in degrees to a fractional position in
// [0, len(LatVals)-1]. All binning math downstream of the filter operates in
// this index space rather than in degrees.
func (g *Grid) LatIndex(deg float64) float64 {
	return fracIndex(deg, g.Bounds.LatMin, g.Bounds.LatMax, len(g.LatVals))
}

// LonIndex maps a longitude in degrees to a fractional position in
// [0, len(LonVals)-1].
func (g *Grid) LonIndex(deg float64) float64 {
	return fracIndex(deg, g.Bounds.LonMin, g.Bounds.LonMax, len(g.LonVals))
}

func fracIndex(coord, min, max float64, n int) float64 {
	idx := (coord - min) / (max - min) * float64(n)
	if idx < 0 {
		return 0
	}
	if limit := float64(n - 1); idx > limit {
		return limit
	}
	return idx
}
