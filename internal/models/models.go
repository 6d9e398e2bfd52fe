package models

import "time"

const (
	// FillValue marks raster cells that accumulated no data for a day.
	FillValue = -999.0
	// MinWeight is the smallest accumulated weight treated as data.
	MinWeight = 1e-10
)

// Footprint is one satellite ground-pixel observation expressed in grid index
// space: the four quadrilateral vertices as fractional cell positions, plus
// one scalar value per requested variable.
type Footprint struct {
	VertexLat [4]float64
	VertexLon [4]float64
	Values    []float64
}

// FilterRule is a per-variable threshold predicate applied during pixel
// selection. Comparator is one of =, ==, eq, >, gt, <, lt. Equality is exact
// float comparison; callers wanting fuzzy matching must pre-quantize.
type FilterRule struct {
	Variable   string
	Comparator string
	Threshold  float64
}

// RasterSlice is one day's gridded output: a weight raster plus one mean
// raster per variable, laid out lon-major (index = lonIdx*NumLat + latIdx).
// Values hold FillValue wherever the cell weight is below MinWeight.
type RasterSlice struct {
	Date      time.Time
	Days      float64 // days since 1970-01-01 UTC
	NumLon    int
	NumLat    int
	Variables []string
	Weights   []float64
	Values    [][]float64 // [variable][cell]
}

// Index returns the flat cell index for a (lon, lat) cell pair.
func (s *RasterSlice) Index(lonIdx, latIdx int) int {
	return lonIdx*s.NumLat + latIdx
}

// HasData reports whether any cell in the slice accumulated weight.
func (s *RasterSlice) HasData() bool {
	for _, w := range s.Weights {
		if w >= MinWeight {
			return true
		}
	}
	return false
}
