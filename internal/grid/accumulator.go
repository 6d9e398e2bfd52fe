package grid

import (
	"math"

	"github.com/jacqryan/gridsif/internal/models"
)

// AddMode reports how a footprint was folded into the accumulator.
type AddMode int

const (
	// AddedSingleCell means the whole footprint mapped to one output cell.
	AddedSingleCell AddMode = iota
	// AddedSubsampled means the footprint spanned multiple cells and was
	// distributed via n*n sub-grid samples.
	AddedSubsampled
	// Skipped means the footprint's longitudinal index span was >= the
	// subdivision factor and it contributed nothing.
	Skipped
)

// Accumulator maintains one day's weight raster and per-variable running mean
// rasters, updated online as footprints arrive. The update is a weighted
// streaming mean, algebraically equivalent to sum(w*x)/sum(w) in any
// contribution order, so a day's observations never need to be held in
// memory as a list.
//
// An Accumulator is single-owner storage: it is reused across days and must
// be drained (read) and Reset before the next day begins. It is not safe for
// concurrent use.
type Accumulator struct {
	numLon  int
	numLat  int
	numVars int
	sampler *Sampler
	weights []float64 // numLon*numLat, lon-major
	means   []float64 // numLon*numLat*numVars
}

// NewAccumulator allocates accumulator storage for the given grid, variable
// count, and subdivision factor n.
func NewAccumulator(g *Grid, numVars, n int) *Accumulator {
	numLon, numLat := len(g.LonVals), len(g.LatVals)
	return &Accumulator{
		numLon:  numLon,
		numLat:  numLat,
		numVars: numVars,
		sampler: NewSampler(n),
		weights: make([]float64, numLon*numLat),
		means:   make([]float64, numLon*numLat*numVars),
	}
}

// Add folds one index-space footprint into the accumulator and reports how it
// was handled. Footprints whose longitudinal index span is >= the subdivision
// factor are dropped silently; callers should surface the Skipped mode in
// metrics since this is a known coverage gap for antimeridian-scale pixels.
func (a *Accumulator) Add(fp *models.Footprint) AddMode {
	minLat, maxLat := floorExtent(&fp.VertexLat)
	minLon, maxLon := floorExtent(&fp.VertexLon)

	switch {
	case maxLat == minLat && maxLon == minLon:
		a.deposit(minLon, minLat, 1.0, fp.Values)
		return AddedSingleCell
	case maxLon-minLon < a.sampler.N():
		n := a.sampler.N()
		inc := 1.0 / float64(n*n)
		for _, p := range a.sampler.Points(&fp.VertexLat, &fp.VertexLon) {
			latIdx := clampInt(int(math.Floor(p[0])), a.numLat-1)
			lonIdx := clampInt(int(math.Floor(p[1])), a.numLon-1)
			a.deposit(lonIdx, latIdx, inc, fp.Values)
		}
		return AddedSubsampled
	default:
		return Skipped
	}
}

// deposit adds weight inc at one cell and updates each variable's running
// mean: mean += (inc/weight) * (value - mean).
func (a *Accumulator) deposit(lonIdx, latIdx int, inc float64, values []float64) {
	cell := lonIdx*a.numLat + latIdx
	a.weights[cell] += inc
	w := a.weights[cell]
	base := cell * a.numVars
	for z, v := range values {
		m := a.means[base+z]
		a.means[base+z] = m + (inc/w)*(v-m)
	}
}

// Weight returns the accumulated weight at a cell.
func (a *Accumulator) Weight(lonIdx, latIdx int) float64 {
	return a.weights[lonIdx*a.numLat+latIdx]
}

// Mean returns the running mean for one variable at a cell. It is only
// meaningful where Weight > 0.
func (a *Accumulator) Mean(lonIdx, latIdx, varIdx int) float64 {
	return a.means[(lonIdx*a.numLat+latIdx)*a.numVars+varIdx]
}

// MaxWeight returns the largest accumulated weight across all cells.
func (a *Accumulator) MaxWeight() float64 {
	max := 0.0
	for _, w := range a.weights {
		if w > max {
			max = w
		}
	}
	return max
}

// Reset zeroes all weights and means so the storage can be reused for the
// next time slice. Skipping Reset between days would leak one day's state
// into the next.
func (a *Accumulator) Reset() {
	clear(a.weights)
	clear(a.means)
}

func floorExtent(coords *[4]float64) (min, max int) {
	min = int(math.Floor(coords[0]))
	max = min
	for _, c := range coords[1:] {
		i := int(math.Floor(c))
		if i < min {
			min = i
		}
		if i > max {
			max = i
		}
	}
	return min, max
}

func clampInt(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
