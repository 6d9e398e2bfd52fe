package gridder

import (
	"log"

	"github.com/jacqryan/gridsif/internal/grid"
	"github.com/jacqryan/gridsif/internal/models"
)

// maxLonSpanDeg guards against footprints whose vertex bounding box wraps the
// antimeridian: a pixel that truly spanned this much longitude would be a
// decoding artifact, not a ground footprint.
const maxLonSpanDeg = 50

var (
	eqOps = map[string]bool{"=": true, "==": true, "eq": true}
	gtOps = map[string]bool{">": true, "gt": true}
	ltOps = map[string]bool{"<": true, "lt": true}
)

// AnyInside reports whether any center coordinate falls strictly inside the
// grid bounds. It is the coarse whole-granule reject applied before any
// per-pixel work.
func AnyInside(lat, lon []float32, b grid.Bounds) bool {
	for i := range lat {
		la, lo := float64(lat[i]), float64(lon[i])
		if la > b.LatMin && la < b.LatMax && lo > b.LonMin && lo < b.LonMax {
			return true
		}
	}
	return false
}

// SelectPixels returns the indices of pixels whose vertex bounding box lies
// strictly inside the grid bounds and which satisfy every filter rule.
//
// Conditions are combined by counting satisfied conditions per pixel and
// requiring the count to reach the total (base five bounds conditions plus
// one per usable rule), the additive equivalent of a strict AND. Rules with
// an unknown comparator are logged and excluded from the total.
func SelectPixels(vertLat, vertLon [][4]float32, filterVals map[string][]float32, rules []models.FilterRule, b grid.Bounds) []int {
	counts := make([]int, len(vertLat))
	total := 5

	for i := range vertLat {
		minLat, maxLat := extent32(&vertLat[i])
		minLon, maxLon := extent32(&vertLon[i])
		if minLat > b.LatMin {
			counts[i]++
		}
		if maxLat < b.LatMax {
			counts[i]++
		}
		if minLon > b.LonMin {
			counts[i]++
		}
		if maxLon < b.LonMax {
			counts[i]++
		}
		if maxLon-minLon < maxLonSpanDeg {
			counts[i]++
		}
	}

	for _, r := range rules {
		vals, ok := filterVals[r.Variable]
		if !ok {
			log.Printf("filter: no values for %q, ignoring rule", r.Variable)
			continue
		}
		switch {
		case eqOps[r.Comparator]:
			total++
			for i := range counts {
				if float64(vals[i]) == r.Threshold {
					counts[i]++
				}
			}
		case gtOps[r.Comparator]:
			total++
			for i := range counts {
				if float64(vals[i]) > r.Threshold {
					counts[i]++
				}
			}
		case ltOps[r.Comparator]:
			total++
			for i := range counts {
				if float64(vals[i]) < r.Threshold {
					counts[i]++
				}
			}
		default:
			log.Printf("filter: ignoring unprocessable rule: %s %s %g", r.Variable, r.Comparator, r.Threshold)
		}
	}

	var selected []int
	for i, c := range counts {
		if c == total {
			selected = append(selected, i)
		}
	}
	return selected
}

func extent32(vs *[4]float32) (min, max float64) {
	min = float64(vs[0])
	max = min
	for _, v := range vs[1:] {
		f := float64(v)
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}
	return min, max
}
