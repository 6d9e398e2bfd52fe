package grid

// Sampler subdivides a quadrilateral footprint into an n x n lattice of
// interior sample points by bilinear edge interpolation. Points sit at
// sub-cell centers (offset by half a sub-step), not on edges, so that the
// lattice approximates area overlap rather than outlining the polygon.
//
// The sampler assumes a consistent vertex traversal in which vertices 0-1 and
// 3-2 form opposing edges. This ordering is a contract with the input data
// and is not validated at runtime.
//
// A Sampler owns reusable buffers and must not be shared across goroutines.
type Sampler struct {
	n      int
	points [][2]float64 // (lat, lon) pairs, n*n entries
	lat0   []float64
	lon0   []float64
	lat1   []float64
	lon1   []float64
}

// NewSampler returns a sampler with subdivision factor n per edge.
func NewSampler(n int) *Sampler {
	if n < 1 {
		n = 1
	}
	return &Sampler{
		n:      n,
		points: make([][2]float64, n*n),
		lat0:   make([]float64, n),
		lon0:   make([]float64, n),
		lat1:   make([]float64, n),
		lon1:   make([]float64, n),
	}
}

// N returns the subdivision factor.
func (s *Sampler) N() int { return s.n }

// Points returns the n*n interior sample points for the quadrilateral with
// the given index-space vertex coordinates. The returned slice aliases the
// sampler's internal buffer and is overwritten by the next call.
func (s *Sampler) Points(vertLat, vertLon *[4]float64) [][2]float64 {
	divLine(vertLat[0], vertLon[0], vertLat[1], vertLon[1], s.n, s.lat0, s.lon0)
	divLine(vertLat[3], vertLon[3], vertLat[2], vertLon[2], s.n, s.lat1, s.lon1)
	for j := 0; j < s.n; j++ {
		dLat := (s.lat1[j] - s.lat0[j]) / (2.0 * float64(s.n))
		dLon := (s.lon1[j] - s.lon0[j]) / (2.0 * float64(s.n))
		for i := 0; i < s.n; i++ {
			s.points[j*s.n+i] = [2]float64{
				s.lat0[j] + dLat + 2.0*float64(i)*dLat,
				s.lon0[j] + dLon + 2.0*float64(i)*dLon,
			}
		}
	}
	return s.points
}

// divLine subdivides the segment (lat1,lon1)-(lat2,lon2) into n points offset
// by half a sub-step, writing them into lats and lons.
func divLine(lat1, lon1, lat2, lon2 float64, n int, lats, lons []float64) {
	dLat := (lat2 - lat1) / (2.0 * float64(n))
	dLon := (lon2 - lon1) / (2.0 * float64(n))
	for i := 0; i < n; i++ {
		lats[i] = lat1 + dLat + 2.0*float64(i)*dLat
		lons[i] = lon1 + dLon + 2.0*float64(i)*dLon
	}
}
