package grid

import (
	"math"
	"testing"
)

func TestSamplerPoints_UnitSquare(t *testing.T) {
	// Unit square in index space, vertices ordered so 0-1 and 3-2 are
	// opposing edges.
	vertLat := [4]float64{0, 0, 1, 1}
	vertLon := [4]float64{0, 1, 1, 0}

	s := NewSampler(2)
	pts := s.Points(&vertLat, &vertLon)

	if len(pts) != 4 {
		t.Fatalf("len(pts) = %d, want 4", len(pts))
	}
	// Half-step convention: 2x2 samples sit at sub-cell centers 0.25/0.75.
	want := map[[2]float64]bool{
		{0.25, 0.25}: false,
		{0.25, 0.75}: false,
		{0.75, 0.25}: false,
		{0.75, 0.75}: false,
	}
	for _, p := range pts {
		key := [2]float64{math.Round(p[0]*1e9) / 1e9, math.Round(p[1]*1e9) / 1e9}
		seen, ok := want[key]
		if !ok {
			t.Fatalf("unexpected sample point %v", p)
		}
		if seen {
			t.Fatalf("duplicate sample point %v", p)
		}
		want[key] = true
	}
}

func TestSamplerPoints_CountAndInterior(t *testing.T) {
	// Irregular but convex quad; with the documented 0-1/3-2 edge ordering
	// every sample must land strictly inside the quad's bounding box.
	vertLat := [4]float64{2.0, 2.3, 5.1, 4.8}
	vertLon := [4]float64{10.0, 13.2, 13.5, 10.4}

	for _, n := range []int{1, 3, 10} {
		s := NewSampler(n)
		pts := s.Points(&vertLat, &vertLon)
		if len(pts) != n*n {
			t.Fatalf("n=%d: len(pts) = %d, want %d", n, len(pts), n*n)
		}
		for _, p := range pts {
			if p[0] <= 2.0 || p[0] >= 5.1 || p[1] <= 10.0 || p[1] >= 13.5 {
				t.Fatalf("n=%d: sample %v outside footprint bbox", n, p)
			}
		}
	}
}

func TestSamplerPoints_DegenerateQuad(t *testing.T) {
	// All vertices coincident: every sample collapses to the same point.
	vertLat := [4]float64{1.5, 1.5, 1.5, 1.5}
	vertLon := [4]float64{2.5, 2.5, 2.5, 2.5}

	s := NewSampler(4)
	for _, p := range s.Points(&vertLat, &vertLon) {
		if p[0] != 1.5 || p[1] != 2.5 {
			t.Fatalf("degenerate quad sample = %v, want (1.5, 2.5)", p)
		}
	}
}

func TestSamplerPoints_BufferReuse(t *testing.T) {
	a := [4]float64{0, 0, 1, 1}
	b := [4]float64{0, 1, 1, 0}
	s := NewSampler(2)

	first := s.Points(&a, &b)
	got := first[0]

	shifted := [4]float64{10, 10, 11, 11}
	s.Points(&shifted, &b)
	if first[0] == got {
		t.Fatal("Points did not overwrite its buffer; callers must not retain results across calls")
	}
}
