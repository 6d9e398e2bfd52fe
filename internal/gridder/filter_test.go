package gridder

import (
	"testing"

	"github.com/jacqryan/gridsif/internal/grid"
	"github.com/jacqryan/gridsif/internal/models"
)

var testBounds = grid.Bounds{LatMin: -10, LatMax: 10, LonMin: -20, LonMax: 20}

// quad returns a square footprint's vertex arrays centered at (lat, lon)
// with the given half-width.
func quad(lat, lon, half float32) ([4]float32, [4]float32) {
	return [4]float32{lat - half, lat - half, lat + half, lat + half},
		[4]float32{lon - half, lon + half, lon + half, lon - half}
}

func TestAnyInside(t *testing.T) {
	tests := []struct {
		name string
		lat  []float32
		lon  []float32
		want bool
	}{
		{"one inside", []float32{50, 0}, []float32{50, 0}, true},
		{"all outside", []float32{50, -50}, []float32{50, -50}, false},
		{"on boundary is outside", []float32{10}, []float32{0}, false},
		{"empty granule", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnyInside(tt.lat, tt.lon, testBounds); got != tt.want {
				t.Errorf("AnyInside = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectPixels_Bounds(t *testing.T) {
	tests := []struct {
		name string
		lat  float32
		lon  float32
		half float32
		want bool
	}{
		{"well inside", 0, 0, 0.5, true},
		{"outside north", 20, 0, 0.5, false},
		{"outside east", 0, 30, 0.5, false},
		{"bbox crosses lat max", 9.8, 0, 0.5, false},
		{"bbox touches lat min exactly", -9.5, 0, 0.5, false}, // strict inequality
		{"bbox touches lon max exactly", 0, 19.5, 0.5, false},
		{"just inside all edges", -9.4, 19.4, 0.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vla, vlo := quad(tt.lat, tt.lon, tt.half)
			got := SelectPixels([][4]float32{vla}, [][4]float32{vlo}, nil, nil, testBounds)
			if selected := len(got) == 1; selected != tt.want {
				t.Errorf("selected = %v, want %v", selected, tt.want)
			}
		})
	}
}

func TestSelectPixels_AntimeridianGuard(t *testing.T) {
	// A footprint whose vertex bbox spans >= 50 degrees of longitude is a
	// wrap artifact and must be rejected even when fully inside bounds.
	b := grid.Bounds{LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180}

	vla := [4]float32{0, 0, 1, 1}
	wide := [4]float32{-30, 30, 30, -30}   // span 60
	narrow := [4]float32{-20, 20, 20, -20} // span 40

	if got := SelectPixels([][4]float32{vla}, [][4]float32{wide}, nil, nil, b); len(got) != 0 {
		t.Errorf("wide footprint selected, want rejected")
	}
	if got := SelectPixels([][4]float32{vla}, [][4]float32{narrow}, nil, nil, b); len(got) != 1 {
		t.Errorf("narrow footprint rejected, want selected")
	}
}

func TestSelectPixels_FilterRules(t *testing.T) {
	vla1, vlo1 := quad(0, 0, 0.5)
	vla2, vlo2 := quad(2, 2, 0.5)
	vertLat := [][4]float32{vla1, vla2}
	vertLon := [][4]float32{vlo1, vlo2}
	quality := []float32{0, 1}
	sza := []float32{30, 80}

	tests := []struct {
		name  string
		rules []models.FilterRule
		vals  map[string][]float32
		want  []int
	}{
		{
			name:  "no rules keeps both",
			rules: nil,
			want:  []int{0, 1},
		},
		{
			name:  "equals keeps matching pixel",
			rules: []models.FilterRule{{Variable: "Quality_Flag", Comparator: "==", Threshold: 0}},
			vals:  map[string][]float32{"Quality_Flag": quality},
			want:  []int{0},
		},
		{
			name:  "eq alias works",
			rules: []models.FilterRule{{Variable: "Quality_Flag", Comparator: "eq", Threshold: 1}},
			vals:  map[string][]float32{"Quality_Flag": quality},
			want:  []int{1},
		},
		{
			name:  "less-than is strict",
			rules: []models.FilterRule{{Variable: "SZA", Comparator: "<", Threshold: 80}},
			vals:  map[string][]float32{"SZA": sza},
			want:  []int{0},
		},
		{
			name:  "greater-than is strict",
			rules: []models.FilterRule{{Variable: "SZA", Comparator: "gt", Threshold: 30}},
			vals:  map[string][]float32{"SZA": sza},
			want:  []int{1},
		},
		{
			name: "rules are ANDed",
			rules: []models.FilterRule{
				{Variable: "Quality_Flag", Comparator: "==", Threshold: 1},
				{Variable: "SZA", Comparator: "<", Threshold: 50},
			},
			vals: map[string][]float32{"Quality_Flag": quality, "SZA": sza},
			want: nil,
		},
		{
			name:  "unknown comparator is ignored",
			rules: []models.FilterRule{{Variable: "SZA", Comparator: ">=", Threshold: 80}},
			vals:  map[string][]float32{"SZA": sza},
			want:  []int{0, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectPixels(vertLat, vertLon, tt.vals, tt.rules, testBounds)
			if len(got) != len(tt.want) {
				t.Fatalf("selected %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("selected %v, want %v", got, tt.want)
				}
			}
		})
	}
}
