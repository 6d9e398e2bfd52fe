package schema

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		dataset  string
		wantName string
		wantLat  string
	}{
		{"oco3 sif by dataset id", "OCO3_L2_Lite_SIF.11r", "oco-lite-sif", "Latitude"},
		{"oco2 sif by dataset id", "OCO2_L2_Lite_SIF.10r", "oco-lite-sif", "Latitude"},
		{"oco3 sif by file prefix", "oco3_LtSIF_200501_B10309r.json.gz", "oco-lite-sif", "Latitude"},
		{"oco2 fp by dataset id", "OCO2_L2_Lite_FP.11.1r", "oco-lite-fp", "latitude"},
		{"oco2 fp by file prefix", "oco2_LtCO2_200501_B11100Ar", "oco-lite-fp", "latitude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Resolve(tt.dataset)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.dataset, err)
			}
			if s.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", s.Name, tt.wantName)
			}
			if s.LatField != tt.wantLat {
				t.Errorf("LatField = %q, want %q", s.LatField, tt.wantLat)
			}
		})
	}
}

func TestResolve_Unknown(t *testing.T) {
	_, err := Resolve("TROPOMI_L2_CH4")
	if !errors.Is(err, ErrUnknownDataset) {
		t.Fatalf("err = %v, want ErrUnknownDataset", err)
	}
}
