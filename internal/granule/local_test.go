package granule

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeGranule(t *testing.T, dir, name string, doc granuleDoc) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create granule: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(doc); err != nil {
		t.Fatalf("encode granule: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
}

func TestLocalSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeGranule(t, dir, "oco3_LtSIF_200501_B10309r.json.gz", granuleDoc{
		DateTimeCoverage: "2020-05-01T00:12:55Z",
		Variables: map[string][]float32{
			"Latitude":        {1.5, -3.25},
			"Daily_SIF_757nm": {0.75, 1.5},
		},
		VertexVariables: map[string][][4]float32{
			"Geolocation/footprint_latitude_vertices": {{1.4, 1.4, 1.6, 1.6}, {-3.3, -3.3, -3.2, -3.2}},
		},
	})

	src := NewLocalSource(dir)
	h, err := src.Fetch(context.Background(), "oco3_LtSIF", time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer h.Close()

	d, err := h.Date()
	if err != nil {
		t.Fatalf("Date: %v", err)
	}
	if got := d.Format("2006-01-02"); got != "2020-05-01" {
		t.Errorf("Date = %s, want 2020-05-01", got)
	}

	lat, err := h.ReadVariable("Latitude")
	if err != nil {
		t.Fatalf("ReadVariable: %v", err)
	}
	if len(lat) != 2 || lat[0] != 1.5 {
		t.Errorf("Latitude = %v, want [1.5 -3.25]", lat)
	}

	verts, err := h.ReadVertexVariable("Geolocation/footprint_latitude_vertices")
	if err != nil {
		t.Fatalf("ReadVertexVariable: %v", err)
	}
	if len(verts) != 2 || verts[0][2] != 1.6 {
		t.Errorf("vertex latitudes = %v", verts)
	}

	if _, err := h.ReadVariable("nonexistent"); err == nil {
		t.Error("ReadVariable(nonexistent) returned nil error")
	}
}

func TestLocalSource_FetchNotFound(t *testing.T) {
	src := NewLocalSource(t.TempDir())
	_, err := src.Fetch(context.Background(), "oco3_LtSIF", time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLocalSource_TimeRange(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"oco3_LtSIF_200503_B10309r.json.gz",
		"oco3_LtSIF_200501_B10309r.json.gz",
		"oco3_LtSIF_200512_B10309r.json.gz",
	} {
		writeGranule(t, dir, name, granuleDoc{DateTimeCoverage: "2020-05-01T00:00:00Z"})
	}

	src := NewLocalSource(dir)
	first, last, err := src.TimeRange(context.Background(), "oco3_LtSIF")
	if err != nil {
		t.Fatalf("TimeRange: %v", err)
	}
	if got := first.Format("2006-01-02"); got != "2020-05-01" {
		t.Errorf("first = %s, want 2020-05-01", got)
	}
	if got := last.Format("2006-01-02"); got != "2020-05-12" {
		t.Errorf("last = %s, want 2020-05-12", got)
	}
}

func TestLocalSource_TimeRangeEmpty(t *testing.T) {
	src := NewLocalSource(t.TempDir())
	if _, _, err := src.TimeRange(context.Background(), "oco3_LtSIF"); err == nil {
		t.Fatal("TimeRange on empty dir returned nil error")
	}
}
