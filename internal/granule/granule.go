// Package granule provides access to decoded L2 granules: one Handle
// abstraction over the per-variable arrays the gridder reads, with Source
// implementations for a local directory, an HTTP archive, and an FTP archive.
//
// The reference container is a gzip-compressed JSON document; all three
// sources share its decoder. Which implementation backs a Handle is the
// source's concern, never the engine's.
package granule

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned by Fetch when no granule exists for the requested
// date. Callers treat it as a recoverable per-day condition.
var ErrNotFound = errors.New("granule not found")

// Handle exposes one decoded granule. Handles are read-only and must be
// closed after the day's processing.
type Handle interface {
	// Date returns the granule's observation date from its metadata.
	Date() (time.Time, error)
	// ReadVariable returns a per-pixel scalar array.
	ReadVariable(name string) ([]float32, error)
	// ReadVertexVariable returns a per-pixel array of four footprint
	// vertex coordinates.
	ReadVertexVariable(name string) ([][4]float32, error)
	Close() error
}

// Source yields one granule per requested date for a dataset.
type Source interface {
	// Fetch returns the granule covering date d, or an error wrapping
	// ErrNotFound when the archive has no data for that day.
	Fetch(ctx context.Context, dataset string, d time.Time) (Handle, error)
	// TimeRange reports the first and last dates the source has coverage
	// for. The orchestrator queries it once before starting a run.
	TimeRange(ctx context.Context, dataset string) (time.Time, time.Time, error)
}

// granuleDoc is the on-the-wire granule container.
type granuleDoc struct {
	DateTimeCoverage string                  `json:"date_time_coverage"`
	Variables        map[string][]float32    `json:"variables"`
	VertexVariables  map[string][][4]float32 `json:"vertex_variables"`
}

// docHandle is a fully decoded in-memory granule.
type docHandle struct {
	doc granuleDoc
}

func (h *docHandle) Date() (time.Time, error) {
	datePart, _, _ := strings.Cut(h.doc.DateTimeCoverage, "T")
	d, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse granule date %q: %w", h.doc.DateTimeCoverage, err)
	}
	return d, nil
}

func (h *docHandle) ReadVariable(name string) ([]float32, error) {
	vals, ok := h.doc.Variables[name]
	if !ok {
		return nil, fmt.Errorf("variable %q not present in granule", name)
	}
	return vals, nil
}

func (h *docHandle) ReadVertexVariable(name string) ([][4]float32, error) {
	vals, ok := h.doc.VertexVariables[name]
	if !ok {
		return nil, fmt.Errorf("vertex variable %q not present in granule", name)
	}
	return vals, nil
}

func (h *docHandle) Close() error { return nil }

// decode reads a gzip JSON granule document into an in-memory handle.
func decode(r io.Reader) (Handle, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("granule gzip: %w", err)
	}
	defer gz.Close()

	var doc granuleDoc
	if err := json.NewDecoder(gz).Decode(&doc); err != nil {
		return nil, fmt.Errorf("granule decode: %w", err)
	}
	return &docHandle{doc: doc}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// granuleName is the canonical archive file name for a dataset's granule on
// date d: <dataset>_<yymmdd>.json.gz.
func granuleName(dataset string, d time.Time) string {
	return fmt.Sprintf("%s_%s.json.gz", dataset, d.Format("060102"))
}
