// Package gridder drives the regridding run: per day, it obtains a granule,
// selects footprints inside the grid, folds them into the accumulator, and
// finalizes the day's raster slice. Per-day failures never abort a run; the
// day is recorded as an empty slice and processing continues.
package gridder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/jacqryan/gridsif/internal/granule"
	"github.com/jacqryan/gridsif/internal/grid"
	"github.com/jacqryan/gridsif/internal/metrics"
	"github.com/jacqryan/gridsif/internal/models"
	"github.com/jacqryan/gridsif/internal/schema"
	"github.com/jacqryan/gridsif/internal/store"
)

// DefaultSubdivision is the per-edge sub-sample count used to approximate
// multi-cell footprint overlap.
const DefaultSubdivision = 10

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Config is the full configuration surface of one gridding run.
type Config struct {
	Dataset     string
	Variables   []string
	Start       time.Time
	End         time.Time
	Bounds      grid.Bounds
	LatRes      float64
	LonRes      float64
	Subdivision int // 0 means DefaultSubdivision
	Filters     []models.FilterRule
}

// Gridder owns one run's grid, accumulator, and collaborators. The run is
// strictly sequential across days: the accumulator is reused storage and
// must be drained and reset before the next day begins.
type Gridder struct {
	src    granule.Source
	store  *store.Store
	cfg    Config
	grid   *grid.Grid
	acc    *grid.Accumulator
	schema schema.Schema
}

// New validates the configuration and builds the run's grid and accumulator.
// Configuration errors (invalid resolution, empty variable list, unknown
// dataset) surface here, before any day is processed.
func New(src granule.Source, st *store.Store, cfg Config) (*Gridder, error) {
	if len(cfg.Variables) == 0 {
		return nil, errors.New("gridder: no variables requested")
	}
	if cfg.End.Before(cfg.Start) {
		return nil, fmt.Errorf("gridder: end date %s before start date %s",
			cfg.End.Format("2006-01-02"), cfg.Start.Format("2006-01-02"))
	}
	if cfg.Subdivision == 0 {
		cfg.Subdivision = DefaultSubdivision
	}
	if cfg.Subdivision < 1 {
		return nil, fmt.Errorf("gridder: subdivision factor must be positive, got %d", cfg.Subdivision)
	}

	sch, err := schema.Resolve(cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("gridder: %w", err)
	}

	g, err := grid.New(cfg.Bounds, cfg.LatRes, cfg.LonRes)
	if err != nil {
		return nil, err
	}

	return &Gridder{
		src:    src,
		store:  st,
		cfg:    cfg,
		grid:   g,
		acc:    grid.NewAccumulator(g, len(cfg.Variables), cfg.Subdivision),
		schema: sch,
	}, nil
}

// Run executes the full date range and returns the id of the raster it
// produced. The requested range must lie within the source's coverage; that
// check, like all configuration errors, is fatal before the first day.
func (g *Gridder) Run(ctx context.Context) (int64, error) {
	first, last, err := g.src.TimeRange(ctx, g.cfg.Dataset)
	if err != nil {
		return 0, fmt.Errorf("gridder: source coverage: %w", err)
	}
	if g.cfg.Start.Before(first) || g.cfg.End.After(last) {
		return 0, fmt.Errorf("gridder: requested range %s to %s outside available range %s to %s",
			g.cfg.Start.Format("2006-01-02"), g.cfg.End.Format("2006-01-02"),
			first.Format("2006-01-02"), last.Format("2006-01-02"))
	}

	rasterID, err := g.store.CreateRaster(store.RasterMeta{
		Dataset:     g.cfg.Dataset,
		LatMin:      g.cfg.Bounds.LatMin,
		LatMax:      g.cfg.Bounds.LatMax,
		LonMin:      g.cfg.Bounds.LonMin,
		LonMax:      g.cfg.Bounds.LonMax,
		LatRes:      g.cfg.LatRes,
		LonRes:      g.cfg.LonRes,
		Subdivision: g.cfg.Subdivision,
		Variables:   g.cfg.Variables,
		NumLat:      len(g.grid.LatVals),
		NumLon:      len(g.grid.LonVals),
	})
	if err != nil {
		return 0, fmt.Errorf("gridder: create raster: %w", err)
	}
	if err := g.store.WriteCoords(rasterID, "lat", g.grid.LatVals); err != nil {
		return 0, fmt.Errorf("gridder: write lat coords: %w", err)
	}
	if err := g.store.WriteCoords(rasterID, "lon", g.grid.LonVals); err != nil {
		return 0, fmt.Errorf("gridder: write lon coords: %w", err)
	}

	log.Printf("gridder: output raster %d, dimensions (time/lon/lat): %d/%d/%d",
		rasterID, int(g.cfg.End.Sub(g.cfg.Start).Hours()/24)+1, len(g.grid.LonVals), len(g.grid.LatVals))

	timeIndex := 0
	for d := g.cfg.Start; !d.After(g.cfg.End); d = d.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return rasterID, ctx.Err()
		default:
		}

		outcome := "ok"
		if err := g.processDay(ctx, d); err != nil {
			if errors.Is(err, granule.ErrNotFound) {
				log.Printf("gridder: no data found for %s, skipping", d.Format("2006-01-02"))
				outcome = "empty"
			} else {
				log.Printf("gridder: error processing granule for %s: %v", d.Format("2006-01-02"), err)
				outcome = "error"
			}
		}

		if err := g.finalizeDay(rasterID, timeIndex, d); err != nil {
			// A store failure is not recoverable per-day: it would corrupt
			// the raster, unlike a bad granule.
			return rasterID, fmt.Errorf("gridder: finalize %s: %w", d.Format("2006-01-02"), err)
		}
		if outcome == "ok" && g.acc.MaxWeight() == 0 {
			outcome = "empty"
		}
		metrics.DaysGriddedTotal.WithLabelValues(g.cfg.Dataset, outcome).Inc()

		g.acc.Reset()
		timeIndex++
	}
	return rasterID, nil
}

// processDay fetches and accumulates one day's granule. Any error it returns
// is recovered by the caller: the day becomes an empty (or partial) slice.
func (g *Gridder) processDay(ctx context.Context, d time.Time) error {
	h, err := g.src.Fetch(ctx, g.cfg.Dataset, d)
	if err != nil {
		return err
	}
	defer h.Close()

	lat, err := h.ReadVariable(g.schema.LatField)
	if err != nil {
		return err
	}
	lon, err := h.ReadVariable(g.schema.LonField)
	if err != nil {
		return err
	}
	if len(lon) != len(lat) {
		return fmt.Errorf("center coordinate arrays disagree: %d lat vs %d lon", len(lat), len(lon))
	}
	if !AnyInside(lat, lon, g.grid.Bounds) {
		return nil
	}

	vertLat, err := h.ReadVertexVariable(g.schema.VertexLatField)
	if err != nil {
		return err
	}
	vertLon, err := h.ReadVertexVariable(g.schema.VertexLonField)
	if err != nil {
		return err
	}
	if len(vertLat) != len(lat) || len(vertLon) != len(lat) {
		return fmt.Errorf("vertex arrays disagree with %d pixels: %d lat, %d lon", len(lat), len(vertLat), len(vertLon))
	}

	filterVals := make(map[string][]float32, len(g.cfg.Filters))
	for _, r := range g.cfg.Filters {
		vals, err := h.ReadVariable(r.Variable)
		if err != nil {
			return err
		}
		if len(vals) != len(lat) {
			return fmt.Errorf("filter variable %q has %d values for %d pixels", r.Variable, len(vals), len(lat))
		}
		filterVals[r.Variable] = vals
	}

	selected := SelectPixels(vertLat, vertLon, filterVals, g.cfg.Filters, g.grid.Bounds)
	if len(selected) == 0 {
		return nil
	}
	metrics.FootprintsSelectedTotal.WithLabelValues(g.cfg.Dataset).Add(float64(len(selected)))

	varVals := make([][]float32, len(g.cfg.Variables))
	for i, name := range g.cfg.Variables {
		vals, err := h.ReadVariable(name)
		if err != nil {
			return err
		}
		if len(vals) != len(lat) {
			return fmt.Errorf("variable %q has %d values for %d pixels", name, len(vals), len(lat))
		}
		varVals[i] = vals
	}

	fp := models.Footprint{Values: make([]float64, len(g.cfg.Variables))}
	for _, i := range selected {
		for v := 0; v < 4; v++ {
			fp.VertexLat[v] = g.grid.LatIndex(float64(vertLat[i][v]))
			fp.VertexLon[v] = g.grid.LonIndex(float64(vertLon[i][v]))
		}
		for z := range varVals {
			fp.Values[z] = float64(varVals[z][i])
		}
		switch g.acc.Add(&fp) {
		case grid.AddedSingleCell:
			metrics.FootprintsAccumulatedTotal.WithLabelValues(g.cfg.Dataset, "single_cell").Inc()
		case grid.AddedSubsampled:
			metrics.FootprintsAccumulatedTotal.WithLabelValues(g.cfg.Dataset, "subsampled").Inc()
		case grid.Skipped:
			metrics.FootprintsSkippedTotal.WithLabelValues(g.cfg.Dataset).Inc()
		}
	}
	return nil
}

// finalizeDay writes the day's slice: the weight raster plus per-variable
// means rounded to 6 decimals with the fill value where weight is below
// threshold, or an empty slice when nothing accumulated. The time coordinate
// is recorded either way.
func (g *Gridder) finalizeDay(rasterID int64, timeIndex int, d time.Time) error {
	days := d.Sub(epoch).Hours() / 24

	if g.acc.MaxWeight() == 0 {
		return g.store.WriteEmptySlice(rasterID, timeIndex, d, days)
	}

	numLon, numLat := len(g.grid.LonVals), len(g.grid.LatVals)
	sl := &models.RasterSlice{
		Date:      d,
		Days:      days,
		NumLon:    numLon,
		NumLat:    numLat,
		Variables: g.cfg.Variables,
		Weights:   make([]float64, numLon*numLat),
		Values:    make([][]float64, len(g.cfg.Variables)),
	}
	for v := range sl.Values {
		sl.Values[v] = make([]float64, numLon*numLat)
	}

	for lonIdx := 0; lonIdx < numLon; lonIdx++ {
		for latIdx := 0; latIdx < numLat; latIdx++ {
			cell := sl.Index(lonIdx, latIdx)
			w := g.acc.Weight(lonIdx, latIdx)
			sl.Weights[cell] = w
			for v := range sl.Values {
				if w < models.MinWeight {
					sl.Values[v][cell] = models.FillValue
				} else {
					sl.Values[v][cell] = round6(g.acc.Mean(lonIdx, latIdx, v))
				}
			}
		}
	}
	return g.store.WriteSlice(rasterID, timeIndex, sl)
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
