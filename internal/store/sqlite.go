// Package store persists gridded rasters in SQLite. The logical layout is a
// 3-D array per variable indexed [time, lon, lat] plus a parallel weight
// array and 1-D lat/lon/time coordinate arrays; only cells that accumulated
// weight are materialized as rows, and reads reconstruct dense slices with
// the fill value.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jacqryan/gridsif/internal/models"
)

// Store wraps the raster database.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RasterMeta describes one gridding run's output raster.
type RasterMeta struct {
	ID          int64
	Dataset     string
	LatMin      float64
	LatMax      float64
	LonMin      float64
	LonMax      float64
	LatRes      float64
	LonRes      float64
	Subdivision int
	Variables   []string
	NumLat      int
	NumLon      int
}

// CreateRaster registers a new output raster and returns its id.
func (s *Store) CreateRaster(m RasterMeta) (int64, error) {
	vars, err := json.Marshal(m.Variables)
	if err != nil {
		return 0, fmt.Errorf("marshal variables: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO rasters (dataset, lat_min, lat_max, lon_min, lon_max, lat_res, lon_res, subdivision, variables, num_lat, num_lon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.Dataset, m.LatMin, m.LatMax, m.LonMin, m.LonMax, m.LatRes, m.LonRes, m.Subdivision, string(vars), m.NumLat, m.NumLon)
	if err != nil {
		return 0, fmt.Errorf("insert raster: %w", err)
	}
	return res.LastInsertId()
}

// GetRaster loads a raster's metadata.
func (s *Store) GetRaster(id int64) (*RasterMeta, error) {
	row := s.db.QueryRow(`
		SELECT id, dataset, lat_min, lat_max, lon_min, lon_max, lat_res, lon_res, subdivision, variables, num_lat, num_lon
		FROM rasters WHERE id = ?
	`, id)

	var m RasterMeta
	var vars string
	err := row.Scan(&m.ID, &m.Dataset, &m.LatMin, &m.LatMax, &m.LonMin, &m.LonMax, &m.LatRes, &m.LonRes, &m.Subdivision, &vars, &m.NumLat, &m.NumLon)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("raster %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vars), &m.Variables); err != nil {
		return nil, fmt.Errorf("unmarshal variables: %w", err)
	}
	return &m, nil
}

// WriteCoords stores one axis's cell-center coordinate array.
func (s *Store) WriteCoords(rasterID int64, axis string, vals []float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO coords (raster_id, axis, idx, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range vals {
		if _, err := stmt.Exec(rasterID, axis, i, v); err != nil {
			return fmt.Errorf("insert coord %s[%d]: %w", axis, i, err)
		}
	}
	return tx.Commit()
}

// ReadCoords returns one axis's coordinate array in index order.
func (s *Store) ReadCoords(rasterID int64, axis string) ([]float64, error) {
	rows, err := s.db.Query(`SELECT value FROM coords WHERE raster_id = ? AND axis = ? ORDER BY idx`, rasterID, axis)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vals []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, rows.Err()
}

// WriteSlice stores one finalized time slice. Only cells with weight at or
// above models.MinWeight become rows; the time coordinate is recorded even
// when the slice is empty.
func (s *Store) WriteSlice(rasterID int64, timeIndex int, sl *models.RasterSlice) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	hasData := sl.HasData()
	_, err = tx.Exec(`
		INSERT INTO slices (raster_id, time_index, date, days_since_epoch, has_data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (raster_id, time_index) DO UPDATE SET
			date = excluded.date,
			days_since_epoch = excluded.days_since_epoch,
			has_data = excluded.has_data
	`, rasterID, timeIndex, sl.Date.Format("2006-01-02"), sl.Days, hasData)
	if err != nil {
		return fmt.Errorf("insert slice: %w", err)
	}

	if !hasData {
		return tx.Commit()
	}

	cellStmt, err := tx.Prepare(`INSERT INTO cells (raster_id, time_index, lon_idx, lat_idx, weight) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cellStmt.Close()

	valStmt, err := tx.Prepare(`INSERT INTO cell_values (raster_id, time_index, lon_idx, lat_idx, variable, value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer valStmt.Close()

	for lonIdx := 0; lonIdx < sl.NumLon; lonIdx++ {
		for latIdx := 0; latIdx < sl.NumLat; latIdx++ {
			cell := sl.Index(lonIdx, latIdx)
			w := sl.Weights[cell]
			if w < models.MinWeight {
				continue
			}
			if _, err := cellStmt.Exec(rasterID, timeIndex, lonIdx, latIdx, w); err != nil {
				return fmt.Errorf("insert cell (%d,%d): %w", lonIdx, latIdx, err)
			}
			for v, name := range sl.Variables {
				if _, err := valStmt.Exec(rasterID, timeIndex, lonIdx, latIdx, name, sl.Values[v][cell]); err != nil {
					return fmt.Errorf("insert value %s (%d,%d): %w", name, lonIdx, latIdx, err)
				}
			}
		}
	}
	return tx.Commit()
}

// WriteEmptySlice records a no-data day: the time coordinate is kept so the
// slice still exists in the output, with zero weight everywhere.
func (s *Store) WriteEmptySlice(rasterID int64, timeIndex int, date time.Time, days float64) error {
	_, err := s.db.Exec(`
		INSERT INTO slices (raster_id, time_index, date, days_since_epoch, has_data)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT (raster_id, time_index) DO UPDATE SET
			date = excluded.date,
			days_since_epoch = excluded.days_since_epoch,
			has_data = 0
	`, rasterID, timeIndex, date.Format("2006-01-02"), days)
	if err != nil {
		return fmt.Errorf("insert empty slice: %w", err)
	}
	return nil
}

// ReadSlice reconstructs one dense time slice: weight zero and the fill
// value everywhere no cell row exists.
func (s *Store) ReadSlice(rasterID int64, timeIndex int) (*models.RasterSlice, error) {
	meta, err := s.GetRaster(rasterID)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`SELECT date, days_since_epoch FROM slices WHERE raster_id = ? AND time_index = ?`, rasterID, timeIndex)
	var dateStr string
	var days float64
	if err := row.Scan(&dateStr, &days); err == sql.ErrNoRows {
		return nil, fmt.Errorf("slice %d of raster %d not found", timeIndex, rasterID)
	} else if err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse slice date: %w", err)
	}

	sl := &models.RasterSlice{
		Date:      date,
		Days:      days,
		NumLon:    meta.NumLon,
		NumLat:    meta.NumLat,
		Variables: meta.Variables,
		Weights:   make([]float64, meta.NumLon*meta.NumLat),
		Values:    make([][]float64, len(meta.Variables)),
	}
	varIdx := make(map[string]int, len(meta.Variables))
	for v, name := range meta.Variables {
		vals := make([]float64, meta.NumLon*meta.NumLat)
		for i := range vals {
			vals[i] = models.FillValue
		}
		sl.Values[v] = vals
		varIdx[name] = v
	}

	cellRows, err := s.db.Query(`SELECT lon_idx, lat_idx, weight FROM cells WHERE raster_id = ? AND time_index = ?`, rasterID, timeIndex)
	if err != nil {
		return nil, err
	}
	defer cellRows.Close()
	for cellRows.Next() {
		var lonIdx, latIdx int
		var w float64
		if err := cellRows.Scan(&lonIdx, &latIdx, &w); err != nil {
			return nil, err
		}
		sl.Weights[sl.Index(lonIdx, latIdx)] = w
	}
	if err := cellRows.Err(); err != nil {
		return nil, err
	}

	valRows, err := s.db.Query(`SELECT lon_idx, lat_idx, variable, value FROM cell_values WHERE raster_id = ? AND time_index = ?`, rasterID, timeIndex)
	if err != nil {
		return nil, err
	}
	defer valRows.Close()
	for valRows.Next() {
		var lonIdx, latIdx int
		var name string
		var val float64
		if err := valRows.Scan(&lonIdx, &latIdx, &name, &val); err != nil {
			return nil, err
		}
		if v, ok := varIdx[name]; ok {
			sl.Values[v][sl.Index(lonIdx, latIdx)] = val
		}
	}
	return sl, valRows.Err()
}

// CountSlices returns how many time slices a raster has.
func (s *Store) CountSlices(rasterID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM slices WHERE raster_id = ?`, rasterID).Scan(&n)
	return n, err
}
