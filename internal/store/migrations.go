package store

import "fmt"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS rasters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset TEXT NOT NULL,
		lat_min REAL NOT NULL,
		lat_max REAL NOT NULL,
		lon_min REAL NOT NULL,
		lon_max REAL NOT NULL,
		lat_res REAL NOT NULL,
		lon_res REAL NOT NULL,
		subdivision INTEGER NOT NULL,
		variables TEXT NOT NULL,
		num_lat INTEGER NOT NULL,
		num_lon INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS coords (
		raster_id INTEGER NOT NULL REFERENCES rasters(id),
		axis TEXT NOT NULL CHECK (axis IN ('lat', 'lon')),
		idx INTEGER NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (raster_id, axis, idx)
	)`,

	`CREATE TABLE IF NOT EXISTS slices (
		raster_id INTEGER NOT NULL REFERENCES rasters(id),
		time_index INTEGER NOT NULL,
		date TEXT NOT NULL,
		days_since_epoch REAL NOT NULL,
		has_data INTEGER NOT NULL,
		PRIMARY KEY (raster_id, time_index)
	)`,

	`CREATE TABLE IF NOT EXISTS cells (
		raster_id INTEGER NOT NULL,
		time_index INTEGER NOT NULL,
		lon_idx INTEGER NOT NULL,
		lat_idx INTEGER NOT NULL,
		weight REAL NOT NULL,
		PRIMARY KEY (raster_id, time_index, lon_idx, lat_idx)
	)`,

	`CREATE TABLE IF NOT EXISTS cell_values (
		raster_id INTEGER NOT NULL,
		time_index INTEGER NOT NULL,
		lon_idx INTEGER NOT NULL,
		lat_idx INTEGER NOT NULL,
		variable TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (raster_id, time_index, lon_idx, lat_idx, variable)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_cells_slice ON cells (raster_id, time_index)`,
	`CREATE INDEX IF NOT EXISTS idx_cell_values_slice ON cell_values (raster_id, time_index)`,
}

// Migrate creates the raster store schema. Safe to call on every startup.
func (s *Store) Migrate() error {
	for i, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
