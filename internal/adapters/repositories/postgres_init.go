package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Initialize the Postgres database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createEmployeesQuery := `
	CREATE TABLE IF NOT EXISTS employees (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		shift_id BIGINT
	);
	`

	createSolutionsQuery := `
	CREATE TABLE IF NOT EXISTS solutions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		depot_lat DOUBLE PRECISION NOT NULL,
		depot_lng DOUBLE PRECISION NOT NULL,
		params JSONB NOT NULL,
		dropped JSONB NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		vehicles_used INTEGER NOT NULL,
		total_distance_meters DOUBLE PRECISION NOT NULL,
		total_duration_seconds DOUBLE PRECISION NOT NULL,
		total_passengers INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS solution_routes (
		solution_id TEXT NOT NULL REFERENCES solutions(id) ON DELETE CASCADE,
		route_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		vehicle JSONB NOT NULL,
		stops JSONB NOT NULL,
		polyline JSONB NOT NULL,
		distance_meters DOUBLE PRECISION NOT NULL,
		duration_seconds DOUBLE PRECISION NOT NULL,
		passengers INTEGER NOT NULL,
		degraded BOOLEAN NOT NULL DEFAULT FALSE,
		version INTEGER NOT NULL,
		PRIMARY KEY (solution_id, route_id)
	);
	`

	createLegCacheQuery := `
	CREATE TABLE IF NOT EXISTS leg_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_meters DOUBLE PRECISION NOT NULL,
		duration_seconds DOUBLE PRECISION NOT NULL,
		polyline JSONB NOT NULL,
		PRIMARY KEY (origin, destination)
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_employees_shift
	ON employees(shift_id);
	`

	statements := []string{
		createEmployeesQuery,
		createSolutionsQuery,
		createRoutesQuery,
		createLegCacheQuery,
		createGeocodeCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type EmployeeSeed struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	ShiftID *int64  `json:"shift_id,omitempty"`
}

// Populate the employees table from a JSON file. Existing rows are updated.
func SeedEmployeesFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	rows, err := readSeeds(jsonPath)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed employees: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO employees (id, name, lat, lng, shift_id)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		shift_id = EXCLUDED.shift_id;
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("seed employees: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range rows {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Name, e.Lat, e.Lng, e.ShiftID); err != nil {
			return 0, fmt.Errorf("seed employees: insert id=%d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed employees: commit tx: %w", err)
	}

	return len(rows), nil
}

func readSeeds(jsonPath string) ([]EmployeeSeed, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed employees: read %q: %w", jsonPath, err)
	}

	var data []EmployeeSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed employees: parse json: %w", err)
	}

	return validateSeeds(data)
}

func validateSeeds(data []EmployeeSeed) ([]EmployeeSeed, error) {
	rows := make([]EmployeeSeed, 0, len(data))
	for i, item := range data {
		if item.ID <= 0 {
			return nil, fmt.Errorf("seed employees: invalid id at index %d: %d", i+1, item.ID)
		}
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, fmt.Errorf("seed employees: item at index %d: name cannot be empty", i+1)
		}
		if item.Lat < -90 || item.Lat > 90 || item.Lng < -180 || item.Lng > 180 {
			return nil, fmt.Errorf("seed employees: item at index %d: coordinates out of range", i+1)
		}
		item.Name = name
		rows = append(rows, item)
	}
	return rows, nil
}
