package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/obs"
)

// Postgres-backed implementation of the SolutionRepository port.
// Routes live in solution_routes; stops, vehicle and polyline are JSONB.
type PostgresSolutionRepository struct{ DB *sql.DB }

func NewPostgresSolutionRepository(db *sql.DB) *PostgresSolutionRepository {
	return &PostgresSolutionRepository{DB: db}
}

// Insert or replace a solution together with all of its routes.
func (s *PostgresSolutionRepository) SaveSolution(ctx context.Context, sol *domain.Solution) (err error) {
	defer obs.Time(ctx, "solutions.Save")(&err)

	if s.DB == nil {
		return errors.New("postgres solution repository: DB is nil")
	}

	params, err := json.Marshal(sol.Params)
	if err != nil {
		return fmt.Errorf("save solution: encode params: %w", err)
	}
	dropped := sol.Dropped
	if dropped == nil {
		dropped = []int64{}
	}
	droppedRaw, err := json.Marshal(dropped)
	if err != nil {
		return fmt.Errorf("save solution: encode dropped: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save solution: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO solutions (
		id, name, depot_lat, depot_lng, params, dropped, status,
		vehicles_used, total_distance_meters, total_duration_seconds, total_passengers,
		created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		depot_lat = EXCLUDED.depot_lat,
		depot_lng = EXCLUDED.depot_lng,
		params = EXCLUDED.params,
		dropped = EXCLUDED.dropped,
		status = EXCLUDED.status,
		vehicles_used = EXCLUDED.vehicles_used,
		total_distance_meters = EXCLUDED.total_distance_meters,
		total_duration_seconds = EXCLUDED.total_duration_seconds,
		total_passengers = EXCLUDED.total_passengers,
		updated_at = EXCLUDED.updated_at;
	`,
		sol.ID, sol.Name, sol.Depot.Lat, sol.Depot.Lng, params, droppedRaw, sol.Status,
		sol.VehiclesUsed, sol.TotalDistanceMeters, sol.TotalDurationSeconds, sol.TotalPassengers,
		sol.CreatedAt, sol.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save solution %s: upsert: %w", sol.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM solution_routes WHERE solution_id = $1;`, sol.ID); err != nil {
		return fmt.Errorf("save solution %s: clear routes: %w", sol.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO solution_routes (
		solution_id, route_id, position, vehicle, stops, polyline,
		distance_meters, duration_seconds, passengers, degraded, version
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`)
	if err != nil {
		return fmt.Errorf("save solution %s: prepare route insert: %w", sol.ID, err)
	}
	defer stmt.Close()

	for i, r := range sol.Routes {
		vehicle, stops, line, err := encodeRoute(r)
		if err != nil {
			return fmt.Errorf("save solution %s: route %s: %w", sol.ID, r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			sol.ID, r.ID, i, vehicle, stops, line,
			r.DistanceMeters, r.DurationSeconds, r.Passengers, r.Degraded, r.Version,
		); err != nil {
			return fmt.Errorf("save solution %s: insert route %s: %w", sol.ID, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save solution %s: commit tx: %w", sol.ID, err)
	}
	return nil
}

func encodeRoute(r domain.Route) (vehicle, stops, line []byte, err error) {
	if vehicle, err = json.Marshal(r.Vehicle); err != nil {
		return nil, nil, nil, fmt.Errorf("encode vehicle: %w", err)
	}
	st := r.Stops
	if st == nil {
		st = []domain.Stop{}
	}
	if stops, err = json.Marshal(st); err != nil {
		return nil, nil, nil, fmt.Errorf("encode stops: %w", err)
	}
	pl := r.Polyline
	if pl == nil {
		pl = []domain.Coordinates{}
	}
	if line, err = json.Marshal(pl); err != nil {
		return nil, nil, nil, fmt.Errorf("encode polyline: %w", err)
	}
	return vehicle, stops, line, nil
}

const solutionColumns = `
	id, name, depot_lat, depot_lng, params, dropped, status,
	vehicles_used, total_distance_meters, total_duration_seconds, total_passengers,
	created_at, updated_at
`

func scanSolution(r scanner) (*domain.Solution, error) {
	var sol domain.Solution
	var params, dropped []byte
	err := r.Scan(
		&sol.ID, &sol.Name, &sol.Depot.Lat, &sol.Depot.Lng, &params, &dropped, &sol.Status,
		&sol.VehiclesUsed, &sol.TotalDistanceMeters, &sol.TotalDurationSeconds, &sol.TotalPassengers,
		&sol.CreatedAt, &sol.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &sol.Params); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	if len(dropped) > 0 {
		if err := json.Unmarshal(dropped, &sol.Dropped); err != nil {
			return nil, fmt.Errorf("decode dropped: %w", err)
		}
	}
	return &sol, nil
}

// Load a solution and its routes in stored order.
func (s *PostgresSolutionRepository) GetSolution(ctx context.Context, id string) (_ *domain.Solution, err error) {
	defer obs.Time(ctx, "solutions.Get")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres solution repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, "SELECT "+solutionColumns+" FROM solutions WHERE id = $1;", id)
	sol, err := scanSolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("solution %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get solution %s: %w", id, err)
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT route_id, vehicle, stops, polyline, distance_meters, duration_seconds, passengers, degraded, version
	FROM solution_routes
	WHERE solution_id = $1
	ORDER BY position;
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get solution %s: query routes: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.Route
		var vehicle, stops, line []byte
		if err := rows.Scan(&r.ID, &vehicle, &stops, &line,
			&r.DistanceMeters, &r.DurationSeconds, &r.Passengers, &r.Degraded, &r.Version); err != nil {
			return nil, fmt.Errorf("get solution %s: scan route: %w", id, err)
		}
		if err := json.Unmarshal(vehicle, &r.Vehicle); err != nil {
			return nil, fmt.Errorf("get solution %s: decode vehicle: %w", id, err)
		}
		if err := json.Unmarshal(stops, &r.Stops); err != nil {
			return nil, fmt.Errorf("get solution %s: decode stops: %w", id, err)
		}
		if err := json.Unmarshal(line, &r.Polyline); err != nil {
			return nil, fmt.Errorf("get solution %s: decode polyline: %w", id, err)
		}
		sol.Routes = append(sol.Routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get solution %s: row iteration: %w", id, err)
	}

	return sol, nil
}

// Return solution summaries newest first. Routes are not loaded.
func (s *PostgresSolutionRepository) ListSolutions(ctx context.Context) (_ []*domain.Solution, err error) {
	defer obs.Time(ctx, "solutions.List")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres solution repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, "SELECT "+solutionColumns+" FROM solutions ORDER BY created_at DESC, id;")
	if err != nil {
		return nil, fmt.Errorf("list solutions: query solutions table: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Solution, 0, 16)
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("list solutions: scan row: %w", err)
		}
		out = append(out, sol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list solutions: row iteration: %w", err)
	}
	return out, nil
}

// Delete a solution; its routes go with it through the foreign key.
func (s *PostgresSolutionRepository) DeleteSolution(ctx context.Context, id string) error {
	if s.DB == nil {
		return errors.New("postgres solution repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM solutions WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete solution %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete solution %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("solution %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
