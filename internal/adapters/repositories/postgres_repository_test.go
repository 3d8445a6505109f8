package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"os"
	"path/filepath"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/ports"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type passthrough struct{}

func (passthrough) ConvertValue(v any) (driver.Value, error) { return v, nil }

func TestInitSchema_CreatesTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	for _, table := range []string{"employees", "solutions", "solution_routes", "leg_cache", "geocode_cache"} {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ` + table).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_employees_shift`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, InitSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchema_NilDB(t *testing.T) {
	assert.Error(t, InitSchema(context.Background(), nil))
}

func TestSeedEmployeesFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "employees.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": 1, "name": " Ayse ", "lat": 41.01, "lng": 28.97, "shift_id": 3},
		{"id": 2, "name": "Mehmet", "lat": 41.02, "lng": 28.98}
	]`), 0o600))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO employees`)
	prep.ExpectExec().WithArgs(int64(1), "Ayse", 41.01, 28.97, int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(int64(2), "Mehmet", 41.02, 28.98, nil).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := SeedEmployeesFromJSON(context.Background(), db, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedEmployeesFromJSON_RejectsBadRows(t *testing.T) {
	_, err := validateSeeds([]EmployeeSeed{{ID: 1, Name: "x", Lat: 95}})
	assert.Error(t, err)
	_, err = validateSeeds([]EmployeeSeed{{ID: 0, Name: "x"}})
	assert.Error(t, err)
	_, err = validateSeeds([]EmployeeSeed{{ID: 1, Name: "  "}})
	assert.Error(t, err)
}

func TestPostgresEmployeeRepository_ListByIDs(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthrough{}))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT id, name, lat, lng, shift_id FROM employees WHERE id = ANY`).
		WithArgs([]int64{2, 1}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "lat", "lng", "shift_id"}).
			AddRow(int64(1), "Ayse", 41.01, 28.97, int64(3)).
			AddRow(int64(2), "Mehmet", 41.02, 28.98, nil))

	got, err := NewPostgresEmployeeRepository(db).ListEmployees(context.Background(), ports.EmployeeFilter{IDs: []int64{2, 1}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].ShiftID)
	assert.Equal(t, int64(3), *got[0].ShiftID)
	assert.Nil(t, got[1].ShiftID)
	assert.Equal(t, domain.Coordinates{Lat: 41.02, Lng: 28.98}, got[1].Home)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEmployeeRepository_ListByShift(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	shift := int64(7)
	mock.ExpectQuery(`FROM employees WHERE shift_id = \$1 ORDER BY id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "lat", "lng", "shift_id"}))

	got, err := NewPostgresEmployeeRepository(db).ListEmployees(context.Background(), ports.EmployeeFilter{ShiftID: &shift})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEmployeeRepository_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM employees WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "lat", "lng", "shift_id"}))

	_, err = NewPostgresEmployeeRepository(db).GetEmployee(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func sampleSolution() *domain.Solution {
	created := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	return &domain.Solution{
		ID:    "sol-1",
		Name:  "Morning",
		Depot: domain.Coordinates{Lat: 41.0, Lng: 29.0},
		Params: domain.SolveParams{
			MaxWalkingDistance: 200,
			VehicleCounts:      map[string]int{"16-seater": 2},
			MaxTravelTime:      65 * time.Minute,
			RouteType:          domain.RouteToDepot,
		},
		Routes: []domain.Route{{
			ID:      "r-1",
			Vehicle: domain.Vehicle{ID: "16-seater-1", Type: "16-seater", Seats: 16, Capacity: 16},
			Stops: []domain.Stop{{
				ID: 1, Name: "Stop 1", Location: domain.Coordinates{Lat: 41.01, Lng: 29.01}, EmployeeIDs: []int64{1, 2},
			}},
			DistanceMeters:  1234.5678,
			DurationSeconds: 321.125,
			Polyline:        []domain.Coordinates{{Lat: 41.01, Lng: 29.01}, {Lat: 41.0, Lng: 29.0}},
			Passengers:      2,
			Version:         3,
		}},
		Dropped:             []int64{9},
		Status:              domain.StatusFeasible,
		VehiclesUsed:        1,
		TotalDistanceMeters: 1234.5678,
		CreatedAt:           created,
		UpdatedAt:           created,
	}
}

func TestPostgresSolutionRepository_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	sol := sampleSolution()
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO solutions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM solution_routes WHERE solution_id = \$1`).WithArgs("sol-1").WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(`INSERT INTO solution_routes`)
	prep.ExpectExec().
		WithArgs("sol-1", "r-1", 0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 1234.5678, 321.125, 2, false, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPostgresSolutionRepository(db).SaveSolution(context.Background(), sol))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSolutionRepository_SaveRollsBackOnRouteError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO solutions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM solution_routes`).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(`INSERT INTO solution_routes`)
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewPostgresSolutionRepository(db).SaveSolution(context.Background(), sampleSolution())
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSolutionRepository_GetRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	want := sampleSolution()
	params, _ := jsonOf(want.Params)
	dropped, _ := jsonOf(want.Dropped)
	vehicle, stops, line, err := encodeRoute(want.Routes[0])
	require.NoError(t, err)

	mock.ExpectQuery(`FROM solutions WHERE id = \$1`).
		WithArgs("sol-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "depot_lat", "depot_lng", "params", "dropped", "status",
			"vehicles_used", "total_distance_meters", "total_duration_seconds", "total_passengers",
			"created_at", "updated_at",
		}).AddRow("sol-1", "Morning", 41.0, 29.0, params, dropped, domain.StatusFeasible,
			1, 1234.5678, 0.0, 0, want.CreatedAt, want.UpdatedAt))
	r := want.Routes[0]
	mock.ExpectQuery(`FROM solution_routes WHERE solution_id = \$1 ORDER BY position`).
		WithArgs("sol-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"route_id", "vehicle", "stops", "polyline", "distance_meters", "duration_seconds", "passengers", "degraded", "version",
		}).AddRow(r.ID, vehicle, stops, line, r.DistanceMeters, r.DurationSeconds, r.Passengers, r.Degraded, r.Version))

	got, err := NewPostgresSolutionRepository(db).GetSolution(context.Background(), "sol-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSolutionRepository_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM solutions WHERE id = \$1`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewPostgresSolutionRepository(db).GetSolution(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresSolutionRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`DELETE FROM solutions WHERE id = \$1`).WithArgs("sol-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM solutions WHERE id = \$1`).WithArgs("sol-1").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresSolutionRepository(db)
	require.NoError(t, repo.DeleteSolution(context.Background(), "sol-1"))
	assert.ErrorIs(t, repo.DeleteSolution(context.Background(), "sol-1"), domain.ErrNotFound)
}
