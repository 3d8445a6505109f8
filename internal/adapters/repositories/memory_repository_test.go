package repositories

import (
	"context"
	"encoding/json"
	"os"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/ports"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonOf(v any) ([]byte, error) { return json.Marshal(v) }

func TestMemoryEmployeeRepository_Filters(t *testing.T) {
	morning := int64(1)
	repo := NewMemoryEmployeeRepository([]domain.Employee{
		{ID: 3, Name: "c"},
		{ID: 1, Name: "a", ShiftID: &morning},
		{ID: 2, Name: "b"},
	})
	ctx := context.Background()

	all, err := repo.ListEmployees(ctx, ports.EmployeeFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, idsOf(all))

	byIDs, err := repo.ListEmployees(ctx, ports.EmployeeFilter{IDs: []int64{3, 99, 1, 3}, ShiftID: &morning})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, idsOf(byIDs))

	byShift, err := repo.ListEmployees(ctx, ports.EmployeeFilter{ShiftID: &morning})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, idsOf(byShift))

	_, err = repo.GetEmployee(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func idsOf(emps []domain.Employee) []int64 {
	out := make([]int64, len(emps))
	for i, e := range emps {
		out[i] = e.ID
	}
	return out
}

func TestMemorySolutionRepository_IsolatesCallers(t *testing.T) {
	repo := NewMemorySolutionRepository()
	ctx := context.Background()

	sol := sampleSolution()
	require.NoError(t, repo.SaveSolution(ctx, sol))

	sol.Routes[0].Stops[0].EmployeeIDs[0] = 77
	got, err := repo.GetSolution(ctx, "sol-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Routes[0].Stops[0].EmployeeIDs[0])

	got.Routes[0].DistanceMeters = 1
	again, err := repo.GetSolution(ctx, "sol-1")
	require.NoError(t, err)
	assert.Equal(t, 1234.5678, again.Routes[0].DistanceMeters)
}

func TestMemorySolutionRepository_ListNewestFirst(t *testing.T) {
	repo := NewMemorySolutionRepository()
	ctx := context.Background()

	older := sampleSolution()
	newer := sampleSolution()
	newer.ID = "sol-2"
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	require.NoError(t, repo.SaveSolution(ctx, older))
	require.NoError(t, repo.SaveSolution(ctx, newer))

	list, err := repo.ListSolutions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "sol-2", list[0].ID)
	assert.Nil(t, list[0].Routes)

	require.NoError(t, repo.DeleteSolution(ctx, "sol-2"))
	assert.ErrorIs(t, repo.DeleteSolution(ctx, "sol-2"), domain.ErrNotFound)
	_, err = repo.GetSolution(ctx, "sol-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemorySolutionRepository_RejectsMissingID(t *testing.T) {
	err := NewMemorySolutionRepository().SaveSolution(context.Background(), &domain.Solution{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadEmployeeSeeds(t *testing.T) {
	path := t.TempDir() + "/employees.json"
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": 4, "name": "Zeynep", "lat": 41.05, "lng": 29.01, "shift_id": 2}]`), 0o600))

	got, err := LoadEmployeeSeeds(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.Coordinates{Lat: 41.05, Lng: 29.01}, got[0].Home)
	require.NotNil(t, got[0].ShiftID)
	assert.Equal(t, int64(2), *got[0].ShiftID)

	_, err = LoadEmployeeSeeds(t.TempDir() + "/missing.json")
	assert.Error(t, err)
}
