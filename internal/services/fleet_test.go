package services

import (
	"context"
	"errors"
	"shuttle-route-service/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFleet = []domain.VehicleType{
	{Name: "16-seater", Seats: 16},
	{Name: "27-seater", Seats: 27},
}

func stopWith(id int, n int, lat, lng float64) domain.Stop {
	s := domain.Stop{ID: id, Location: domain.Coordinates{Lat: lat, Lng: lng}}
	for k := 0; k < n; k++ {
		s.EmployeeIDs = append(s.EmployeeIDs, int64(id*100+k))
	}
	return s
}

func TestFleetModel_SixteenSeaterCannotCarryTwenty(t *testing.T) {
	fleet := NewFleetModel(testFleet)
	stops := []domain.Stop{stopWith(1, 12, 41.0, 29.0), stopWith(2, 8, 41.01, 29.0)}
	counts := map[string]int{"16-seater": 1}

	check, err := fleet.Validate(stops, counts, 0)
	require.NoError(t, err)
	assert.False(t, check.Feasible)
	assert.Equal(t, 16, check.TotalCapacity)
	assert.Equal(t, 20, check.TotalDemand)

	vehicles, err := fleet.Vehicles(counts, 0, domain.PriorityAuto)
	require.NoError(t, err)

	_, err = NewRouteSolver(CheapestInsertion{}).Solve(context.Background(), SolveProblem{
		Stops:     stops,
		Vehicles:  vehicles,
		Durations: [][]float64{{0, 60, 60}, {60, 0, 60}, {60, 60, 0}},
		TimeLimit: time.Second,
	})
	var capErr *domain.InfeasibleCapacityError
	require.True(t, errors.As(err, &capErr), "got %v", err)
	assert.Equal(t, 16, capErr.Capacity)
	assert.Equal(t, 20, capErr.Demand)
}

func TestFleetModel_BufferReducesCapacity(t *testing.T) {
	fleet := NewFleetModel(testFleet)
	stops := []domain.Stop{stopWith(1, 15, 0, 0)}

	check, err := fleet.Validate(stops, map[string]int{"16-seater": 1}, 2)
	require.NoError(t, err)
	assert.False(t, check.Feasible)
	assert.Equal(t, 14, check.TotalCapacity)
}

func TestFleetModel_VehicleOrderAndPreference(t *testing.T) {
	fleet := NewFleetModel(testFleet)
	counts := map[string]int{"16-seater": 2, "27-seater": 1}

	large, err := fleet.Vehicles(counts, 1, domain.PriorityLarge)
	require.NoError(t, err)
	require.Len(t, large, 3)
	assert.Equal(t, "27-seater-1", large[0].ID)
	assert.Equal(t, 26, large[0].Capacity)
	assert.True(t, large[0].Preferred)
	assert.False(t, large[1].Preferred)

	small, err := fleet.Vehicles(counts, 0, domain.PrioritySmall)
	require.NoError(t, err)
	assert.Equal(t, "16-seater-1", small[0].ID)
	assert.True(t, small[0].Preferred)
	assert.True(t, small[1].Preferred)
	assert.False(t, small[2].Preferred)

	auto, err := fleet.Vehicles(counts, 0, domain.PriorityAuto)
	require.NoError(t, err)
	for _, v := range auto {
		assert.False(t, v.Preferred)
	}
}

func TestFleetModel_RejectsUnknownTypeAndNegativeCounts(t *testing.T) {
	fleet := NewFleetModel(testFleet)

	_, err := fleet.Validate(nil, map[string]int{"minibus": 1}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = fleet.Vehicles(map[string]int{"16-seater": -1}, 0, domain.PriorityAuto)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = fleet.Validate(nil, map[string]int{"16-seater": 1}, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
