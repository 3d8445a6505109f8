package services

import (
	"context"
	"errors"
	"math/rand"
	"shuttle-route-service/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// straightDurations builds a duration matrix over depot + stops at 10 m/s.
func straightDurations(depot domain.Coordinates, stops []domain.Stop) [][]float64 {
	pts := append([]domain.Coordinates{depot}, locations(stops)...)
	out := make([][]float64, len(pts))
	for i := range pts {
		out[i] = make([]float64, len(pts))
		for j := range pts {
			out[i][j] = pts[i].DistanceTo(pts[j]) / 10
		}
	}
	return out
}

func locations(stops []domain.Stop) []domain.Coordinates {
	out := make([]domain.Coordinates, len(stops))
	for i, s := range stops {
		out[i] = s.Location
	}
	return out
}

func randomProblem(seed int64, n int) SolveProblem {
	rng := rand.New(rand.NewSource(seed))
	depot := domain.Coordinates{Lat: 41.0, Lng: 29.0}
	stops := make([]domain.Stop, n)
	for k := range stops {
		stops[k] = stopWith(k+1, 1+rng.Intn(2), 41.0+rng.Float64()*0.01, 29.0+rng.Float64()*0.01)
	}
	vehicles := []domain.Vehicle{
		{ID: "a", Capacity: 10, Preferred: true},
		{ID: "b", Capacity: 10},
		{ID: "c", Capacity: 10},
	}
	return SolveProblem{
		Stops:         stops,
		Vehicles:      vehicles,
		Durations:     straightDurations(depot, stops),
		RouteType:     domain.RouteRing,
		MaxTravelTime: 1800,
		TimeLimit:     500 * time.Millisecond,
		Seed:          seed,
	}
}

func strategies() []Strategy {
	return []Strategy{
		CheapestInsertion{},
		NearestNeighbor{},
		&ALNS{StallIterations: 300},
	}
}

func TestRouteSolver_EveryStopOnceWithinCapacityAndTime(t *testing.T) {
	for _, s := range strategies() {
		t.Run(s.Name(), func(t *testing.T) {
			p := randomProblem(7, 12)
			routes, err := NewRouteSolver(s).Solve(context.Background(), p)
			require.NoError(t, err)

			seen := map[int]int{}
			for _, r := range routes {
				require.NotEmpty(t, r.StopIDs)
				load := 0
				span := 0.0
				for k, id := range r.StopIDs {
					seen[id]++
					load += p.Stops[id-1].EmployeeCount()
					if k > 0 {
						span += p.Durations[r.StopIDs[k-1]][id]
					}
				}
				assert.LessOrEqual(t, load, r.Vehicle.Capacity)
				assert.LessOrEqual(t, span, p.MaxTravelTime+timeEpsilon)
			}
			assert.Len(t, seen, len(p.Stops))
			for id, n := range seen {
				assert.Equal(t, 1, n, "stop %d", id)
			}
		})
	}
}

func TestRouteSolver_TravelTimeCause(t *testing.T) {
	stops := []domain.Stop{stopWith(1, 1, 0, 0), stopWith(2, 1, 0, 0)}
	p := SolveProblem{
		Stops:         stops,
		Vehicles:      []domain.Vehicle{{ID: "v", Capacity: 10}},
		Durations:     [][]float64{{0, 100, 100}, {100, 0, 1000}, {100, 1000, 0}},
		MaxTravelTime: 500,
		TimeLimit:     200 * time.Millisecond,
	}

	for _, s := range strategies() {
		_, err := NewRouteSolver(s).Solve(context.Background(), p)
		var nf *domain.NoFeasibleSolutionError
		require.True(t, errors.As(err, &nf), "%s: got %v", s.Name(), err)
		assert.Equal(t, domain.CauseTravelTime, nf.Cause)
		assert.Len(t, nf.Unassigned, 1)
	}

	// a second vehicle resolves it
	p.Vehicles = append(p.Vehicles, domain.Vehicle{ID: "w", Capacity: 10})
	routes, err := NewRouteSolver(CheapestInsertion{}).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, routes, 2)
}

func TestRouteSolver_CapacityCause(t *testing.T) {
	stops := []domain.Stop{stopWith(1, 2, 0, 0), stopWith(2, 2, 0, 0), stopWith(3, 2, 0, 0)}
	d := make([][]float64, 4)
	for i := range d {
		d[i] = []float64{10, 10, 10, 10}
		d[i][i] = 0
	}
	p := SolveProblem{
		Stops:     stops,
		Vehicles:  []domain.Vehicle{{ID: "a", Capacity: 3}, {ID: "b", Capacity: 3}},
		Durations: d,
		TimeLimit: 200 * time.Millisecond,
	}

	_, err := NewRouteSolver(&ALNS{StallIterations: 100}).Solve(context.Background(), p)
	var nf *domain.NoFeasibleSolutionError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, domain.CauseCapacity, nf.Cause)
}

func TestRouteSolver_StopLargerThanAnyVehicle(t *testing.T) {
	p := SolveProblem{
		Stops:     []domain.Stop{stopWith(5, 20, 0, 0)},
		Vehicles:  []domain.Vehicle{{Capacity: 16}, {Capacity: 16}},
		Durations: [][]float64{{0, 1}, {1, 0}},
	}
	_, err := NewRouteSolver(nil).Solve(context.Background(), p)
	var capErr *domain.InfeasibleCapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 5, capErr.StopID)
}

func TestRouteSolver_RejectsBadMatrix(t *testing.T) {
	p := SolveProblem{
		Stops:     []domain.Stop{stopWith(1, 1, 0, 0)},
		Vehicles:  []domain.Vehicle{{Capacity: 16}},
		Durations: [][]float64{{0}},
	}
	_, err := NewRouteSolver(nil).Solve(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRouteSolver_NoStops(t *testing.T) {
	routes, err := NewRouteSolver(nil).Solve(context.Background(), SolveProblem{
		Vehicles:  []domain.Vehicle{{Capacity: 16}},
		Durations: [][]float64{{0}},
	})
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestRouteSolver_PrefersFillingOneVehicle(t *testing.T) {
	p := randomProblem(3, 6)
	routes, err := NewRouteSolver(&ALNS{StallIterations: 200}).Solve(context.Background(), p)
	require.NoError(t, err)
	// demand is at most 12 and a second vehicle costs far more than any detour
	assert.LessOrEqual(t, len(routes), 2)
	assert.Equal(t, "a", routes[0].Vehicle.ID)
}

func TestRouteSolver_ALNSNotWorseThanConstruction(t *testing.T) {
	p := randomProblem(11, 15)
	in, err := newInstance(p)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	base := CheapestInsertion{}.Search(in, time.Now().Add(time.Second), rng)
	improved := (&ALNS{StallIterations: 300}).Search(in, time.Now().Add(time.Second), rng)
	assert.LessOrEqual(t, in.cost(improved), in.cost(base)+1e-6)
}

func TestRouteSolver_OpenRoutesIgnoreOneDepotLeg(t *testing.T) {
	in := &instance{
		dur:       [][]float64{{0, 5, 9}, {7, 0, 3}, {11, 4, 0}},
		demand:    []int{0, 1, 1},
		routeType: domain.RouteToDepot,
	}
	assert.Equal(t, 3.0+11, in.routeCost([]int{1, 2}))

	in.routeType = domain.RouteToHome
	assert.Equal(t, 5.0+3, in.routeCost([]int{1, 2}))

	in.routeType = domain.RouteRing
	assert.Equal(t, 5.0+3+11, in.routeCost([]int{1, 2}))
	assert.Equal(t, 3.0, in.span([]int{1, 2}))
}

func TestStrategyByName(t *testing.T) {
	for _, name := range []string{"", "alns", "cheapest_insertion", "nearest_neighbor"} {
		s, err := StrategyByName(name)
		require.NoError(t, err)
		if name != "" {
			assert.Equal(t, name, s.Name())
		}
	}
	_, err := StrategyByName("tabu")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
