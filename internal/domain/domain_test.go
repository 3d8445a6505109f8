package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineEquator(t *testing.T) {
	a := Coordinates{Lat: 0, Lng: 0}
	b := Coordinates{Lat: 0, Lng: 0.0005}
	c := Coordinates{Lat: 0, Lng: 0.01}

	assert.InDelta(t, 55.6, a.DistanceTo(b), 0.5)
	assert.InDelta(t, 1111.9, a.DistanceTo(c), 1)
	assert.Equal(t, 0.0, a.DistanceTo(a))
	assert.InDelta(t, a.DistanceTo(c), c.DistanceTo(a), 1e-9)
}

func TestCoordinatesValid(t *testing.T) {
	assert.True(t, Coordinates{Lat: 45, Lng: 7}.Valid())
	assert.False(t, Coordinates{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Coordinates{Lat: 0, Lng: -181}.Valid())
	assert.False(t, Coordinates{Lat: math.NaN(), Lng: 0}.Valid())
	assert.False(t, Coordinates{Lat: 0, Lng: math.Inf(1)}.Valid())
}

func TestCentroidIsArithmeticMean(t *testing.T) {
	c := Centroid([]Coordinates{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 6}})
	assert.Equal(t, Coordinates{Lat: 2, Lng: 4}, c)
	assert.Equal(t, Coordinates{}, Centroid(nil))
}

func TestTrafficMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, TrafficNone.Multiplier())
	assert.Equal(t, 1.4, TrafficMorning.Multiplier())
	assert.Equal(t, 1.6, TrafficEvening.Multiplier())

	_, err := ParseTrafficMode("rush")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseRouteType(t *testing.T) {
	rt, err := ParseRouteType("")
	require.NoError(t, err)
	assert.Equal(t, RouteRing, rt)
	assert.True(t, rt.StartsAtDepot())
	assert.True(t, rt.EndsAtDepot())

	rt, err = ParseRouteType("TO_HOME")
	require.NoError(t, err)
	assert.True(t, rt.StartsAtDepot())
	assert.False(t, rt.EndsAtDepot())

	rt, err = ParseRouteType("to_depot")
	require.NoError(t, err)
	assert.False(t, rt.StartsAtDepot())
	assert.True(t, rt.EndsAtDepot())
}

func TestEffectiveCapacity(t *testing.T) {
	assert.Equal(t, 14, EffectiveCapacity(16, 2))
	assert.Equal(t, 1, EffectiveCapacity(2, 5))
}

func TestSolutionRecomputeAndClone(t *testing.T) {
	sol := &Solution{
		Routes: []Route{
			{ID: "r1", DistanceMeters: 1000, DurationSeconds: 100, Passengers: 3,
				Stops: []Stop{{ID: 1, EmployeeIDs: []int64{1, 2}}, {ID: 4, EmployeeIDs: []int64{3}}}},
			{ID: "r2"},
		},
		Dropped: []int64{9},
		Params:  SolveParams{VehicleCounts: map[string]int{"16-seater": 2}},
	}
	sol.Recompute()

	assert.Equal(t, 1, sol.VehiclesUsed)
	assert.Equal(t, 1000.0, sol.TotalDistanceMeters)
	assert.Equal(t, 3, sol.TotalPassengers)
	assert.Equal(t, 5, sol.NextStopID())
	assert.Equal(t, 0, sol.RouteOf(3))
	assert.Equal(t, -1, sol.RouteOf(9))
	assert.True(t, sol.IsDropped(9))

	cp := sol.Clone()
	cp.Routes[0].Stops[0].EmployeeIDs[0] = 42
	cp.Params.VehicleCounts["16-seater"] = 7
	cp.Undrop(9)

	assert.Equal(t, int64(1), sol.Routes[0].Stops[0].EmployeeIDs[0])
	assert.Equal(t, 2, sol.Params.VehicleCounts["16-seater"])
	assert.True(t, sol.IsDropped(9))
	assert.False(t, cp.IsDropped(9))
}
