package services

import (
	"context"
	"shuttle-route-service/internal/adapters/distance"
	"shuttle-route-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	depotD = domain.Coordinates{Lat: 41.00, Lng: 29.00}
	stopA  = domain.Coordinates{Lat: 41.01, Lng: 29.00}
	stopB  = domain.Coordinates{Lat: 41.02, Lng: 29.00}
	stopC  = domain.Coordinates{Lat: 41.03, Lng: 29.00}
)

// legTable gives every directed pair among D, A, B, C a fixed leg.
func legTable() []distance.MockPair {
	pts := map[string]domain.Coordinates{"D": depotD, "A": stopA, "B": stopB, "C": stopC}
	meters := map[string]float64{
		"DA": 1000, "DB": 2100, "DC": 3200,
		"AB": 1100, "AC": 2000, "BC": 1050,
	}
	var pairs []distance.MockPair
	for key, m := range meters {
		a, b := pts[key[:1]], pts[key[1:]]
		pairs = append(pairs,
			distance.MockPair{From: a, To: b, Meters: m, Seconds: m / 10, Polyline: []domain.Coordinates{a, b}},
			distance.MockPair{From: b, To: a, Meters: m + 50, Seconds: (m + 50) / 10, Polyline: []domain.Coordinates{b, a}},
		)
	}
	return pairs
}

func TestRouteGeometry_RingSumsLegs(t *testing.T) {
	g := NewRouteGeometryService(distance.NewMockDistanceProvider(legTable()))
	stops := []domain.Stop{
		{ID: 1, Location: stopA, EmployeeIDs: []int64{1}},
		{ID: 2, Location: stopB, EmployeeIDs: []int64{2}},
	}

	pr, err := g.Price(context.Background(), depotD, stops, domain.RouteRing, 1)
	require.NoError(t, err)

	// D->A 1000, A->B 1100, B->D 2150
	assert.Equal(t, 4250.0, pr.DistanceMeters)
	assert.Equal(t, 425.0, pr.DurationSeconds)
	assert.Len(t, pr.Legs, 3)
	assert.False(t, pr.Degraded)
	assert.Equal(t, []domain.Coordinates{depotD, stopA, stopB, depotD}, pr.Polyline)

	// remaining distance back to the depot after each stop
	assert.Equal(t, 3250.0, pr.Stops[0].DepotDistanceMeters)
	assert.Equal(t, 2150.0, pr.Stops[1].DepotDistanceMeters)
	// input is not modified
	assert.Zero(t, stops[0].DepotDistanceMeters)
}

func TestRouteGeometry_OpenRouteTypes(t *testing.T) {
	g := NewRouteGeometryService(distance.NewMockDistanceProvider(legTable()))
	stops := []domain.Stop{{ID: 1, Location: stopA}, {ID: 2, Location: stopB}}

	toDepot, err := g.Price(context.Background(), depotD, stops, domain.RouteToDepot, 1)
	require.NoError(t, err)
	// A->B 1100, B->D 2150
	assert.Equal(t, 3250.0, toDepot.DistanceMeters)
	assert.Len(t, toDepot.Legs, 2)
	assert.Equal(t, 3250.0, toDepot.Stops[0].DepotDistanceMeters)
	assert.Equal(t, 2150.0, toDepot.Stops[1].DepotDistanceMeters)

	toHome, err := g.Price(context.Background(), depotD, stops, domain.RouteToHome, 1)
	require.NoError(t, err)
	// D->A 1000, A->B 1100
	assert.Equal(t, 2100.0, toHome.DistanceMeters)
	assert.Equal(t, 1000.0, toHome.Stops[0].DepotDistanceMeters)
	assert.Equal(t, 2100.0, toHome.Stops[1].DepotDistanceMeters)
}

func TestRouteGeometry_Idempotent(t *testing.T) {
	g := NewRouteGeometryService(distance.NewMockDistanceProvider(legTable()))
	stops := []domain.Stop{{ID: 1, Location: stopC}, {ID: 2, Location: stopA}, {ID: 3, Location: stopB}}

	first, err := g.Price(context.Background(), depotD, stops, domain.RouteRing, 1.4)
	require.NoError(t, err)
	second, err := g.Price(context.Background(), depotD, stops, domain.RouteRing, 1.4)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRouteGeometry_TrafficMultiplierScalesDurationOnly(t *testing.T) {
	g := NewRouteGeometryService(distance.NewMockDistanceProvider(legTable()))
	stops := []domain.Stop{{ID: 1, Location: stopA}}

	free, err := g.Price(context.Background(), depotD, stops, domain.RouteRing, 1)
	require.NoError(t, err)
	rush, err := g.Price(context.Background(), depotD, stops, domain.RouteRing, domain.TrafficEvening.Multiplier())
	require.NoError(t, err)

	assert.Equal(t, free.DistanceMeters, rush.DistanceMeters)
	assert.InDelta(t, free.DurationSeconds*1.6, rush.DurationSeconds, 1e-9)
}

func TestRouteGeometry_FallbackMarksDegraded(t *testing.T) {
	far := domain.Coordinates{Lat: 41.2, Lng: 29.3}
	g := NewRouteGeometryService(distance.NewMockDistanceProvider(legTable()))

	pr, err := g.Price(context.Background(), depotD, []domain.Stop{{ID: 1, Location: stopA}, {ID: 2, Location: far}}, domain.RouteRing, 1)
	require.NoError(t, err)
	assert.True(t, pr.Degraded)
	require.Len(t, pr.Legs, 3)
	assert.False(t, pr.Legs[0].Fallback)
	assert.True(t, pr.Legs[1].Fallback)
	assert.InDelta(t, stopA.DistanceTo(far)*DetourFactor, pr.Legs[1].DistanceMeters, 1e-6)
	assert.InDelta(t, pr.Legs[1].DistanceMeters/FallbackSpeedMetersPerSecond, pr.Legs[1].DurationSeconds, 1e-6)
}

func TestRouteGeometry_EmptyRoute(t *testing.T) {
	g := NewRouteGeometryService(distance.NewMockDistanceProvider(nil))
	pr, err := g.Price(context.Background(), depotD, nil, domain.RouteRing, 1)
	require.NoError(t, err)
	assert.Zero(t, pr.DistanceMeters)
	assert.Zero(t, pr.DurationSeconds)
	assert.Equal(t, []domain.Coordinates{depotD}, pr.Polyline)
}

func TestRouteGeometry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewRouteGeometryService(distance.NewMockDistanceProvider(nil))
	_, err := g.Price(ctx, depotD, []domain.Stop{{ID: 1, Location: stopA}}, domain.RouteRing, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouteGeometry_InvalidCoordinates(t *testing.T) {
	g := NewRouteGeometryService(distance.NewMockDistanceProvider(nil))
	_, err := g.Price(context.Background(), domain.Coordinates{Lat: 100}, nil, domain.RouteRing, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
