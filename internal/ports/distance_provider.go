package ports

import (
	"context"
	"errors"
	"shuttle-route-service/internal/domain"
)

var (
	// The routing engine could not be reached or answered with an error.
	// Callers may substitute the straight-line estimate.
	ErrProviderUnavailable = errors.New("distance provider unavailable")
	// The routing engine answered but found no road path between the points.
	ErrNoRoute = errors.New("no route between points")
)

// Road distance, travel duration and geometry between two points.
type Leg struct {
	DistanceMeters  float64
	DurationSeconds float64
	Polyline        []domain.Coordinates
}

// Contract for retrieving travel distance and duration between locations.
type DistanceProvider interface {
	// Return the driving leg from one point to another.
	GetRoute(ctx context.Context, from, to domain.Coordinates) (Leg, error)
}
