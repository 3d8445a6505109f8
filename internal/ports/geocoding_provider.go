package ports

import (
	"context"
	"shuttle-route-service/internal/domain"
)

// Resolves a free-form address to coordinates.
type GeocodingProvider interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}
