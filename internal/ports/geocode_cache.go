package ports

import (
	"context"
	"shuttle-route-service/internal/domain"
)

// Persistent cache for resolved addresses keyed by the normalized text.
type GeocodeCache interface {
	// ok is false on a miss or an expired entry.
	GetGeocode(ctx context.Context, address string) (c domain.Coordinates, ok bool, err error)
	PutGeocode(ctx context.Context, address string, c domain.Coordinates) error
}
