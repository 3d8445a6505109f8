package ports

import (
	"context"
	"shuttle-route-service/internal/domain"
)

// Persistent cache for provider legs keyed by the endpoint pair.
type LegCache interface {
	// ok is false on a miss; err is reserved for backend failures.
	GetLeg(ctx context.Context, from, to domain.Coordinates) (leg Leg, ok bool, err error)
	PutLeg(ctx context.Context, from, to domain.Coordinates, leg Leg) error
}
