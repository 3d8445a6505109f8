package distance

import (
	"context"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/metrics"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"
)

// CachedDistanceProvider serves legs from a LegCache and fills it from the
// wrapped provider. Cache failures are logged and never fail a lookup.
type CachedDistanceProvider struct {
	next  ports.DistanceProvider
	cache ports.LegCache
}

func NewCachedDistanceProvider(next ports.DistanceProvider, legCache ports.LegCache) *CachedDistanceProvider {
	return &CachedDistanceProvider{next: next, cache: legCache}
}

func (c *CachedDistanceProvider) GetRoute(ctx context.Context, from, to domain.Coordinates) (ports.Leg, error) {
	if c.cache != nil {
		leg, ok, err := c.cache.GetLeg(ctx, from, to)
		switch {
		case err != nil:
			obs.Logger(ctx).WithError(err).Warn("leg cache read failed")
		case ok:
			metrics.LegCacheLookups.WithLabelValues("hit").Inc()
			return leg, nil
		default:
			metrics.LegCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	leg, err := c.next.GetRoute(ctx, from, to)
	if err != nil {
		return ports.Leg{}, err
	}

	if c.cache != nil {
		if err := c.cache.PutLeg(ctx, from, to, leg); err != nil {
			obs.Logger(ctx).WithError(err).Warn("leg cache write failed")
		}
	}
	return leg, nil
}

// GetMatrix delegates to the wrapped provider when it supports matrices.
func (c *CachedDistanceProvider) GetMatrix(ctx context.Context, points []domain.Coordinates) (ports.Matrix, error) {
	mp, ok := c.next.(ports.MatrixProvider)
	if !ok {
		return nil, fmt.Errorf("get matrix: %w: wrapped provider has no matrix support", ports.ErrProviderUnavailable)
	}
	return mp.GetMatrix(ctx, points)
}
