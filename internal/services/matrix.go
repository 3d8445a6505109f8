package services

import (
	"context"
	"errors"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/metrics"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"

	"golang.org/x/sync/errgroup"
)

const (
	// Road detour factor applied to great-circle distance when no road data exists.
	DetourFactor = 1.4
	// Assumed average urban speed for the fallback estimate.
	FallbackSpeedMetersPerSecond = 30.0 * 1000 / 3600

	DefaultMatrixConcurrency = 5
)

// FallbackLeg estimates a leg from great-circle distance.
func FallbackLeg(from, to domain.Coordinates) ports.Leg {
	d := from.DistanceTo(to) * DetourFactor
	return ports.Leg{
		DistanceMeters:  d,
		DurationSeconds: d / FallbackSpeedMetersPerSecond,
		Polyline:        []domain.Coordinates{from, to},
	}
}

// Distances and traffic-scaled durations between points. Index 0 is
// conventionally the depot.
type CostMatrix struct {
	Distances [][]float64
	Durations [][]float64
	// Number of entries that used the straight-line estimate.
	Fallbacks int
}

// BuildCostMatrix fetches all pairwise legs between points.
//
// A batched matrix call is used when the provider supports it; otherwise legs
// are requested per origin row with at most `concurrency` rows in flight.
// Entries the provider cannot serve use the straight-line estimate so one bad
// pair never fails the whole matrix. Only context cancellation is fatal.
func BuildCostMatrix(
	ctx context.Context,
	provider ports.DistanceProvider,
	points []domain.Coordinates,
	concurrency int,
	multiplier float64,
) (_ CostMatrix, err error) {
	defer obs.Time(ctx, "matrix.Build")(&err)

	for i, p := range points {
		if !p.Valid() {
			return CostMatrix{}, fmt.Errorf("build cost matrix: %w: point %d has invalid coordinates", domain.ErrInvalidInput, i)
		}
	}
	if multiplier <= 0 {
		multiplier = 1
	}
	if concurrency <= 0 {
		concurrency = DefaultMatrixConcurrency
	}

	n := len(points)
	m := CostMatrix{
		Distances: make([][]float64, n),
		Durations: make([][]float64, n),
	}
	for i := range m.Distances {
		m.Distances[i] = make([]float64, n)
		m.Durations[i] = make([]float64, n)
	}
	if n < 2 {
		return m, nil
	}

	fallbacks := make([]int, n)

	if mp, ok := provider.(ports.MatrixProvider); ok {
		grid, merr := mp.GetMatrix(ctx, points)
		if merr == nil && len(grid) == n {
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					if i == j {
						continue
					}
					var cell ports.MatrixCell
					if len(grid[i]) == n {
						cell = grid[i][j]
					}
					if !cell.OK {
						fb := FallbackLeg(points[i], points[j])
						cell = ports.MatrixCell{DistanceMeters: fb.DistanceMeters, DurationSeconds: fb.DurationSeconds}
						fallbacks[i]++
					}
					m.Distances[i][j] = cell.DistanceMeters
					m.Durations[i][j] = cell.DurationSeconds * multiplier
				}
			}
			m.Fallbacks = sum(fallbacks)
			metrics.ProviderFallbacks.WithLabelValues("matrix").Add(float64(m.Fallbacks))
			return m, nil
		}
		if ctx.Err() != nil {
			return CostMatrix{}, fmt.Errorf("build cost matrix: %w", ctx.Err())
		}
		obs.Logger(ctx).WithError(merr).Warn("batched matrix failed, fetching legs individually")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				leg, lerr := provider.GetRoute(gctx, points[i], points[j])
				if lerr != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					leg = FallbackLeg(points[i], points[j])
					fallbacks[i]++
				}
				// each goroutine owns row i
				m.Distances[i][j] = leg.DistanceMeters
				m.Durations[i][j] = leg.DurationSeconds * multiplier
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CostMatrix{}, fmt.Errorf("build cost matrix: %w", err)
	}

	m.Fallbacks = sum(fallbacks)
	metrics.ProviderFallbacks.WithLabelValues("matrix").Add(float64(m.Fallbacks))
	return m, nil
}

func sum(xs []int) int {
	t := 0
	for _, x := range xs {
		t += x
	}
	return t
}

func isProviderFailure(err error) bool {
	return errors.Is(err, ports.ErrProviderUnavailable) || errors.Is(err, ports.ErrNoRoute)
}
