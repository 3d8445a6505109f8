package services

import (
	"context"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/metrics"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"

	log "github.com/sirupsen/logrus"
)

// One priced leg of a route.
type PricedLeg struct {
	From, To        domain.Coordinates
	DistanceMeters  float64
	DurationSeconds float64
	Fallback        bool
}

// PricedRoute is the geometry of an ordered stop sequence.
type PricedRoute struct {
	DistanceMeters  float64
	DurationSeconds float64
	Polyline        []domain.Coordinates
	Legs            []PricedLeg
	// Stops carry their distance/duration to (or from) the depot.
	Stops []domain.Stop
	// At least one leg used the straight-line estimate.
	Degraded bool
}

// RouteGeometryService prices stop sequences leg by leg.
type RouteGeometryService struct {
	Provider ports.DistanceProvider
}

func NewRouteGeometryService(provider ports.DistanceProvider) *RouteGeometryService {
	return &RouteGeometryService{Provider: provider}
}

// Price walks depot/stops in route-type order, asking the provider for each
// leg. A leg the provider cannot serve is estimated from great-circle
// distance and the result is flagged Degraded; pricing itself only fails on
// invalid coordinates or a cancelled context.
//
// Durations are multiplied by multiplier. An empty sequence prices to zero
// with a polyline holding only the depot.
func (g *RouteGeometryService) Price(
	ctx context.Context,
	depot domain.Coordinates,
	stops []domain.Stop,
	routeType domain.RouteType,
	multiplier float64,
) (_ PricedRoute, err error) {
	defer obs.Time(ctx, "geometry.Price")(&err)

	if !depot.Valid() {
		return PricedRoute{}, fmt.Errorf("price route: %w: depot has invalid coordinates", domain.ErrInvalidInput)
	}
	for _, s := range stops {
		if !s.Location.Valid() {
			return PricedRoute{}, fmt.Errorf("price route: %w: stop %d has invalid coordinates", domain.ErrInvalidInput, s.ID)
		}
	}
	if multiplier <= 0 {
		multiplier = 1
	}
	if routeType == "" {
		routeType = domain.RouteRing
	}

	out := PricedRoute{Stops: make([]domain.Stop, len(stops))}
	for i, s := range stops {
		out.Stops[i] = s.Clone()
	}
	if len(stops) == 0 {
		out.Polyline = []domain.Coordinates{depot}
		return out, nil
	}

	points := make([]domain.Coordinates, 0, len(stops)+2)
	if routeType.StartsAtDepot() {
		points = append(points, depot)
	}
	for _, s := range stops {
		points = append(points, s.Location)
	}
	if routeType.EndsAtDepot() {
		points = append(points, depot)
	}

	for i := 1; i < len(points); i++ {
		from, to := points[i-1], points[i]

		leg, lerr := g.Provider.GetRoute(ctx, from, to)
		fallback := false
		if lerr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return PricedRoute{}, fmt.Errorf("price route: %w", ctxErr)
			}
			entry := obs.Logger(ctx).WithError(lerr).WithFields(log.Fields{"from": from.Key(), "to": to.Key()})
			if isProviderFailure(lerr) {
				entry.Debug("leg priced with straight-line fallback")
			} else {
				entry.Warn("unexpected provider error, leg priced with straight-line fallback")
			}
			leg = FallbackLeg(from, to)
			fallback = true
			out.Degraded = true
			metrics.ProviderFallbacks.WithLabelValues("geometry").Inc()
		}

		dur := leg.DurationSeconds * multiplier
		out.DistanceMeters += leg.DistanceMeters
		out.DurationSeconds += dur
		out.Legs = append(out.Legs, PricedLeg{
			From:            from,
			To:              to,
			DistanceMeters:  leg.DistanceMeters,
			DurationSeconds: dur,
			Fallback:        fallback,
		})
		out.Polyline = appendSegment(out.Polyline, segmentOf(leg, from, to))
	}

	annotateDepotLegs(out.Stops, out.Legs, routeType)
	return out, nil
}

// segmentOf returns a leg polyline, or a straight segment when the provider
// returned none.
func segmentOf(leg ports.Leg, from, to domain.Coordinates) []domain.Coordinates {
	if len(leg.Polyline) > 0 {
		return leg.Polyline
	}
	return []domain.Coordinates{from, to}
}

// appendSegment concatenates seg onto line, dropping seg's first point when
// it coincides with the end of line.
func appendSegment(line, seg []domain.Coordinates) []domain.Coordinates {
	if len(line) > 0 && len(seg) > 0 && line[len(line)-1] == seg[0] {
		seg = seg[1:]
	}
	return append(line, seg...)
}

// annotateDepotLegs stores on each stop the remaining distance/duration to
// the depot (ring, to_depot) or the cumulative distance/duration from the
// depot (to_home).
func annotateDepotLegs(stops []domain.Stop, legs []PricedLeg, routeType domain.RouteType) {
	switch routeType {
	case domain.RouteToHome:
		// legs[i] arrives at stops[i]
		var d, t float64
		for i := range stops {
			if i < len(legs) {
				d += legs[i].DistanceMeters
				t += legs[i].DurationSeconds
			}
			stops[i].DepotDistanceMeters = d
			stops[i].DepotDurationSeconds = t
		}
	default:
		// ring: legs[i+1] leaves stops[i]; to_depot: legs[i] leaves stops[i]
		offset := 0
		if routeType == domain.RouteRing {
			offset = 1
		}
		for i := range stops {
			var d, t float64
			for j := i + offset; j < len(legs); j++ {
				d += legs[j].DistanceMeters
				t += legs[j].DurationSeconds
			}
			stops[i].DepotDistanceMeters = d
			stops[i].DepotDurationSeconds = t
		}
	}
}

// ApplyPricing copies a pricing result onto a route.
func ApplyPricing(r *domain.Route, pr PricedRoute) {
	r.Stops = pr.Stops
	r.DistanceMeters = pr.DistanceMeters
	r.DurationSeconds = pr.DurationSeconds
	r.Polyline = pr.Polyline
	r.Degraded = pr.Degraded
	r.Passengers = r.CountPassengers()
}
