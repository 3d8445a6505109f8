package handlers

import (
	"shuttle-route-service/internal/api/dto"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/services"
)

func toStopResponses(stops []domain.Stop) []dto.StopResponse {
	out := make([]dto.StopResponse, 0, len(stops))
	for _, s := range stops {
		ids := s.EmployeeIDs
		if ids == nil {
			ids = []int64{}
		}
		out = append(out, dto.StopResponse{
			ID:                   s.ID,
			Name:                 s.Name,
			Location:             dto.Coordinates{Lat: s.Location.Lat, Lng: s.Location.Lng},
			EmployeeIDs:          ids,
			EmployeeCount:        s.EmployeeCount(),
			MaxWalkDistance:      s.MaxWalkDistance,
			Singleton:            s.Singleton,
			DepotDistanceMeters:  s.DepotDistanceMeters,
			DepotDurationSeconds: s.DepotDurationSeconds,
		})
	}
	return out
}

func toRouteResponse(r domain.Route) dto.RouteResponse {
	line := make([][]float64, 0, len(r.Polyline))
	for _, c := range r.Polyline {
		line = append(line, c.CoordsToList())
	}
	return dto.RouteResponse{
		ID: r.ID,
		Vehicle: dto.VehicleResponse{
			ID:        r.Vehicle.ID,
			Type:      r.Vehicle.Type,
			Seats:     r.Vehicle.Seats,
			Capacity:  r.Vehicle.Capacity,
			Preferred: r.Vehicle.Preferred,
		},
		Stops:           toStopResponses(r.Stops),
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		Passengers:      r.Passengers,
		Polyline:        line,
		Degraded:        r.Degraded,
		Version:         r.Version,
	}
}

// Routes are omitted when withRoutes is false (list view).
func toSolutionResponse(s *domain.Solution, withRoutes bool) dto.SolutionResponse {
	dropped := s.Dropped
	if dropped == nil {
		dropped = []int64{}
	}
	res := dto.SolutionResponse{
		ID:                   s.ID,
		Name:                 s.Name,
		Status:               s.Status,
		Depot:                dto.Coordinates{Lat: s.Depot.Lat, Lng: s.Depot.Lng},
		RouteType:            string(s.Params.RouteType),
		TrafficMode:          string(s.Params.TrafficMode),
		VehicleCounts:        s.Params.VehicleCounts,
		VehiclesUsed:         s.VehiclesUsed,
		TotalDistanceMeters:  s.TotalDistanceMeters,
		TotalDurationSeconds: s.TotalDurationSeconds,
		TotalPassengers:      s.TotalPassengers,
		Dropped:              dropped,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
	if withRoutes {
		res.Routes = make([]dto.RouteResponse, 0, len(s.Routes))
		for _, r := range s.Routes {
			res.Routes = append(res.Routes, toRouteResponse(r))
		}
	}
	return res
}

func toMetrics(m services.RouteMetrics) dto.RouteMetrics {
	return dto.RouteMetrics{
		DistanceMeters:  m.DistanceMeters,
		DurationSeconds: m.DurationSeconds,
		Passengers:      m.Passengers,
		Stops:           m.Stops,
	}
}

func toDelta(d services.RouteDelta) dto.RouteDelta {
	return dto.RouteDelta{
		Old:                  toMetrics(d.Old),
		New:                  toMetrics(d.New),
		DistanceDelta:        d.DistanceDelta,
		DurationDelta:        d.DurationDelta,
		DistanceDeltaPercent: d.DistanceDeltaPercent,
		DurationDeltaPercent: d.DurationDeltaPercent,
	}
}

func toPreviewResponse(p services.Preview) dto.PreviewResponse {
	return dto.PreviewResponse{
		SolutionID: p.SolutionID,
		RouteID:    p.RouteID,
		Kind:       p.Kind,
		Delta:      toDelta(p.RouteDelta),
		Route:      toRouteResponse(p.Route),
		Degraded:   p.Degraded,
		CreatedAt:  p.CreatedAt,
	}
}
