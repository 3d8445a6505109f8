package dto

import "time"

type RelocateRequest struct {
	StopIndex int         `json:"stop_index"`
	Location  Coordinates `json:"location"`
}

type ReorderRequest struct {
	FirstStopIndex int `json:"first_stop_index"`
}

type EmployeeEditRequest struct {
	EmployeeID int64 `json:"employee_id"`
}

type RouteMetrics struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	Passengers      int     `json:"passengers"`
	Stops           int     `json:"stops"`
}

type RouteDelta struct {
	Old                  RouteMetrics `json:"old"`
	New                  RouteMetrics `json:"new"`
	DistanceDelta        float64      `json:"distance_delta_meters"`
	DurationDelta        float64      `json:"duration_delta_seconds"`
	DistanceDeltaPercent float64      `json:"distance_delta_percent"`
	DurationDeltaPercent float64      `json:"duration_delta_percent"`
}

type PreviewResponse struct {
	SolutionID string        `json:"solution_id"`
	RouteID    string        `json:"route_id"`
	Kind       string        `json:"kind"`
	Delta      RouteDelta    `json:"delta"`
	Route      RouteResponse `json:"route"`
	Degraded   bool          `json:"degraded"`
	CreatedAt  time.Time     `json:"created_at"`
}

type ReoptimizeResponse struct {
	Delta RouteDelta    `json:"delta"`
	Route RouteResponse `json:"route"`
}
