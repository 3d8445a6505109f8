package dto

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type SolveRequest struct {
	Name               string         `json:"name"`
	Depot              *Coordinates   `json:"depot"`
	DepotAddress       string         `json:"depot_address"`
	MaxWalkingDistance *float64       `json:"max_walking_distance"`
	MinClusterSize     int            `json:"min_cluster_size"`
	VehicleCounts      map[string]int `json:"vehicle_counts"`
	VehiclePriority    string         `json:"vehicle_priority"`
	// Minutes.
	MaxTravelTime    *int    `json:"max_travel_time"`
	TrafficMode      string  `json:"traffic_mode"`
	BufferSeats      int     `json:"buffer_seats"`
	RouteType        string  `json:"route_type"`
	TimeLimitSeconds int     `json:"time_limit_seconds"`
	ShiftID          *int64  `json:"shift_id"`
	EmployeeIDs      []int64 `json:"employee_ids"`
	Seed             int64   `json:"seed"`
}

type ClusterRequest struct {
	MaxWalkingDistance *float64 `json:"max_walking_distance"`
	MinClusterSize     int      `json:"min_cluster_size"`
	ShiftID            *int64   `json:"shift_id"`
	EmployeeIDs        []int64  `json:"employee_ids"`
}

type StopResponse struct {
	ID                   int         `json:"id"`
	Name                 string      `json:"name"`
	Location             Coordinates `json:"location"`
	EmployeeIDs          []int64     `json:"employee_ids"`
	EmployeeCount        int         `json:"employee_count"`
	MaxWalkDistance      float64     `json:"max_walk_distance_meters"`
	Singleton            bool        `json:"singleton"`
	DepotDistanceMeters  float64     `json:"depot_distance_meters"`
	DepotDurationSeconds float64     `json:"depot_duration_seconds"`
}

type ClusterResponse struct {
	Stops     []StopResponse `json:"stops"`
	Employees int            `json:"employees"`
}

type VehicleResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Seats     int    `json:"seats"`
	Capacity  int    `json:"capacity"`
	Preferred bool   `json:"preferred"`
}

type RouteResponse struct {
	ID              string          `json:"id"`
	Vehicle         VehicleResponse `json:"vehicle"`
	Stops           []StopResponse  `json:"stops"`
	DistanceMeters  float64         `json:"distance_meters"`
	DurationSeconds float64         `json:"duration_seconds"`
	Passengers      int             `json:"passengers"`
	Polyline        [][]float64     `json:"polyline"`
	Degraded        bool            `json:"degraded"`
	Version         int             `json:"version"`
}

type SolutionResponse struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Status               string          `json:"status"`
	Depot                Coordinates     `json:"depot"`
	RouteType            string          `json:"route_type"`
	TrafficMode          string          `json:"traffic_mode"`
	VehicleCounts        map[string]int  `json:"vehicle_counts"`
	VehiclesUsed         int             `json:"vehicles_used"`
	TotalDistanceMeters  float64         `json:"total_distance_meters"`
	TotalDurationSeconds float64         `json:"total_duration_seconds"`
	TotalPassengers      int             `json:"total_passengers"`
	Dropped              []int64         `json:"dropped_employee_ids"`
	Routes               []RouteResponse `json:"routes,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type ListSolutionResponse struct {
	Solutions []SolutionResponse `json:"solutions"`
}
