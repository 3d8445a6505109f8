package domain

import (
	"time"
)

const StatusFeasible = "FEASIBLE"

// Parameters a solution was computed with. Edits reuse them so a repriced
// route is consistent with the rest of the solution.
type SolveParams struct {
	MaxWalkingDistance float64
	MinClusterSize     int
	VehicleCounts      map[string]int
	VehiclePriority    VehiclePriority
	MaxTravelTime      time.Duration
	TrafficMode        TrafficMode
	BufferSeats        int
	RouteType          RouteType
	TimeLimit          time.Duration
	ShiftID            *int64
	EmployeeIDs        []int64
}

// Solution is the result of one solve: a depot and the routes serving it.
// Edits mutate routes in place; the identity never changes.
type Solution struct {
	ID     string
	Name   string
	Depot  Coordinates
	Params SolveParams
	Routes []Route
	// Employees removed by edits. Together with the route stops they cover the
	// solve scope exactly once.
	Dropped []int64
	Status  string

	VehiclesUsed         int
	TotalDistanceMeters  float64
	TotalDurationSeconds float64
	TotalPassengers      int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recompute refreshes the summary aggregates from the routes.
func (s *Solution) Recompute() {
	s.VehiclesUsed = 0
	s.TotalDistanceMeters = 0
	s.TotalDurationSeconds = 0
	s.TotalPassengers = 0
	for _, r := range s.Routes {
		if len(r.Stops) > 0 {
			s.VehiclesUsed++
		}
		s.TotalDistanceMeters += r.DistanceMeters
		s.TotalDurationSeconds += r.DurationSeconds
		s.TotalPassengers += r.Passengers
	}
}

func (s *Solution) RouteIndex(routeID string) int {
	for i, r := range s.Routes {
		if r.ID == routeID {
			return i
		}
	}
	return -1
}

// NextStopID returns an identifier not used by any stop in the solution.
func (s *Solution) NextStopID() int {
	maxID := 0
	for _, r := range s.Routes {
		for _, st := range r.Stops {
			if st.ID > maxID {
				maxID = st.ID
			}
		}
	}
	return maxID + 1
}

// RouteOf returns the index of the route carrying the employee, or -1.
func (s *Solution) RouteOf(employeeID int64) int {
	for i, r := range s.Routes {
		if r.StopIndexOf(employeeID) >= 0 {
			return i
		}
	}
	return -1
}

func (s *Solution) IsDropped(employeeID int64) bool {
	for _, id := range s.Dropped {
		if id == employeeID {
			return true
		}
	}
	return false
}

func (s *Solution) Undrop(employeeID int64) {
	out := s.Dropped[:0]
	for _, id := range s.Dropped {
		if id != employeeID {
			out = append(out, id)
		}
	}
	s.Dropped = out
}

func (s *Solution) Clone() *Solution {
	out := *s
	out.Routes = make([]Route, len(s.Routes))
	for i, r := range s.Routes {
		out.Routes[i] = r.Clone()
	}
	out.Dropped = append([]int64(nil), s.Dropped...)
	out.Params.EmployeeIDs = append([]int64(nil), s.Params.EmployeeIDs...)
	if s.Params.VehicleCounts != nil {
		out.Params.VehicleCounts = make(map[string]int, len(s.Params.VehicleCounts))
		for k, v := range s.Params.VehicleCounts {
			out.Params.VehicleCounts[k] = v
		}
	}
	return &out
}
