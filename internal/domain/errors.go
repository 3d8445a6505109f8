package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrNoPreview          = errors.New("no pending preview for route")
	ErrStalePreview       = errors.New("route changed since preview was computed")
	ErrEmployeeAssigned   = errors.New("employee already assigned to a route")
	ErrEmployeeNotOnRoute = errors.New("employee is not on route")
)

// InfeasibleCapacityError means the fleet cannot seat the demand.
type InfeasibleCapacityError struct {
	Capacity int
	Demand   int
	// Set when a single stop is larger than the largest vehicle.
	StopID int
}

func (e *InfeasibleCapacityError) Error() string {
	if e.StopID != 0 {
		return fmt.Sprintf("infeasible capacity: stop %d needs %d seats, largest vehicle has %d", e.StopID, e.Demand, e.Capacity)
	}
	return fmt.Sprintf("infeasible capacity: fleet capacity %d < demand %d", e.Capacity, e.Demand)
}

type InfeasibilityCause string

const (
	CauseCapacity   InfeasibilityCause = "capacity"
	CauseTravelTime InfeasibilityCause = "travel_time"
)

// NoFeasibleSolutionError means the search ended without placing every stop.
type NoFeasibleSolutionError struct {
	Cause      InfeasibilityCause
	Unassigned []int
}

func (e *NoFeasibleSolutionError) Error() string {
	return fmt.Sprintf("no feasible solution (%s): %d stop(s) unassigned", e.Cause, len(e.Unassigned))
}

// CapacityExceededError rejects an edit that would overfill a vehicle.
type CapacityExceededError struct {
	RouteID    string
	Capacity   int
	Passengers int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded on route %s: %d passengers > %d seats", e.RouteID, e.Passengers, e.Capacity)
}
