package services

import (
	"context"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/ports"
)

const DefaultAttachRadius = 400.0

// Mutation is a bounded edit of one route. Implementations change the
// working copy of the route in place and report changes to the solution's
// dropped list through the edit.
type Mutation interface {
	Kind() string
	apply(ctx context.Context, ed *edit) error
}

// edit is the working state of one propose call.
type edit struct {
	sol          *domain.Solution
	route        *domain.Route
	employees    ports.EmployeeRepository
	attachRadius float64

	dropAdd    []int64
	dropRemove []int64
}

// RelocateStop moves one stop; its members stay the same.
type RelocateStop struct {
	StopIndex int
	Location  domain.Coordinates
}

func (RelocateStop) Kind() string { return "relocate" }

func (m RelocateStop) apply(ctx context.Context, ed *edit) error {
	if m.StopIndex < 0 || m.StopIndex >= len(ed.route.Stops) {
		return fmt.Errorf("%w: stop index %d out of range [0,%d)", domain.ErrInvalidInput, m.StopIndex, len(ed.route.Stops))
	}
	if !m.Location.Valid() {
		return fmt.Errorf("%w: invalid stop location", domain.ErrInvalidInput)
	}

	stop := &ed.route.Stops[m.StopIndex]
	stop.Location = m.Location
	return ed.refreshWalk(ctx, stop)
}

// ReorderFirst rotates the sequence so the given stop is visited first.
// Relative order is kept; the depot endpoints are unaffected.
type ReorderFirst struct {
	FirstStopIndex int
}

func (ReorderFirst) Kind() string { return "reorder" }

func (m ReorderFirst) apply(_ context.Context, ed *edit) error {
	stops := ed.route.Stops
	if m.FirstStopIndex < 0 || m.FirstStopIndex >= len(stops) {
		return fmt.Errorf("%w: stop index %d out of range [0,%d)", domain.ErrInvalidInput, m.FirstStopIndex, len(stops))
	}

	rotated := make([]domain.Stop, 0, len(stops))
	rotated = append(rotated, stops[m.FirstStopIndex:]...)
	rotated = append(rotated, stops[:m.FirstStopIndex]...)
	ed.route.Stops = rotated
	return nil
}

// AddEmployee puts an employee on the route: on the nearest stop within the
// attach radius (ties to the lowest stop id), else on a new singleton stop
// appended at the end.
type AddEmployee struct {
	EmployeeID int64
}

func (AddEmployee) Kind() string { return "add-employee" }

func (m AddEmployee) apply(ctx context.Context, ed *edit) error {
	if ed.employees == nil {
		return fmt.Errorf("add employee: no employee repository configured")
	}
	emp, err := ed.employees.GetEmployee(ctx, m.EmployeeID)
	if err != nil {
		return fmt.Errorf("add employee: %w", err)
	}
	if !emp.Home.Valid() {
		return fmt.Errorf("add employee: %w: employee %d has invalid coordinates", domain.ErrInvalidInput, emp.ID)
	}
	if ri := ed.sol.RouteOf(emp.ID); ri >= 0 {
		return fmt.Errorf("add employee %d: %w (route %s)", emp.ID, domain.ErrEmployeeAssigned, ed.sol.Routes[ri].ID)
	}

	passengers := ed.route.CountPassengers() + 1
	if passengers > ed.route.Vehicle.Capacity {
		return &domain.CapacityExceededError{
			RouteID:    ed.route.ID,
			Capacity:   ed.route.Vehicle.Capacity,
			Passengers: passengers,
		}
	}

	best, bestDist := -1, 0.0
	for i, s := range ed.route.Stops {
		d := emp.Home.DistanceTo(s.Location)
		if d > ed.attachRadius {
			continue
		}
		if best < 0 || d < bestDist || (d == bestDist && s.ID < ed.route.Stops[best].ID) {
			best, bestDist = i, d
		}
	}

	if best >= 0 {
		stop := &ed.route.Stops[best]
		stop.EmployeeIDs = append(stop.EmployeeIDs, emp.ID)
		if bestDist > stop.MaxWalkDistance {
			stop.MaxWalkDistance = bestDist
		}
	} else {
		id := ed.sol.NextStopID()
		ed.route.Stops = append(ed.route.Stops, domain.Stop{
			ID:          id,
			Name:        fmt.Sprintf("Stop %d", id),
			Location:    emp.Home,
			EmployeeIDs: []int64{emp.ID},
			WalkBound:   ed.sol.Params.MaxWalkingDistance,
			Singleton:   true,
		})
	}

	if ed.sol.IsDropped(emp.ID) {
		ed.dropRemove = append(ed.dropRemove, emp.ID)
	}
	return nil
}

// RemoveEmployee takes an employee off the route. A stop left without
// members is removed from the sequence. The employee is recorded as dropped.
type RemoveEmployee struct {
	EmployeeID int64
}

func (RemoveEmployee) Kind() string { return "remove-employee" }

func (m RemoveEmployee) apply(ctx context.Context, ed *edit) error {
	si := ed.route.StopIndexOf(m.EmployeeID)
	if si < 0 {
		return fmt.Errorf("remove employee %d: %w %s", m.EmployeeID, domain.ErrEmployeeNotOnRoute, ed.route.ID)
	}

	stop := &ed.route.Stops[si]
	kept := make([]int64, 0, len(stop.EmployeeIDs)-1)
	for _, id := range stop.EmployeeIDs {
		if id != m.EmployeeID {
			kept = append(kept, id)
		}
	}
	stop.EmployeeIDs = kept

	if len(kept) == 0 {
		ed.route.Stops = append(ed.route.Stops[:si:si], ed.route.Stops[si+1:]...)
	} else if err := ed.refreshWalk(ctx, stop); err != nil {
		return err
	}

	ed.dropAdd = append(ed.dropAdd, m.EmployeeID)
	return nil
}

// refreshWalk recomputes the largest member walk to the stop.
func (ed *edit) refreshWalk(ctx context.Context, stop *domain.Stop) error {
	if ed.employees == nil || len(stop.EmployeeIDs) == 0 {
		return nil
	}
	emps, err := ed.employees.ListEmployees(ctx, ports.EmployeeFilter{IDs: stop.EmployeeIDs})
	if err != nil {
		return fmt.Errorf("refresh walking distance: %w", err)
	}
	homes := make([]domain.Coordinates, 0, len(emps))
	for _, e := range emps {
		homes = append(homes, e.Home)
	}
	stop.MaxWalkDistance = maxDistance(homes, stop.Location)
	return nil
}
