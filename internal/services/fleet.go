package services

import (
	"fmt"
	"shuttle-route-service/internal/domain"
	"sort"
)

// Result of the advisory capacity pre-check.
type FleetCheck struct {
	Feasible      bool
	TotalCapacity int
	TotalDemand   int
}

// FleetModel knows the vehicle catalog and expands fleet counts into slots.
type FleetModel struct {
	seats map[string]int
}

func NewFleetModel(types []domain.VehicleType) *FleetModel {
	seats := make(map[string]int, len(types))
	for _, t := range types {
		seats[t.Name] = t.Seats
	}
	return &FleetModel{seats: seats}
}

// Seats returns the nominal seat count of a vehicle type.
func (f *FleetModel) Seats(vehicleType string) (int, bool) {
	s, ok := f.seats[vehicleType]
	return s, ok
}

func (f *FleetModel) checkCounts(counts map[string]int, buffer int) error {
	if buffer < 0 {
		return fmt.Errorf("%w: buffer seats must not be negative", domain.ErrInvalidInput)
	}
	for name, n := range counts {
		if _, ok := f.seats[name]; !ok {
			return fmt.Errorf("%w: unknown vehicle type %q", domain.ErrInvalidInput, name)
		}
		if n < 0 {
			return fmt.Errorf("%w: vehicle count for %q must not be negative", domain.ErrInvalidInput, name)
		}
	}
	return nil
}

// Validate compares seats left after the buffer against stop demand.
// Feasible here does not guarantee the solver finds routes under the
// travel-time limit.
func (f *FleetModel) Validate(stops []domain.Stop, counts map[string]int, buffer int) (FleetCheck, error) {
	if err := f.checkCounts(counts, buffer); err != nil {
		return FleetCheck{}, fmt.Errorf("validate fleet: %w", err)
	}

	check := FleetCheck{}
	for name, n := range counts {
		check.TotalCapacity += domain.EffectiveCapacity(f.seats[name], buffer) * n
	}
	for _, s := range stops {
		check.TotalDemand += s.EmployeeCount()
	}
	check.Feasible = check.TotalCapacity >= check.TotalDemand
	return check, nil
}

// Vehicles expands counts into individual vehicle slots ordered by priority.
// With PriorityLarge or PrioritySmall the vehicles of the preferred size are
// flagged Preferred; PriorityAuto prefers none.
func (f *FleetModel) Vehicles(counts map[string]int, buffer int, priority domain.VehiclePriority) ([]domain.Vehicle, error) {
	if err := f.checkCounts(counts, buffer); err != nil {
		return nil, fmt.Errorf("fleet vehicles: %w", err)
	}

	names := make([]string, 0, len(counts))
	for name, n := range counts {
		if n > 0 {
			names = append(names, name)
		}
	}

	smallFirst := priority == domain.PrioritySmall
	sort.Slice(names, func(i, j int) bool {
		si, sj := f.seats[names[i]], f.seats[names[j]]
		if si != sj {
			if smallFirst {
				return si < sj
			}
			return si > sj
		}
		return names[i] < names[j]
	})

	var preferredSeats int
	if len(names) > 0 && priority != domain.PriorityAuto {
		preferredSeats = f.seats[names[0]]
	}

	vehicles := make([]domain.Vehicle, 0)
	for _, name := range names {
		seats := f.seats[name]
		for i := 1; i <= counts[name]; i++ {
			vehicles = append(vehicles, domain.Vehicle{
				ID:        fmt.Sprintf("%s-%d", name, i),
				Type:      name,
				Seats:     seats,
				Capacity:  domain.EffectiveCapacity(seats, buffer),
				Preferred: preferredSeats != 0 && seats == preferredSeats,
			})
		}
	}
	return vehicles, nil
}
