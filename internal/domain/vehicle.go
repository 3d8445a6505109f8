package domain

import (
	"fmt"
	"strings"
)

type VehiclePriority string

const (
	PriorityAuto  VehiclePriority = "auto"
	PriorityLarge VehiclePriority = "large"
	PrioritySmall VehiclePriority = "small"
)

func ParseVehiclePriority(s string) (VehiclePriority, error) {
	switch p := VehiclePriority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityAuto, nil
	case PriorityAuto, PriorityLarge, PrioritySmall:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown vehicle priority %q", ErrInvalidInput, s)
	}
}

// A configured kind of vehicle, e.g. "16-seater".
type VehicleType struct {
	Name  string `yaml:"name"`
	Seats int    `yaml:"seats"`
}

// Vehicle is one slot of the fleet. Vehicles with the same Capacity are
// interchangeable; ID only matters for display.
type Vehicle struct {
	ID       string
	Type     string
	Seats    int
	Capacity int
	// Preferred vehicles carry a lower fixed cost in the solver.
	Preferred bool
}

// EffectiveCapacity is the seat count minus the buffer, never below one seat.
func EffectiveCapacity(seats, buffer int) int {
	c := seats - buffer
	if c < 1 {
		return 1
	}
	return c
}
