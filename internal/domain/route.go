package domain

import (
	"fmt"
	"strings"
)

type RouteType string

const (
	// depot -> stops -> depot
	RouteRing RouteType = "ring"
	// depot -> stops (evening drop-off)
	RouteToHome RouteType = "to_home"
	// stops -> depot (morning pickup)
	RouteToDepot RouteType = "to_depot"
)

func ParseRouteType(s string) (RouteType, error) {
	switch t := RouteType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return RouteRing, nil
	case RouteRing, RouteToHome, RouteToDepot:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown route type %q", ErrInvalidInput, s)
	}
}

// StartsAtDepot reports whether the first leg leaves the depot.
func (t RouteType) StartsAtDepot() bool { return t == RouteRing || t == RouteToHome }

// EndsAtDepot reports whether the last leg returns to the depot.
func (t RouteType) EndsAtDepot() bool { return t == RouteRing || t == RouteToDepot }

type TrafficMode string

const (
	TrafficNone    TrafficMode = "none"
	TrafficMorning TrafficMode = "morning"
	TrafficEvening TrafficMode = "evening"
)

func ParseTrafficMode(s string) (TrafficMode, error) {
	switch m := TrafficMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return TrafficNone, nil
	case TrafficNone, TrafficMorning, TrafficEvening:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown traffic mode %q", ErrInvalidInput, s)
	}
}

// Multiplier scales free-flow durations for rush hour.
func (m TrafficMode) Multiplier() float64 {
	switch m {
	case TrafficMorning:
		return 1.4
	case TrafficEvening:
		return 1.6
	default:
		return 1.0
	}
}

// Represents one vehicle's ordered sequence of stops together with the
// geometry computed for that sequence. Distance, duration and polyline are
// always the output of the last pricing of Stops.
type Route struct {
	ID              string
	Vehicle         Vehicle
	Stops           []Stop
	DistanceMeters  float64
	DurationSeconds float64
	Polyline        []Coordinates
	Passengers      int
	Degraded        bool
	Version         int
}

func (r Route) CountPassengers() int {
	n := 0
	for _, s := range r.Stops {
		n += s.EmployeeCount()
	}
	return n
}

func (r Route) EmployeeIDs() []int64 {
	ids := make([]int64, 0, r.CountPassengers())
	for _, s := range r.Stops {
		ids = append(ids, s.EmployeeIDs...)
	}
	return ids
}

// StopIndexOf returns the index of the stop holding the employee, or -1.
func (r Route) StopIndexOf(employeeID int64) int {
	for i, s := range r.Stops {
		if s.HasEmployee(employeeID) {
			return i
		}
	}
	return -1
}

func (r Route) Clone() Route {
	out := r
	out.Stops = make([]Stop, len(r.Stops))
	for i, s := range r.Stops {
		out.Stops[i] = s.Clone()
	}
	out.Polyline = append([]Coordinates(nil), r.Polyline...)
	return out
}
