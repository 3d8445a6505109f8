package domain

// Represents a pickup point shared by one or more employees.
// Location is the arithmetic-mean centroid of the member homes unless the
// stop was moved by an edit.
type Stop struct {
	ID          int
	Name        string
	Location    Coordinates
	EmployeeIDs []int64
	// WalkBound is the maximum walking distance (meters) used when the stop was formed.
	WalkBound float64
	// MaxWalkDistance is the largest member home -> Location distance in meters.
	MaxWalkDistance float64
	Singleton       bool

	// Leg metrics between this stop and the depot, filled by pricing.
	DepotDistanceMeters  float64
	DepotDurationSeconds float64
}

func (s Stop) EmployeeCount() int { return len(s.EmployeeIDs) }

func (s Stop) HasEmployee(id int64) bool {
	for _, e := range s.EmployeeIDs {
		if e == id {
			return true
		}
	}
	return false
}

func (s Stop) Clone() Stop {
	out := s
	out.EmployeeIDs = append([]int64(nil), s.EmployeeIDs...)
	return out
}
