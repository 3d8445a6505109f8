package domain

// Employee is a rider picked up at (or dropped off near) their home.
// A solve works on a snapshot; the core never mutates employees.
type Employee struct {
	ID      int64
	Name    string
	Home    Coordinates
	ShiftID *int64
}
