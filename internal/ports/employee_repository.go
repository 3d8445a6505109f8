package ports

import (
	"context"
	"shuttle-route-service/internal/domain"
)

// Selects which employees take part in a solve. IDs win over ShiftID;
// an empty filter selects everyone.
type EmployeeFilter struct {
	IDs     []int64
	ShiftID *int64
}

// Port: read access to employees. Employee CRUD lives elsewhere.
type EmployeeRepository interface {
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]domain.Employee, error)
	// Returns domain.ErrNotFound when the employee does not exist.
	GetEmployee(ctx context.Context, id int64) (domain.Employee, error)
}
