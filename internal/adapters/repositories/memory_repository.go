package repositories

import (
	"context"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/ports"
	"sort"
	"sync"
)

// In-memory EmployeeRepository, used when no database is configured and in tests.
type MemoryEmployeeRepository struct {
	mu        sync.RWMutex
	employees map[int64]domain.Employee
}

func NewMemoryEmployeeRepository(employees []domain.Employee) *MemoryEmployeeRepository {
	r := &MemoryEmployeeRepository{employees: make(map[int64]domain.Employee, len(employees))}
	for _, e := range employees {
		r.employees[e.ID] = e
	}
	return r
}

// LoadEmployeeSeeds reads the same JSON file the database seeder uses.
func LoadEmployeeSeeds(jsonPath string) ([]domain.Employee, error) {
	rows, err := readSeeds(jsonPath)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Employee, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Employee{
			ID:      r.ID,
			Name:    r.Name,
			Home:    domain.Coordinates{Lat: r.Lat, Lng: r.Lng},
			ShiftID: r.ShiftID,
		})
	}
	return out, nil
}

// Upsert adds or replaces an employee.
func (r *MemoryEmployeeRepository) Upsert(e domain.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[e.ID] = e
}

func (r *MemoryEmployeeRepository) ListEmployees(_ context.Context, filter ports.EmployeeFilter) ([]domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Employee, 0, len(r.employees))
	switch {
	case len(filter.IDs) > 0:
		seen := make(map[int64]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if e, ok := r.employees[id]; ok {
				out = append(out, e)
			}
		}
	default:
		for _, e := range r.employees {
			if filter.ShiftID != nil && (e.ShiftID == nil || *e.ShiftID != *filter.ShiftID) {
				continue
			}
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryEmployeeRepository) GetEmployee(_ context.Context, id int64) (domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.employees[id]
	if !ok {
		return domain.Employee{}, fmt.Errorf("employee %d: %w", id, domain.ErrNotFound)
	}
	return e, nil
}

// In-memory SolutionRepository. Stored values are deep copies, so callers
// never share state with the store.
type MemorySolutionRepository struct {
	mu        sync.RWMutex
	solutions map[string]*domain.Solution
}

func NewMemorySolutionRepository() *MemorySolutionRepository {
	return &MemorySolutionRepository{solutions: make(map[string]*domain.Solution)}
}

func (r *MemorySolutionRepository) SaveSolution(_ context.Context, sol *domain.Solution) error {
	if sol == nil || sol.ID == "" {
		return fmt.Errorf("save solution: %w: missing id", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solutions[sol.ID] = sol.Clone()
	return nil
}

func (r *MemorySolutionRepository) GetSolution(_ context.Context, id string) (*domain.Solution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sol, ok := r.solutions[id]
	if !ok {
		return nil, fmt.Errorf("solution %s: %w", id, domain.ErrNotFound)
	}
	return sol.Clone(), nil
}

func (r *MemorySolutionRepository) ListSolutions(_ context.Context) ([]*domain.Solution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Solution, 0, len(r.solutions))
	for _, sol := range r.solutions {
		c := sol.Clone()
		c.Routes = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemorySolutionRepository) DeleteSolution(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.solutions[id]; !ok {
		return fmt.Errorf("solution %s: %w", id, domain.ErrNotFound)
	}
	delete(r.solutions, id)
	return nil
}
