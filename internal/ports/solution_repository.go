package ports

import (
	"context"
	"shuttle-route-service/internal/domain"
)

// Port: storage for solutions and their routes. Implementations must
// round-trip distance, duration and polyline without loss.
type SolutionRepository interface {
	SaveSolution(ctx context.Context, sol *domain.Solution) error
	// Returns domain.ErrNotFound for an unknown id.
	GetSolution(ctx context.Context, id string) (*domain.Solution, error)
	// Lists solutions newest first, without routes.
	ListSolutions(ctx context.Context) ([]*domain.Solution, error)
	DeleteSolution(ctx context.Context, id string) error
}
