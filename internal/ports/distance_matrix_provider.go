package ports

import (
	"context"
	"shuttle-route-service/internal/domain"
)

// One entry of a distance matrix. OK is false when the engine had no value
// for the pair; callers fall back per entry.
type MatrixCell struct {
	DistanceMeters  float64
	DurationSeconds float64
	OK              bool
}

// Square matrix indexed like the coordinates passed to GetMatrix.
type Matrix [][]MatrixCell

// Optional extension of DistanceProvider that supports batched lookups.
type MatrixProvider interface {
	DistanceProvider
	// Return the all-pairs matrix for the given points.
	GetMatrix(ctx context.Context, points []domain.Coordinates) (Matrix, error)
}
