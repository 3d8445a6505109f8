package distance

import (
	"context"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/ports"
	"sync"
)

type MockPair struct {
	From, To domain.Coordinates
	Meters   float64
	Seconds  float64
	Polyline []domain.Coordinates
	Err      error
}

// MockDistanceProvider serves fixed legs for tests. Unknown pairs fail with
// ports.ErrProviderUnavailable unless StraightLine is set, in which case they
// are answered with the great-circle distance at 10 m/s.
type MockDistanceProvider struct {
	StraightLine bool

	mu    sync.Mutex
	m     map[string]MockPair
	calls int
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]MockPair, len(pairs))
	for _, p := range pairs {
		m[p.From.Key()+"|"+p.To.Key()] = p
	}
	return &MockDistanceProvider{m: m}
}

// NewStraightLineProvider answers every pair from great-circle distance.
func NewStraightLineProvider() *MockDistanceProvider {
	p := NewMockDistanceProvider(nil)
	p.StraightLine = true
	return p
}

func (p *MockDistanceProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *MockDistanceProvider) GetRoute(ctx context.Context, from, to domain.Coordinates) (ports.Leg, error) {
	p.mu.Lock()
	p.calls++
	pair, ok := p.m[from.Key()+"|"+to.Key()]
	p.mu.Unlock()

	if !ok {
		if p.StraightLine {
			d := from.DistanceTo(to)
			return ports.Leg{DistanceMeters: d, DurationSeconds: d / 10, Polyline: []domain.Coordinates{from, to}}, nil
		}
		return ports.Leg{}, fmt.Errorf("%w: missing pair %s -> %s", ports.ErrProviderUnavailable, from.Key(), to.Key())
	}
	if pair.Err != nil {
		return ports.Leg{}, pair.Err
	}

	line := pair.Polyline
	if line == nil {
		line = []domain.Coordinates{from, to}
	}
	return ports.Leg{
		DistanceMeters:  pair.Meters,
		DurationSeconds: pair.Seconds,
		Polyline:        append([]domain.Coordinates(nil), line...),
	}, nil
}
