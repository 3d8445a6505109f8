package distance

import (
	"context"
	"errors"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/ports"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockDistanceProvider(t *testing.T) {
	boom := errors.New("boom")
	p := NewMockDistanceProvider([]MockPair{
		{From: levent, To: besiktas, Meters: 100, Seconds: 10},
		{From: besiktas, To: kadikoy, Err: boom},
	})
	ctx := context.Background()

	leg, err := p.GetRoute(ctx, levent, besiktas)
	require.NoError(t, err)
	assert.Equal(t, ports.Leg{DistanceMeters: 100, DurationSeconds: 10, Polyline: []domain.Coordinates{levent, besiktas}}, leg)

	_, err = p.GetRoute(ctx, besiktas, kadikoy)
	assert.ErrorIs(t, err, boom)

	_, err = p.GetRoute(ctx, besiktas, levent)
	assert.ErrorIs(t, err, ports.ErrProviderUnavailable)
	assert.Equal(t, 3, p.Calls())
}

func TestStraightLineProvider(t *testing.T) {
	leg, err := NewStraightLineProvider().GetRoute(context.Background(), levent, kadikoy)
	require.NoError(t, err)
	d := levent.DistanceTo(kadikoy)
	assert.InDelta(t, d, leg.DistanceMeters, 1e-9)
	assert.InDelta(t, d/10, leg.DurationSeconds, 1e-9)
}
