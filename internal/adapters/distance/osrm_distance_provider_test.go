package distance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/ports"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	levent   = domain.Coordinates{Lat: 41.0820, Lng: 29.0100}
	besiktas = domain.Coordinates{Lat: 41.0430, Lng: 29.0050}
	kadikoy  = domain.Coordinates{Lat: 40.9900, Lng: 29.0290}
)

func newTestOSRM(t *testing.T, h http.HandlerFunc) *OSRMDistanceProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	o, err := NewOSRMDistanceProvider(srv.URL+"/", OSRMOptions{MaxTablePoints: 3})
	require.NoError(t, err)
	o.backoff = time.Millisecond
	return o
}

func TestOSRM_GetRoute(t *testing.T) {
	o := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/29.010000,41.082000;29.005000,41.043000", r.URL.Path)
		assert.Equal(t, "geojson", r.URL.Query().Get("geometries"))
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":5230.4,"duration":612.8,
			"geometry":{"coordinates":[[29.01,41.082],[29.008,41.06],[29.005,41.043]]}}]}`))
	})

	leg, err := o.GetRoute(context.Background(), levent, besiktas)
	require.NoError(t, err)
	assert.Equal(t, 5230.4, leg.DistanceMeters)
	assert.Equal(t, 612.8, leg.DurationSeconds)
	require.Len(t, leg.Polyline, 3)
	assert.Equal(t, domain.Coordinates{Lat: 41.06, Lng: 29.008}, leg.Polyline[1])
}

func TestOSRM_NoRoute(t *testing.T) {
	t.Run("ok status", func(t *testing.T) {
		o := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points"}`))
		})
		_, err := o.GetRoute(context.Background(), levent, kadikoy)
		assert.ErrorIs(t, err, ports.ErrNoRoute)
	})

	t.Run("bad request status", func(t *testing.T) {
		o := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":"NoSegment","message":"Could not find a matching segment"}`))
		})
		_, err := o.GetRoute(context.Background(), levent, kadikoy)
		assert.ErrorIs(t, err, ports.ErrNoRoute)
	})
}

func TestOSRM_RetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	o := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":1,"duration":2,"geometry":{"coordinates":[]}}]}`))
	})

	leg, err := o.GetRoute(context.Background(), levent, besiktas)
	require.NoError(t, err)
	assert.Equal(t, 1.0, leg.DistanceMeters)
	assert.EqualValues(t, 3, hits.Load())
}

func TestOSRM_UnavailableAfterRetries(t *testing.T) {
	var hits atomic.Int32
	o := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := o.GetRoute(context.Background(), levent, besiktas)
	assert.ErrorIs(t, err, ports.ErrProviderUnavailable)
	assert.EqualValues(t, 4, hits.Load())
}

func TestOSRM_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	o := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := o.GetRoute(context.Background(), levent, besiktas)
	assert.ErrorIs(t, err, ports.ErrProviderUnavailable)
	assert.EqualValues(t, 1, hits.Load())
}

func TestOSRM_InvalidCoordinates(t *testing.T) {
	o := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := o.GetRoute(context.Background(), domain.Coordinates{Lat: 120}, besiktas)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOSRM_GetMatrix(t *testing.T) {
	o := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/table/v1/driving/29.010000,41.082000;29.005000,41.043000", r.URL.Path)
		assert.Equal(t, "distance,duration", r.URL.Query().Get("annotations"))
		w.Write([]byte(`{"code":"Ok",
			"distances":[[0,5230.4],[null,0]],
			"durations":[[0,612.8],[null,0]]}`))
	})

	m, err := o.GetMatrix(context.Background(), []domain.Coordinates{levent, besiktas})
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Equal(t, ports.MatrixCell{DistanceMeters: 5230.4, DurationSeconds: 612.8, OK: true}, m[0][1])
	assert.False(t, m[1][0].OK)
	assert.True(t, m[1][1].OK)
}

func TestOSRM_GetMatrixLimits(t *testing.T) {
	o := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"Ok","distances":[[0]],"durations":[[0]]}`))
	})

	_, err := o.GetMatrix(context.Background(), []domain.Coordinates{levent, besiktas, kadikoy, levent})
	assert.ErrorIs(t, err, ports.ErrProviderUnavailable)

	// row count mismatch
	_, err = o.GetMatrix(context.Background(), []domain.Coordinates{levent, besiktas})
	assert.ErrorIs(t, err, ports.ErrProviderUnavailable)

	m, err := o.GetMatrix(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestNewOSRMDistanceProvider_EmptyURL(t *testing.T) {
	_, err := NewOSRMDistanceProvider("  ", OSRMOptions{})
	assert.Error(t, err)
}
