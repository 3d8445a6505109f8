package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, route pattern and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolverRuns counts solver invocations by strategy and outcome
	SolverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_solver_runs_total", Help: "Route solver runs by strategy and outcome."},
		[]string{"strategy", "outcome"},
	)
	// SolverDuration tracks wall-clock solve time
	SolverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "route_solver_duration_seconds", Help: "Route solver wall-clock time in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30}},
		[]string{"strategy"},
	)
	// ProviderFallbacks counts legs priced with the straight-line estimate
	ProviderFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_provider_fallbacks_total", Help: "Legs priced with the haversine fallback, by caller."},
		[]string{"caller"},
	)
	// LegCacheLookups counts leg cache hits and misses
	LegCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "leg_cache_lookups_total", Help: "Leg cache lookups by result."},
		[]string{"result"},
	)
	// RouteEdits counts edit engine transitions by mutation and action
	RouteEdits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_edits_total", Help: "Route edit operations by mutation kind and action."},
		[]string{"kind", "action"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolverRuns)
		Registry.MustRegister(SolverDuration)
		Registry.MustRegister(ProviderFallbacks)
		Registry.MustRegister(LegCacheLookups)
		Registry.MustRegister(RouteEdits)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
