package api

import (
	"net/http"
	"shuttle-route-service/internal/api/handlers"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/metrics"
	"shuttle-route-service/internal/ports"
	"shuttle-route-service/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies of the HTTP layer.
type Deps struct {
	Planner      *services.SolutionPlanner
	Engine       *services.RouteEditEngine
	Solutions    ports.SolutionRepository
	VehicleTypes []domain.VehicleType
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	solutions := &handlers.SolutionHandler{
		Planner:      d.Planner,
		Solutions:    d.Solutions,
		VehicleTypes: d.VehicleTypes,
	}
	routes := &handlers.RouteHandler{Engine: d.Engine}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /clusters", solutions.Cluster)
	mux.HandleFunc("POST /solutions", solutions.Create)
	mux.HandleFunc("GET /solutions", solutions.List)
	mux.HandleFunc("GET /solutions/{id}", solutions.Get)
	mux.HandleFunc("DELETE /solutions/{id}", solutions.Delete)

	const route = "/solutions/{id}/routes/{routeID}"
	for _, kind := range handlers.MutationKinds {
		mux.HandleFunc("POST "+route+"/"+kind, routes.Apply(kind))
		mux.HandleFunc("POST "+route+"/"+kind+"/preview", routes.Propose(kind))
	}
	mux.HandleFunc("GET "+route+"/preview", routes.Pending)
	mux.HandleFunc("POST "+route+"/commit", routes.Commit)
	mux.HandleFunc("POST "+route+"/discard", routes.Discard)
	mux.HandleFunc("POST "+route+"/reoptimize", routes.Reoptimize)

	return loggingMiddleware(mux)
}
