package main

import (
	"context"
	"database/sql"
	"net/http"
	"shuttle-route-service/internal/adapters/cache"
	"shuttle-route-service/internal/adapters/distance"
	"shuttle-route-service/internal/adapters/repositories"
	"shuttle-route-service/internal/api"
	"shuttle-route-service/internal/config"
	"shuttle-route-service/internal/platform/db"
	"shuttle-route-service/internal/platform/metrics"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"
	"shuttle-route-service/internal/services"
	"time"

	log "github.com/sirupsen/logrus"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, OSRM, ORS) behind ports and starts the HTTP server.
func main() {
	cfg := config.Load()
	obs.Setup(cfg.LogLevel, cfg.LogFormat)
	metrics.RegisterDefault()

	ctx := context.Background()

	catalog, err := config.LoadFleetCatalog(cfg.FleetCatalog)
	if err != nil {
		log.WithError(err).Fatal("fleet catalog")
	}

	strategy, err := services.StrategyByName(cfg.SolverStrategy)
	if err != nil {
		log.WithError(err).Fatal("solver strategy")
	}

	var (
		conn      *sql.DB
		employees ports.EmployeeRepository
		solutions ports.SolutionRepository
	)
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			log.WithError(err).Fatal("database")
		}
		defer conn.Close()

		if err := repositories.InitSchema(ctx, conn); err != nil {
			log.WithError(err).Fatal("database schema")
		}
		employees = repositories.NewPostgresEmployeeRepository(conn)
		solutions = repositories.NewPostgresSolutionRepository(conn)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory repositories")
		seeds, err := repositories.LoadEmployeeSeeds(cfg.SeedPath)
		if err != nil {
			log.WithError(err).Warn("no employee seed loaded")
		}
		employees = repositories.NewMemoryEmployeeRepository(seeds)
		solutions = repositories.NewMemorySolutionRepository()
	}

	osrm, err := distance.NewOSRMDistanceProvider(cfg.OSRMURL, distance.OSRMOptions{
		Profile:       cfg.OSRMProfile,
		Timeout:       cfg.OSRMTimeout,
		RatePerSecond: cfg.OSRMRateLimit,
		Burst:         cfg.OSRMBurst,
	})
	if err != nil {
		log.WithError(err).Fatal("osrm provider")
	}

	// Legs are cached in Redis when available, else in Postgres.
	var provider ports.DistanceProvider = osrm
	switch {
	case cfg.RedisURL != "":
		legs, err := cache.NewRedisLegCache(ctx, cfg.RedisURL, cfg.LegCacheTTL)
		if err != nil {
			log.WithError(err).Fatal("redis leg cache")
		}
		defer legs.Close()
		provider = distance.NewCachedDistanceProvider(osrm, legs)
	case conn != nil:
		provider = distance.NewCachedDistanceProvider(osrm, cache.NewSQLLegCache(conn))
	}

	var geocoder ports.GeocodingProvider
	if cfg.ORSAPIKey != "" {
		var geocodeCache ports.GeocodeCache
		if conn != nil {
			geocodeCache = cache.NewSQLGeocodeCache(conn, cfg.LegCacheTTL)
		}
		g, err := distance.NewORSGeocoder(cfg.ORSAPIKey, cfg.ORSBaseURL, "", geocodeCache)
		if err != nil {
			log.WithError(err).Fatal("ors geocoder")
		}
		geocoder = g
	}

	solver := services.NewRouteSolver(strategy)
	planner := services.NewSolutionPlanner(
		employees, solutions, provider, geocoder,
		services.NewFleetModel(catalog.Vehicles), solver,
		services.PlannerOptions{
			MatrixConcurrency: cfg.MatrixConcurrency,
			DefaultTimeLimit:  cfg.SolverTimeLimit,
			FleetExpansions:   1,
		},
	)
	engine := services.NewRouteEditEngine(solutions, employees, provider, solver, services.EditOptions{
		AttachRadius:      cfg.AttachRadius,
		MatrixConcurrency: cfg.MatrixConcurrency,
	})

	router := api.NewRouter(api.Deps{
		Planner:      planner,
		Engine:       engine,
		Solutions:    solutions,
		VehicleTypes: catalog.Vehicles,
	})

	log.WithFields(log.Fields{
		"addr":     ":" + cfg.Port,
		"strategy": strategy.Name(),
		"osrm":     cfg.OSRMURL,
	}).Info("server listening")
	// Write timeout covers a full solve plus cold-cache routing calls.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.SolverTimeLimit + 120*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}
