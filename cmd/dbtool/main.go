package main

import (
	"context"
	"database/sql"
	"flag"
	"shuttle-route-service/internal/adapters/cache"
	"shuttle-route-service/internal/adapters/repositories"
	"shuttle-route-service/internal/config"
	"shuttle-route-service/internal/platform/db"
	"shuttle-route-service/internal/platform/obs"

	log "github.com/sirupsen/logrus"
)

// dbtool creates the schema and loads employees from the seed file. With
// -purge-geocodes it only drops expired geocode cache rows.
func main() {
	seedOnly := flag.Bool("seed-only", false, "skip schema creation")
	schemaOnly := flag.Bool("schema-only", false, "skip seeding")
	purgeGeocodes := flag.Bool("purge-geocodes", false, "delete geocode cache rows older than LEG_CACHE_TTL and exit")
	flag.Parse()

	cfg := config.Load()
	obs.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer conn.Close()

	if *purgeGeocodes {
		n, err := cache.NewSQLGeocodeCache(conn, cfg.LegCacheTTL).PurgeExpired(ctx)
		if err != nil {
			log.WithError(err).Fatal("purge geocode cache")
		}
		log.WithField("rows", n).Info("geocode cache purged")
		return
	}

	if err := initAndSeed(ctx, conn, cfg.SeedPath, !*seedOnly, !*schemaOnly); err != nil {
		log.WithError(err).Fatal("dbtool failed")
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, seedPath string, schema, seed bool) error {
	if schema {
		log.Info("initializing database schema")
		if err := repositories.InitSchema(ctx, conn); err != nil {
			return err
		}
		log.Info("schema ready")
	}

	if seed {
		log.WithField("path", seedPath).Info("seeding employees")
		n, err := repositories.SeedEmployeesFromJSON(ctx, conn, seedPath)
		if err != nil {
			return err
		}
		log.WithField("employees", n).Info("seeding complete")
	}

	return nil
}
