package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds the process-wide settings read from the environment.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// Empty DATABASE_URL selects the in-memory repositories.
	DatabaseURL  string
	DBMaxConns   int
	RedisURL     string
	LegCacheTTL  time.Duration
	SeedPath     string
	FleetCatalog string

	OSRMURL       string
	OSRMProfile   string
	OSRMTimeout   time.Duration
	OSRMRateLimit float64
	OSRMBurst     int

	ORSAPIKey  string
	ORSBaseURL string

	MatrixConcurrency int
	SolverTimeLimit   time.Duration
	SolverStrategy    string
	AttachRadius      float64
}

// Load reads .env (if present) and the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found (using environment variables)")
	}

	return Config{
		Port:      Get("PORT", "8080"),
		LogLevel:  Get("LOG_LEVEL", "info"),
		LogFormat: Get("LOG_FORMAT", "json"),

		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:   GetInt("DB_MAX_CONNS", 10),
		RedisURL:     strings.TrimSpace(os.Getenv("REDIS_URL")),
		LegCacheTTL:  GetDuration("LEG_CACHE_TTL", 7*24*time.Hour),
		SeedPath:     Get("SEED_PATH", "data/seeds/employees.json"),
		FleetCatalog: os.Getenv("FLEET_CATALOG"),

		OSRMURL:       Get("OSRM_URL", "http://router.project-osrm.org"),
		OSRMProfile:   Get("OSRM_PROFILE", "driving"),
		OSRMTimeout:   GetDuration("OSRM_TIMEOUT", 10*time.Second),
		OSRMRateLimit: GetFloat("OSRM_RATE_LIMIT", 20),
		OSRMBurst:     GetInt("OSRM_BURST", 5),

		ORSAPIKey:  os.Getenv("ORS_API_KEY"),
		ORSBaseURL: Get("ORS_BASE_URL", "https://api.openrouteservice.org"),

		MatrixConcurrency: GetInt("MATRIX_CONCURRENCY", 5),
		SolverTimeLimit:   GetDuration("SOLVER_TIME_LIMIT", 30*time.Second),
		SolverStrategy:    Get("SOLVER_STRATEGY", "alns"),
		AttachRadius:      GetFloat("ATTACH_RADIUS_METERS", 400),
	}
}

func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": v}).Warn("invalid integer, using default")
		return fallback
	}
	return n
}

func GetFloat(key string, fallback float64) float64 {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": v}).Warn("invalid number, using default")
		return fallback
	}
	return f
}

// GetDuration accepts Go durations ("30s") or a bare number of seconds.
func GetDuration(key string, fallback time.Duration) time.Duration {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.WithFields(log.Fields{"key": key, "value": v}).Warn("invalid duration, using default")
	return fallback
}
