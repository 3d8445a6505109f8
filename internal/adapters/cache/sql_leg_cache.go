package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/obs"
	"shuttle-route-service/internal/ports"
)

// SQLLegCache is a Postgres-backed cache for origin->destination legs.
type SQLLegCache struct {
	DB *sql.DB
}

func NewSQLLegCache(db *sql.DB) *SQLLegCache {
	return &SQLLegCache{DB: db}
}

// Fetch a cached leg; ok is false on a miss.
func (s *SQLLegCache) GetLeg(
	ctx context.Context,
	from domain.Coordinates,
	to domain.Coordinates,
) (_ ports.Leg, _ bool, err error) {
	defer obs.Time(ctx, "leg.cache.GetLeg")(&err)

	if s.DB == nil {
		return ports.Leg{}, false, errors.New("leg cache: db is nil")
	}

	q := `
	SELECT distance_meters, duration_seconds, polyline
	FROM leg_cache
	WHERE origin = $1
		AND destination = $2;
	`

	var meters, seconds float64
	var raw []byte
	err = s.DB.QueryRowContext(ctx, q, from.Key(), to.Key()).Scan(&meters, &seconds, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Leg{}, false, nil
	}
	if err != nil {
		return ports.Leg{}, false, fmt.Errorf("get leg cache: query leg_cache table: %w", err)
	}

	var line []domain.Coordinates
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &line); err != nil {
			return ports.Leg{}, false, fmt.Errorf("get leg cache: decode polyline: %w", err)
		}
	}

	return ports.Leg{DistanceMeters: meters, DurationSeconds: seconds, Polyline: line}, true, nil
}

// Store one leg, replacing any earlier value.
func (s *SQLLegCache) PutLeg(
	ctx context.Context,
	from domain.Coordinates,
	to domain.Coordinates,
	leg ports.Leg,
) error {
	if s.DB == nil {
		return errors.New("leg cache: db is nil")
	}

	raw, err := json.Marshal(leg.Polyline)
	if err != nil {
		return fmt.Errorf("insert leg cache: encode polyline: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO leg_cache (origin, destination, distance_meters, duration_seconds, polyline)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		polyline = EXCLUDED.polyline;
	`, from.Key(), to.Key(), leg.DistanceMeters, leg.DurationSeconds, raw)
	if err != nil {
		return fmt.Errorf("insert leg cache %s -> %s: %w", from.Key(), to.Key(), err)
	}

	return nil
}
