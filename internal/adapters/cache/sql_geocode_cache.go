package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/platform/obs"
	"time"
)

// SQLGeocodeCache keeps geocoder answers in Postgres. Rows older than TTL
// read as misses so a moved address is eventually resolved again.
type SQLGeocodeCache struct {
	DB  *sql.DB
	TTL time.Duration

	now func() time.Time
}

// A zero ttl keeps entries forever.
func NewSQLGeocodeCache(db *sql.DB, ttl time.Duration) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db, TTL: ttl, now: time.Now}
}

func (s *SQLGeocodeCache) GetGeocode(ctx context.Context, address string) (_ domain.Coordinates, _ bool, err error) {
	defer obs.Time(ctx, "geocode.cache.GetGeocode")(&err)

	if s.DB == nil {
		return domain.Coordinates{}, false, errors.New("geocode cache: db is nil")
	}

	q := `
	SELECT lat, lng, fetched_at
	FROM geocode_cache
	WHERE address = $1;
	`

	var c domain.Coordinates
	var fetchedAt time.Time
	err = s.DB.QueryRowContext(ctx, q, address).Scan(&c.Lat, &c.Lng, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coordinates{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("get geocode cache %q: %w", address, err)
	}

	if s.TTL > 0 && s.now().Sub(fetchedAt) > s.TTL {
		return domain.Coordinates{}, false, nil
	}
	return c, true, nil
}

// Store one address and restart its TTL.
func (s *SQLGeocodeCache) PutGeocode(ctx context.Context, address string, c domain.Coordinates) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO geocode_cache (address, lat, lng, fetched_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (address) DO UPDATE
	SET lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		fetched_at = EXCLUDED.fetched_at;
	`, address, c.Lat, c.Lng, s.now().UTC())
	if err != nil {
		return fmt.Errorf("insert geocode cache %q: %w", address, err)
	}
	return nil
}

// PurgeExpired deletes rows past the TTL and reports how many went.
func (s *SQLGeocodeCache) PurgeExpired(ctx context.Context) (_ int64, err error) {
	defer obs.Time(ctx, "geocode.cache.PurgeExpired")(&err)

	if s.DB == nil {
		return 0, errors.New("geocode cache: db is nil")
	}
	if s.TTL <= 0 {
		return 0, nil
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM geocode_cache WHERE fetched_at < $1;`, s.now().Add(-s.TTL).UTC())
	if err != nil {
		return 0, fmt.Errorf("purge geocode cache: %w", err)
	}
	return res.RowsAffected()
}
