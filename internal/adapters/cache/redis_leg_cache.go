package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"shuttle-route-service/internal/domain"
	"shuttle-route-service/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisLegCache keeps provider legs in Redis with a TTL.
type RedisLegCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLegCache connects using a redis:// URL and pings the server.
func NewRedisLegCache(ctx context.Context, url string, ttl time.Duration) (*RedisLegCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis leg cache: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis leg cache: connection failed: %w", err)
	}

	return NewRedisLegCacheFromClient(client, ttl), nil
}

func NewRedisLegCacheFromClient(client *redis.Client, ttl time.Duration) *RedisLegCache {
	return &RedisLegCache{client: client, prefix: "shuttle:leg:", ttl: ttl}
}

func (c *RedisLegCache) Close() error {
	return c.client.Close()
}

func (c *RedisLegCache) key(from, to domain.Coordinates) string {
	return c.prefix + from.Key() + "|" + to.Key()
}

type cachedLeg struct {
	DistanceMeters  float64              `json:"distance_meters"`
	DurationSeconds float64              `json:"duration_seconds"`
	Polyline        []domain.Coordinates `json:"polyline"`
}

func (c *RedisLegCache) GetLeg(ctx context.Context, from, to domain.Coordinates) (ports.Leg, bool, error) {
	key := c.key(from, to)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		log.WithField("key", key).Debug("cache miss")
		return ports.Leg{}, false, nil
	}
	if err != nil {
		return ports.Leg{}, false, fmt.Errorf("redis leg cache get: %w", err)
	}

	var cl cachedLeg
	if err := json.Unmarshal(data, &cl); err != nil {
		return ports.Leg{}, false, fmt.Errorf("redis leg cache get: decode: %w", err)
	}
	return ports.Leg{DistanceMeters: cl.DistanceMeters, DurationSeconds: cl.DurationSeconds, Polyline: cl.Polyline}, true, nil
}

func (c *RedisLegCache) PutLeg(ctx context.Context, from, to domain.Coordinates, leg ports.Leg) error {
	data, err := json.Marshal(cachedLeg{
		DistanceMeters:  leg.DistanceMeters,
		DurationSeconds: leg.DurationSeconds,
		Polyline:        leg.Polyline,
	})
	if err != nil {
		return fmt.Errorf("redis leg cache put: encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(from, to), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis leg cache put: %w", err)
	}
	return nil
}
