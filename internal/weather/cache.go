package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stwalsh4118/farmboard/internal/geo"
)

// cacheKeyPrecision groups nearby coordinates (about 1 km) under one entry.
const cacheKeyPrecision = 2

// Cache stores reports by coordinate.
type Cache interface {
	Get(ctx context.Context, at geo.Coordinate) (*Report, bool, error)
	Set(ctx context.Context, at geo.Coordinate, report *Report, ttl time.Duration) error
}

// CacheKey returns the key for at, rounded so that nearby requests share an entry.
func CacheKey(prefix string, at geo.Coordinate) string {
	r := at.Round(cacheKeyPrecision)
	return prefix + strconv.FormatFloat(r.Lat, 'f', cacheKeyPrecision, 64) +
		":" + strconv.FormatFloat(r.Lng, 'f', cacheKeyPrecision, 64)
}

// RedisCache keeps JSON reports in Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a cache on client. Keys are prefixed with prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get returns the cached report. A missing key is not an error.
func (c *RedisCache) Get(ctx context.Context, at geo.Coordinate) (*Report, bool, error) {
	data, err := c.client.Get(ctx, CacheKey(c.prefix, at)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, true, nil
}

// Set stores report for ttl.
func (c *RedisCache) Set(ctx context.Context, at geo.Coordinate, report *Report, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, CacheKey(c.prefix, at), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// OpenRedis creates a client for addr and checks it answers. It returns nil and the
// ping error when Redis is unreachable, so callers can run without a cache.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address not configured")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
