package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Cache stores resolved coordinates by normalised address.
type Cache interface {
	Get(ctx context.Context, key string) (Coordinates, bool, error)
	Set(ctx context.Context, key string, value Coordinates) error
}

// LRUCache is an in-process cache with per-entry expiry.
type LRUCache struct {
	lru *expirable.LRU[string, Coordinates]
}

// NewLRUCache creates a cache holding up to size entries for ttl each.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 512
	}
	return &LRUCache{lru: expirable.NewLRU[string, Coordinates](size, nil, ttl)}
}

// Get implements Cache.
func (c *LRUCache) Get(_ context.Context, key string) (Coordinates, bool, error) {
	value, ok := c.lru.Get(key)
	return value, ok, nil
}

// Set implements Cache.
func (c *LRUCache) Set(_ context.Context, key string, value Coordinates) error {
	c.lru.Add(key, value)
	return nil
}

// Len reports the number of live entries.
func (c *LRUCache) Len() int {
	return c.lru.Len()
}

const redisKeyPrefix = "geocode:"

// RedisCache shares geocode results between instances.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache wraps client. Entries expire after ttl; zero keeps them indefinitely.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (Coordinates, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Coordinates{}, false, nil
	}
	if err != nil {
		return Coordinates{}, false, fmt.Errorf("geocode cache get: %w", err)
	}
	var value Coordinates
	if err := json.Unmarshal(raw, &value); err != nil {
		return Coordinates{}, false, fmt.Errorf("geocode cache decode: %w", err)
	}
	return value, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value Coordinates) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("geocode cache encode: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("geocode cache set: %w", err)
	}
	return nil
}

// CachedGeocoder consults a Cache before delegating to the provider. Only successful lookups are
// cached. Cache failures are logged and treated as misses.
type CachedGeocoder struct {
	next    Geocoder
	cache   Cache
	logger  *slog.Logger
	lookups *prometheus.CounterVec
}

// NewCachedGeocoder wraps next. When registerer is non-nil a lookup counter labelled by result
// (hit, miss, error) is registered on it.
func NewCachedGeocoder(next Geocoder, cache Cache, logger *slog.Logger, registerer prometheus.Registerer) (*CachedGeocoder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &CachedGeocoder{next: next, cache: cache, logger: logger.With("component", "geocode")}
	if registerer != nil {
		g.lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sublease",
			Subsystem: "geocode",
			Name:      "lookups_total",
			Help:      "Geocode lookups by cache outcome.",
		}, []string{"result"})
		if err := registerer.Register(g.lookups); err != nil {
			return nil, fmt.Errorf("register geocode metrics: %w", err)
		}
	}
	return g, nil
}

// Geocode implements Geocoder.
func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (Coordinates, error) {
	key := cacheKey(address)
	if g.cache != nil {
		value, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			g.logger.WarnContext(ctx, "geocode cache read failed", "error", err)
		} else if ok {
			g.observe("hit")
			return value, nil
		}
	}

	value, err := g.next.Geocode(ctx, address)
	if err != nil {
		g.observe("error")
		return Coordinates{}, err
	}
	g.observe("miss")

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, value); err != nil {
			g.logger.WarnContext(ctx, "geocode cache write failed", "error", err)
		}
	}
	return value, nil
}

func (g *CachedGeocoder) observe(result string) {
	if g.lookups != nil {
		g.lookups.WithLabelValues(result).Inc()
	}
}
