package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

// RedisCache shares resolved jurisdictions between server instances.
// Each cell is stored as a string key with a TTL; cell members are also
// kept in a geo set so nearby cells can be reused.
type RedisCache struct {
	client *redis.Client
	prefix string
	opts   CacheOptions
}

// NewRedisCache creates a cache on client with keys under prefix
func NewRedisCache(client *redis.Client, prefix string, opts CacheOptions) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, opts: opts.withDefaults()}
}

func (c *RedisCache) cellKey(cell string) string {
	return c.prefix + "cell:" + cell
}

func (c *RedisCache) geoKey() string {
	return c.prefix + "geo"
}

// Lookup implements Cache
func (c *RedisCache) Lookup(ctx context.Context, p spatial.GeoPoint) (jurisdiction.Code, bool, error) {
	cell := spatial.CellKey(p, c.opts.CellPrecision)
	code, ok, err := c.get(ctx, cell)
	if err != nil || ok {
		return code, ok, err
	}

	if c.opts.ReuseRadiusM <= 0 {
		return jurisdiction.Unknown, false, nil
	}

	nearby, err := c.client.GeoRadius(ctx, c.geoKey(), p.Longitude, p.Latitude, &redis.GeoRadiusQuery{
		Radius: c.opts.ReuseRadiusM,
		Unit:   "m",
		Sort:   "ASC",
		Count:  8,
	}).Result()
	if err != nil {
		return jurisdiction.Unknown, false, fmt.Errorf("geo radius failed: %w", err)
	}

	var stale []interface{}
	defer func() {
		// expired cells linger in the geo set until seen here
		if len(stale) > 0 {
			c.client.ZRem(ctx, c.geoKey(), stale...)
		}
	}()

	for _, loc := range nearby {
		if loc.Name == cell {
			stale = append(stale, loc.Name)
			continue
		}
		code, ok, err := c.get(ctx, loc.Name)
		if err != nil {
			return jurisdiction.Unknown, false, err
		}
		if ok {
			return code, true, nil
		}
		stale = append(stale, loc.Name)
	}
	return jurisdiction.Unknown, false, nil
}

// Store implements Cache
func (c *RedisCache) Store(ctx context.Context, p spatial.GeoPoint, code jurisdiction.Code) error {
	cell := spatial.CellKey(p, c.opts.CellPrecision)

	if err := c.client.Set(ctx, c.cellKey(cell), string(code), c.opts.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store geocode cell: %w", err)
	}

	err := c.client.GeoAdd(ctx, c.geoKey(), &redis.GeoLocation{
		Name:      cell,
		Longitude: p.Longitude,
		Latitude:  p.Latitude,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to index geocode cell: %w", err)
	}
	return nil
}

func (c *RedisCache) get(ctx context.Context, cell string) (jurisdiction.Code, bool, error) {
	val, err := c.client.Get(ctx, c.cellKey(cell)).Result()
	if errors.Is(err, redis.Nil) {
		return jurisdiction.Unknown, false, nil
	}
	if err != nil {
		return jurisdiction.Unknown, false, fmt.Errorf("failed to read geocode cell: %w", err)
	}
	return jurisdiction.Code(val), true, nil
}

// NoopCache never stores anything
type NoopCache struct{}

func (NoopCache) Lookup(context.Context, spatial.GeoPoint) (jurisdiction.Code, bool, error) {
	return jurisdiction.Unknown, false, nil
}

func (NoopCache) Store(context.Context, spatial.GeoPoint, jurisdiction.Code) error {
	return nil
}
