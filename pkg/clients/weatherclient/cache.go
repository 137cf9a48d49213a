package weatherclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Source supplies a current temperature in °F
type Source interface {
	CurrentTempF(ctx context.Context) (float64, error)
}

// CachedSource shares one lookup across terminals through redis. Redis
// failures fall through to the source.
type CachedSource struct {
	source Source
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSource wraps source with a redis entry keyed by station
func NewCachedSource(source Source, rdb *redis.Client, station string, ttl time.Duration, logger *zap.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		rdb:    rdb,
		key:    CacheKey(station),
		ttl:    ttl,
		logger: logger,
	}
}

// CacheKey is the redis key holding a station's outside temperature
func CacheKey(station string) string {
	return fmt.Sprintf("tail-temps:%s:outside_temp_f", station)
}

// CurrentTempF returns the cached temperature, fetching and caching it on a miss
func (c *CachedSource) CurrentTempF(ctx context.Context) (float64, error) {
	val, err := c.rdb.Get(ctx, c.key).Result()
	switch {
	case err == nil:
		temp, perr := strconv.ParseFloat(val, 64)
		if perr == nil {
			return temp, nil
		}
		c.logger.Warn("Discarding unreadable cached temperature", zap.String("value", val))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("Weather cache unavailable", zap.Error(err))
	}

	temp, err := c.source.CurrentTempF(ctx)
	if err != nil {
		return 0, err
	}

	if err := c.rdb.Set(ctx, c.key, strconv.FormatFloat(temp, 'f', -1, 64), c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache outside temperature", zap.Error(err))
	}
	return temp, nil
}
