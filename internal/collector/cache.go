package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"CryptoForecast/internal/model"
)

// CachedFetcher serves monthly series from Redis, falling through to Inner
// on a miss. Redis failures are logged and never fail the fetch.
type CachedFetcher struct {
	Inner  Fetcher
	Client redis.Cmdable
	TTL    time.Duration
	Log    zerolog.Logger
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rdb, nil
}

func (c *CachedFetcher) Name() string { return c.Inner.Name() + "+redis" }

func cacheKey(source, symbol, market string) string {
	return fmt.Sprintf("cryptoforecast:monthly:%s:%s:%s", source, strings.ToUpper(symbol), strings.ToUpper(market))
}

func (c *CachedFetcher) FetchMonthly(ctx context.Context, symbol, market string) (model.PriceSeries, error) {
	key := cacheKey(c.Inner.Name(), symbol, market)

	val, err := c.Client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var s model.PriceSeries
		jerr := json.Unmarshal([]byte(val), &s)
		if jerr == nil {
			c.Log.Debug().Str("key", key).Int("observations", s.Len()).Msg("cache hit")
			return s, nil
		}
		c.Log.Warn().Err(jerr).Str("key", key).Msg("discarding corrupt cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.Log.Warn().Err(err).Str("key", key).Msg("redis get failed, fetching directly")
	}

	s, err := c.Inner.FetchMonthly(ctx, symbol, market)
	if err != nil {
		return model.PriceSeries{}, err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return s, nil
	}
	if err := c.Client.Set(ctx, key, string(data), c.TTL).Err(); err != nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
	return s, nil
}
