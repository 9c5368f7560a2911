// Package cache provides a Redis decorator over the chart queries.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"market-dashboard/internal/analytics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Charts is the chart query surface being cached.
type Charts interface {
	Version(ctx context.Context) (string, error)
	Years(ctx context.Context) ([]int, error)
	Tickers(ctx context.Context, year int) ([]string, error)
	LossProfit(ctx context.Context, year int) (*analytics.LossProfitChart, error)
	PercentageChange(ctx context.Context, year int) (*analytics.PercentageChangeChart, error)
	MonthlyVolume(ctx context.Context, year int) (*analytics.MonthlyVolumeChart, error)
	AdjClose(ctx context.Context, year int, ticker string) (*analytics.AdjCloseChart, error)
}

var _ Charts = (*analytics.Service)(nil)

// ChartCache decorates Charts with Redis caching. Keys carry the table
// version, so a reload with new data never serves stale charts.
// A nil client disables caching.
type ChartCache struct {
	inner     Charts
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	logger    *zap.Logger
}

var _ Charts = (*ChartCache)(nil)

// NewChartCache wraps inner. If ttl is 0 it defaults to 5 minutes; an empty
// namespace becomes "charts".
func NewChartCache(rdb *redis.Client, ttl time.Duration, inner Charts, namespace string, logger *zap.Logger) *ChartCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "charts"
	}
	return &ChartCache{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		logger:    logger,
	}
}

// Version is never cached.
func (c *ChartCache) Version(ctx context.Context) (string, error) {
	return c.inner.Version(ctx)
}

// Years is cheap enough to pass through.
func (c *ChartCache) Years(ctx context.Context) ([]int, error) {
	return c.inner.Years(ctx)
}

func (c *ChartCache) Tickers(ctx context.Context, year int) ([]string, error) {
	return cached(ctx, c, fmt.Sprintf("tickers:%d", year), func() ([]string, error) {
		return c.inner.Tickers(ctx, year)
	})
}

func (c *ChartCache) LossProfit(ctx context.Context, year int) (*analytics.LossProfitChart, error) {
	return cached(ctx, c, fmt.Sprintf("loss-profit:%d", year), func() (*analytics.LossProfitChart, error) {
		return c.inner.LossProfit(ctx, year)
	})
}

func (c *ChartCache) PercentageChange(ctx context.Context, year int) (*analytics.PercentageChangeChart, error) {
	return cached(ctx, c, fmt.Sprintf("percentage-change:%d", year), func() (*analytics.PercentageChangeChart, error) {
		return c.inner.PercentageChange(ctx, year)
	})
}

func (c *ChartCache) MonthlyVolume(ctx context.Context, year int) (*analytics.MonthlyVolumeChart, error) {
	return cached(ctx, c, fmt.Sprintf("monthly-volume:%d", year), func() (*analytics.MonthlyVolumeChart, error) {
		return c.inner.MonthlyVolume(ctx, year)
	})
}

func (c *ChartCache) AdjClose(ctx context.Context, year int, ticker string) (*analytics.AdjCloseChart, error) {
	return cached(ctx, c, fmt.Sprintf("adj-close:%d:%s", year, safe(ticker)), func() (*analytics.AdjCloseChart, error) {
		return c.inner.AdjClose(ctx, year, ticker)
	})
}

// cached checks Redis first, then falls back to load and stores its result.
// Cache failures are logged and never fail the query.
func cached[T any](ctx context.Context, c *ChartCache, query string, load func() (T, error)) (T, error) {
	if c.rdb == nil {
		return load()
	}

	version, err := c.inner.Version(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	key := c.cacheKey(version, query)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out T
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	} else if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("Chart cache read failed", zap.String("key", key), zap.Error(err))
	}

	out, err := load()
	if err != nil {
		return out, err
	}

	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.logger.Warn("Chart cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}

func (c *ChartCache) cacheKey(version, query string) string {
	return fmt.Sprintf("%s:%s:%s", c.namespace, safe(version), query)
}

// safe escapes s for use as one Redis key segment. The escaping is
// reversible, so distinct inputs never share a key.
func safe(s string) string {
	return url.QueryEscape(s)
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}
