package marketdata

import (
	"context"
	"time"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/internal/metrics"
	"github.com/wonny/carteira/pkg/logger"
	"github.com/wonny/carteira/pkg/redis"
)

// Cache is the JSON cache used for price windows (redis.Cache)
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedPriceSource serves repeated price requests from the cache
type CachedPriceSource struct {
	source  PriceSource
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Registry
	logger  *logger.Logger
}

// NewCachedPriceSource wraps a PriceSource; m may be nil
func NewCachedPriceSource(source PriceSource, cache Cache, ttl time.Duration, m *metrics.Registry, log *logger.Logger) *CachedPriceSource {
	return &CachedPriceSource{
		source:  source,
		cache:   cache,
		ttl:     ttl,
		metrics: m,
		logger:  log,
	}
}

// FetchPrices implements PriceSource
func (c *CachedPriceSource) FetchPrices(ctx context.Context, ticker string, from, to time.Time) (contracts.PriceSeries, error) {
	key := redis.PricesKey(ticker, from.Format("2006-01-02"), to.Format("2006-01-02"))

	var cached contracts.PriceSeries
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		// 캐시 장애는 원본 조회로 대체
		c.logger.WithError(err).WithField("key", key).Warn("Price cache read failed")
	}
	c.metrics.RecordCache("prices", found)
	if found {
		return cached, nil
	}

	series, err := c.source.FetchPrices(ctx, ticker, from, to)
	if err != nil {
		return contracts.PriceSeries{}, err
	}

	if err := c.cache.Set(ctx, key, series, c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Price cache write failed")
	}
	return series, nil
}
