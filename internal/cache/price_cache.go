// Package cache keeps short-lived copies of upstream quotes in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"cryptopunks-analysis/internal/ingestion"
)

const keyPrefix = "price:"

// DefaultTTL is used when NewPriceCache is given a non-positive ttl.
const DefaultTTL = 5 * time.Minute

// LookupRecorder counts cache hits and misses. Implemented by observability.Metrics.
type LookupRecorder interface {
	RecordCacheLookup(hit bool)
}

// PriceCache wraps a PriceFetcher with a Redis read-through cache.
// Redis failures are logged and fall through to the upstream fetcher.
type PriceCache struct {
	client   redis.Cmdable
	upstream ingestion.PriceFetcher
	ttl      time.Duration
	recorder LookupRecorder
	logger   logrus.FieldLogger
}

// NewPriceCache creates a PriceCache.
func NewPriceCache(client redis.Cmdable, upstream ingestion.PriceFetcher, ttl time.Duration, logger logrus.FieldLogger) (*PriceCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if upstream == nil {
		return nil, fmt.Errorf("upstream price fetcher is nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PriceCache{
		client:   client,
		upstream: upstream,
		ttl:      ttl,
		logger:   logger.WithField("component", "price_cache"),
	}, nil
}

// WithRecorder sets the hit/miss recorder and returns the cache.
func (c *PriceCache) WithRecorder(r LookupRecorder) *PriceCache {
	c.recorder = r
	return c
}

// FetchPrice implements ingestion.PriceFetcher.
func (c *PriceCache) FetchPrice(ctx context.Context, coin, currency string) (ingestion.RawPrice, error) {
	key := priceKey(coin, currency)

	cached, err := c.get(ctx, key)
	switch {
	case err == nil:
		c.record(true)
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.logger.WithError(err).WithField("key", key).Warn("price cache read failed")
	}
	c.record(false)

	price, err := c.upstream.FetchPrice(ctx, coin, currency)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, key, price); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("price cache write failed")
	}
	return price, nil
}

// Invalidate drops the cached quote for coin/currency.
func (c *PriceCache) Invalidate(ctx context.Context, coin, currency string) error {
	if err := c.client.Del(ctx, priceKey(coin, currency)).Err(); err != nil {
		return fmt.Errorf("invalidate price: %w", err)
	}
	return nil
}

func (c *PriceCache) get(ctx context.Context, key string) (ingestion.RawPrice, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var price ingestion.RawPrice
	if err := json.Unmarshal([]byte(val), &price); err != nil {
		return nil, fmt.Errorf("unmarshal cached price: %w", err)
	}
	return price, nil
}

func (c *PriceCache) set(ctx context.Context, key string, price ingestion.RawPrice) error {
	b, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("marshal price: %w", err)
	}
	return c.client.Set(ctx, key, b, c.ttl).Err()
}

func (c *PriceCache) record(hit bool) {
	if c.recorder != nil {
		c.recorder.RecordCacheLookup(hit)
	}
}

func priceKey(coin, currency string) string {
	return keyPrefix + coin + ":" + currency
}

var _ ingestion.PriceFetcher = (*PriceCache)(nil)
