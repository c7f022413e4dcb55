package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptopunks-analysis/internal/ingestion"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   2, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

type countingFetcher struct {
	calls int
	price ingestion.RawPrice
	err   error
}

func (f *countingFetcher) FetchPrice(_ context.Context, _, _ string) (ingestion.RawPrice, error) {
	f.calls++
	return f.price, f.err
}

type countingRecorder struct {
	hits, misses int
}

func (r *countingRecorder) RecordCacheLookup(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewPriceCache_NilArgs(t *testing.T) {
	_, err := NewPriceCache(nil, &countingFetcher{}, time.Minute, nil)
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	_, err = NewPriceCache(client, nil, time.Minute, nil)
	assert.Error(t, err)
}

func TestPriceCache_ReadThrough(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	upstream := &countingFetcher{price: ingestion.RawPrice{"usd": 3120.5, "last_updated_at": 1700000000}}
	rec := &countingRecorder{}
	cache, err := NewPriceCache(client, upstream, time.Minute, quietLogger())
	require.NoError(t, err)
	cache.WithRecorder(rec)

	first, err := cache.FetchPrice(ctx, "ethereum", "usd")
	require.NoError(t, err)
	second, err := cache.FetchPrice(ctx, "ethereum", "usd")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)

	ttl, err := client.TTL(ctx, priceKey("ethereum", "usd")).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}

func TestPriceCache_Invalidate(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	upstream := &countingFetcher{price: ingestion.RawPrice{"usd": 1}}
	cache, err := NewPriceCache(client, upstream, time.Minute, quietLogger())
	require.NoError(t, err)

	_, err = cache.FetchPrice(ctx, "ethereum", "usd")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "ethereum", "usd"))
	_, err = cache.FetchPrice(ctx, "ethereum", "usd")
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.calls)
}

func TestPriceCache_UpstreamErrorNotCached(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	upstream := &countingFetcher{err: errors.New("coingecko down")}
	cache, err := NewPriceCache(client, upstream, time.Minute, quietLogger())
	require.NoError(t, err)

	_, err = cache.FetchPrice(ctx, "ethereum", "usd")
	assert.Error(t, err)

	exists, err := client.Exists(ctx, priceKey("ethereum", "usd")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

func TestPriceCache_RedisDownFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	upstream := &countingFetcher{price: ingestion.RawPrice{"usd": 42}}
	cache, err := NewPriceCache(client, upstream, time.Minute, quietLogger())
	require.NoError(t, err)

	price, err := cache.FetchPrice(context.Background(), "ethereum", "usd")
	require.NoError(t, err)
	assert.Equal(t, 42.0, price["usd"])
	assert.Equal(t, 1, upstream.calls)
}
