package catalog

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cedra_orders/internal/models"
)

type countingCatalog struct {
	inner ProductCatalog
	calls atomic.Int32
}

func (c *countingCatalog) FindOne(ctx context.Context, id string) (*models.Product, error) {
	c.calls.Add(1)
	return c.inner.FindOne(ctx, id)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStaticCatalog(t *testing.T) {
	cat := StaticCatalog{
		"1": {ID: "1", Name: "Mug", Price: decimal.RequireFromString("9.99"), IsActive: true},
		"2": {ID: "2", Name: "Old mug", Price: decimal.RequireFromString("5"), IsActive: false},
	}

	p, err := cat.FindOne(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)

	_, err = cat.FindOne(context.Background(), "2")
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = cat.FindOne(context.Background(), "404")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCachedCatalogReadThrough(t *testing.T) {
	mr, rdb := newRedis(t)
	source := &countingCatalog{inner: StaticCatalog{
		"1": {ID: "1", Name: "Mug", Price: decimal.RequireFromString("9.99"), IsActive: true},
	}}
	cached := NewCachedCatalog(source, rdb, zap.NewNop())
	ctx := context.Background()

	first, err := cached.FindOne(ctx, "1")
	require.NoError(t, err)
	second, err := cached.FindOne(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, int32(1), source.calls.Load())
	assert.True(t, first.Price.Equal(second.Price))
	assert.True(t, mr.Exists("product:1"))
	assert.Equal(t, ProductCacheTTL, mr.TTL("product:1"))

	mr.Del(productKey("1"))
	_, err = cached.FindOne(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestCachedCatalogDoesNotCacheMisses(t *testing.T) {
	mr, rdb := newRedis(t)
	cached := NewCachedCatalog(StaticCatalog{}, rdb, zap.NewNop())

	_, err := cached.FindOne(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.False(t, mr.Exists("product:missing"))
}

func TestCachedCatalogSurvivesRedisOutage(t *testing.T) {
	mr, rdb := newRedis(t)
	cached := NewCachedCatalog(StaticCatalog{
		"1": {ID: "1", Name: "Mug", Price: decimal.RequireFromString("9.99"), IsActive: true},
	}, rdb, zap.NewNop())
	mr.Close()

	p, err := cached.FindOne(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)
}
