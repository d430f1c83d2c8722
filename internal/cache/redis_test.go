package cache

import (
	"context"
	"testing"
	"time"

	"storefront-checkout/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client, time.Minute), mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	snapshot := int64(1999)
	items := []*model.CartItem{
		{ID: "item-1", OwnerUserID: "u1", ProductID: "tee-classic", Quantity: 2},
		{ID: "item-2", OwnerUserID: "u1", ProductID: "cap-logo", Quantity: 1, UnitPriceSnapshotCents: &snapshot},
	}
	require.NoError(t, cache.Set(ctx, "u1", items))

	assert.True(t, mr.Exists("cart:u1"))
	assert.Equal(t, time.Minute, mr.TTL("cart:u1"))

	got, err := cache.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tee-classic", got[0].ProductID)
	require.NotNil(t, got[1].UnitPriceSnapshotCents)
	assert.Equal(t, snapshot, *got[1].UnitPriceSnapshotCents)
}

func TestRedisCache_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	got, err := cache.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestRedisCache_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("u1"), "[{\"itemId\":"))

	_, err := cache.Get(context.Background(), "u1")
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestRedisCache_Delete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "u1", []*model.CartItem{{ID: "x", Quantity: 1}}))
	require.NoError(t, cache.Delete(ctx, "u1"))
	assert.False(t, mr.Exists("cart:u1"))

	_, err := cache.Get(ctx, "u1")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Unavailable(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNoopCache(t *testing.T) {
	var c CartCache = NoopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", []*model.CartItem{{ID: "x"}}))
	_, err := c.Get(ctx, "u1")
	require.ErrorIs(t, err, ErrCacheMiss)
	require.NoError(t, c.Delete(ctx, "u1"))
}
