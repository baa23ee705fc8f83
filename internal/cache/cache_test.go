package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, time.Minute, nil), mr
}

func TestCache_SetThenGet(t *testing.T) {
	c, _ := setupCache(t)
	snap := &domain.StockSnapshot{ProductID: "p1", Warehouse: "w1", Quantity: 10, Reserved: 2, Available: 8}

	c.Set(context.Background(), "p1", "w1", snap)

	got, ok := c.Get(context.Background(), "p1", "w1")
	require.True(t, ok)
	assert.Equal(t, 8, got.Available)
}

func TestCache_Get_MissOnAbsentKey(t *testing.T) {
	c, _ := setupCache(t)
	got, ok := c.Get(context.Background(), "missing", "w1")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestCache_Get_MissOnCorruptJSON(t *testing.T) {
	c, mr := setupCache(t)
	require.NoError(t, mr.Set(key("p1", "w1"), "not-json"))

	got, ok := c.Get(context.Background(), "p1", "w1")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestCache_Get_MissWhenRedisDown(t *testing.T) {
	c, mr := setupCache(t)
	mr.Close()

	got, ok := c.Get(context.Background(), "p1", "w1")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestCache_Set_SwallowsErrorWhenRedisDown(t *testing.T) {
	c, mr := setupCache(t)
	mr.Close()

	assert.NotPanics(t, func() {
		c.Set(context.Background(), "p1", "w1", &domain.StockSnapshot{ProductID: "p1"})
	})
}

func TestCache_Invalidate_DeletesBothKeys(t *testing.T) {
	c, mr := setupCache(t)
	require.NoError(t, mr.Set(key("p1", ""), `{"product_id":"p1"}`))
	require.NoError(t, mr.Set(key("p1", "w1"), `{"product_id":"p1"}`))

	c.Invalidate(context.Background(), "p1", "w1")

	assert.False(t, mr.Exists(key("p1", "")))
	assert.False(t, mr.Exists(key("p1", "w1")))
}

func TestCache_Invalidate_OnlyProductKeyWhenWarehouseEmpty(t *testing.T) {
	c, mr := setupCache(t)
	require.NoError(t, mr.Set(key("p1", ""), `{"product_id":"p1"}`))

	c.Invalidate(context.Background(), "p1", "")

	assert.False(t, mr.Exists(key("p1", "")))
}

func TestKey_DefaultsWarehouseToAll(t *testing.T) {
	assert.Equal(t, "stock:p1:all", key("p1", ""))
	assert.Equal(t, "stock:p1:w1", key("p1", "w1"))
}
