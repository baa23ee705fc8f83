// Package cache implements the short-TTL read cache (C5): aggregated stock
// snapshots keyed by product (and optionally warehouse), invalidated on
// every successful write rather than read-through.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
)

// Cache wraps a Redis client for the 60s-TTL stock snapshot cache.
// Cache-store failures never propagate to callers: a failed Get is treated
// as a miss, and a failed Set/Invalidate is logged and swallowed, so a
// successful write always commits regardless of cache health.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New builds a Cache with the given TTL.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func key(productID, warehouseID string) string {
	if warehouseID == "" {
		warehouseID = "all"
	}
	return fmt.Sprintf("stock:%s:%s", productID, warehouseID)
}

// Get returns a cached snapshot, or (nil, false) on miss or cache error.
func (c *Cache) Get(ctx context.Context, productID, warehouseID string) (*domain.StockSnapshot, bool) {
	raw, err := c.client.Get(ctx, key(productID, warehouseID)).Bytes()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.Warn("stock cache read failed, treating as miss",
				slog.String("product_id", productID),
				slog.String("warehouse_id", warehouseID),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}

	var snap domain.StockSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false
	}
	return &snap, true
}

// Set stores a snapshot with the configured TTL. Errors are logged, never
// returned: a cache write failure must not fail the caller's operation.
func (c *Cache) Set(ctx context.Context, productID, warehouseID string, snap *domain.StockSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(productID, warehouseID), raw, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("stock cache write failed",
			slog.String("product_id", productID),
			slog.String("warehouse_id", warehouseID),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate deletes both the per-warehouse key and the product-wide
// aggregate key for productID, per §4.5: any successful mutation deletes
// both entries before control returns to the caller.
func (c *Cache) Invalidate(ctx context.Context, productID, warehouseID string) {
	keys := []string{key(productID, "")}
	if warehouseID != "" {
		keys = append(keys, key(productID, warehouseID))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil && c.logger != nil {
		c.logger.Warn("stock cache invalidation failed, entry will expire by TTL",
			slog.String("product_id", productID),
			slog.String("warehouse_id", warehouseID),
			slog.String("error", err.Error()),
		)
	}
}
