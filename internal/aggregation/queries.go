package aggregation

// refreshAggregatedStock recomputes the per-product aggregated stock
// projection from stock_rows, scoped to active products.
const refreshAggregatedStock = `
INSERT INTO aggregated_stock_view (product_id, total_quantity, total_reserved, total_available, warehouse_count, last_refreshed_at)
SELECT
	sr.product_id,
	SUM(sr.quantity),
	SUM(sr.reserved),
	SUM(sr.available),
	COUNT(DISTINCT sr.warehouse_id),
	NOW()
FROM stock_rows sr
JOIN products p ON p.id = sr.product_id
WHERE p.is_active
GROUP BY sr.product_id
ON CONFLICT (product_id) DO UPDATE SET
	total_quantity = EXCLUDED.total_quantity,
	total_reserved = EXCLUDED.total_reserved,
	total_available = EXCLUDED.total_available,
	warehouse_count = EXCLUDED.warehouse_count,
	last_refreshed_at = EXCLUDED.last_refreshed_at`

// refreshLowStockAlert recomputes the low-stock alert projection for
// active product/warehouse pairs under the available < 10 threshold.
const refreshLowStockAlert = `
INSERT INTO low_stock_alert_view (product_id, sku, warehouse_id, warehouse_code, available, alert_level, last_refreshed_at)
SELECT
	sr.product_id,
	p.sku,
	sr.warehouse_id,
	w.code,
	sr.available,
	CASE
		WHEN sr.available <= 0 THEN 'OUT_OF_STOCK'
		WHEN sr.available < 5 THEN 'CRITICAL'
		WHEN sr.available < 10 THEN 'LOW'
		ELSE 'WARNING'
	END,
	NOW()
FROM stock_rows sr
JOIN products p ON p.id = sr.product_id
JOIN warehouses w ON w.id = sr.warehouse_id
WHERE p.is_active AND w.is_active AND sr.available < 10
ON CONFLICT (product_id, warehouse_id) DO UPDATE SET
	available = EXCLUDED.available,
	alert_level = EXCLUDED.alert_level,
	last_refreshed_at = EXCLUDED.last_refreshed_at`

// clearStaleLowStockAlerts removes alert rows for pairs that no longer
// qualify (available rose back to or above the threshold), so the
// projection does not accumulate stale entries across refreshes.
const clearStaleLowStockAlerts = `
DELETE FROM low_stock_alert_view a
WHERE NOT EXISTS (
	SELECT 1 FROM stock_rows sr
	WHERE sr.product_id = a.product_id AND sr.warehouse_id = a.warehouse_id AND sr.available < 10
)`

const selectAggregatedStock = `
SELECT product_id, total_quantity, total_reserved, total_available, warehouse_count, last_refreshed_at
FROM aggregated_stock_view
WHERE product_id = $1`

const selectLowStockAlerts = `
SELECT product_id, sku, warehouse_id, warehouse_code, available, alert_level, last_refreshed_at
FROM low_stock_alert_view
WHERE available < $1
ORDER BY available ASC`
