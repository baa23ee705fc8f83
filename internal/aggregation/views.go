// Package aggregation implements the Aggregation Views (C6): the
// AggregatedStockView and LowStockAlertView read-only projections,
// recomputed from the Stock Store under a repeatable-read transaction snapshot.
// Neither view is ever consulted by the Reservation Engine.
package aggregation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/pkg/database"
)

// Views recomputes and serves the materialized aggregation projections.
type Views struct {
	pool   database.TxPool
	logger *slog.Logger
}

// New builds a Views recomputer over the given pool. Accepting
// database.TxPool instead of a concrete *pgxpool.Pool lets tests substitute
// a pgxmock pool.
func New(pool database.TxPool, logger *slog.Logger) *Views {
	return &Views{pool: pool, logger: logger}
}

// Refresh recomputes both projections from the Stock Store under a single
// repeatable-read transaction, so the recompute reads one consistent
// snapshot and queries against the underlying tables are never blocked.
// If the pool rejects a repeatable-read transaction, Refresh falls back to
// a plain blocking transaction and logs a warning, per §4.6's refresh
// contract.
func (v *Views) Refresh(ctx context.Context) error {
	tx, err := v.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		if v.logger != nil {
			v.logger.Warn("falling back to blocking aggregation refresh", slog.String("error", err.Error()))
		}
		tx, err = v.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin aggregation refresh: %w", err)
		}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, refreshAggregatedStock); err != nil {
		return fmt.Errorf("refresh aggregated stock view: %w", err)
	}
	if _, err := tx.Exec(ctx, refreshLowStockAlert); err != nil {
		return fmt.Errorf("refresh low stock alert view: %w", err)
	}
	if _, err := tx.Exec(ctx, clearStaleLowStockAlerts); err != nil {
		return fmt.Errorf("clear stale low stock alerts: %w", err)
	}

	return tx.Commit(ctx)
}

// AggregatedStock returns the current aggregated-stock projection for an
// active product.
func (v *Views) AggregatedStock(ctx context.Context, productID string) (*domain.AggregatedStockView, error) {
	row := v.pool.QueryRow(ctx, selectAggregatedStock, productID)
	var out domain.AggregatedStockView
	if err := row.Scan(&out.ProductID, &out.TotalQuantity, &out.TotalReserved, &out.TotalAvailable, &out.WarehouseCount, &out.LastRefreshedAt); err != nil {
		return nil, fmt.Errorf("get aggregated stock view: %w", err)
	}
	return &out, nil
}

// LowStockAlerts returns every low-stock alert row with available strictly
// below threshold.
func (v *Views) LowStockAlerts(ctx context.Context, threshold int) ([]domain.LowStockAlertView, error) {
	rows, err := v.pool.Query(ctx, selectLowStockAlerts, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.LowStockAlertView
	for rows.Next() {
		var a domain.LowStockAlertView
		if err := rows.Scan(&a.ProductID, &a.SKU, &a.WarehouseID, &a.WarehouseCode, &a.Available, &a.AlertLevel, &a.LastRefreshedAt); err != nil {
			return nil, fmt.Errorf("scan low stock alert row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate low stock alert rows: %w", err)
	}
	return out, nil
}
