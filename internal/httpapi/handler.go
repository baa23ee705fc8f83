// Package httpapi exposes the inventory core over HTTP: CRUD on products,
// warehouses, and stocks; reservation/release/adjust actions; transaction
// history with filters; and sync/reconcile operations dispatched through the
// worker pool and tracked by task_id.
package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/navneet-singh26/inventory-sync/internal/adapter"
	"github.com/navneet-singh26/inventory-sync/internal/aggregation"
	"github.com/navneet-singh26/inventory-sync/internal/catalog"
	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/internal/reconciler"
	"github.com/navneet-singh26/inventory-sync/internal/scheduler"
	"github.com/navneet-singh26/inventory-sync/internal/store"
)

// ReservationEngine is the subset of *reservation.Engine the HTTP surface
// depends on.
type ReservationEngine interface {
	Reserve(ctx context.Context, productID, warehouseID string, qty int, orderID string) (*domain.StockRow, error)
	ReserveFlashSale(ctx context.Context, productID, warehouseID string, qty int, orderID string) (*domain.StockRow, error)
	Release(ctx context.Context, productID, warehouseID string, qty int, orderID string) (*domain.StockRow, error)
	Adjust(ctx context.Context, productID, warehouseID string, delta int, kind domain.TransactionKind, ref string) (*domain.StockRow, error)
	GetAvailable(ctx context.Context, productID, warehouseID string) (*domain.StockSnapshot, error)
}

// Handler wires every dependency the inventory HTTP surface needs.
type Handler struct {
	engine     ReservationEngine
	catalog    *catalog.Store
	store      *store.Store
	views      *aggregation.Views
	reconciler *reconciler.Reconciler
	scheduler  *scheduler.Scheduler
	adapters   *adapter.Registry
	tasks      *taskTracker
	logger     *slog.Logger
}

// New builds a Handler from its component dependencies.
func New(
	engine ReservationEngine,
	cat *catalog.Store,
	st *store.Store,
	views *aggregation.Views,
	rec *reconciler.Reconciler,
	sched *scheduler.Scheduler,
	adapters *adapter.Registry,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		engine:     engine,
		catalog:    cat,
		store:      st,
		views:      views,
		reconciler: rec,
		scheduler:  sched,
		adapters:   adapters,
		tasks:      newTaskTracker(),
		logger:     logger,
	}
}

const maxRequestBody = 1 << 20

func clampPerPage(perPage int) int {
	if perPage <= 0 {
		return 20
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}

func parseDateParam(v string) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		if t2, err2 := time.Parse("2006-01-02", v); err2 == nil {
			return &t2, true
		}
		return nil, false
	}
	return &t, true
}
