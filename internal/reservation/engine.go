// Package reservation implements the Reservation Engine (C4): reserve,
// release, adjust, and get_available, each composing the distributed lock
// (C3), the stock store and transaction log (C1/C2), the read cache (C5),
// and the metrics surface (C9) into one atomic operation.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/navneet-singh26/inventory-sync/internal/cache"
	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/internal/lock"
	"github.com/navneet-singh26/inventory-sync/internal/metrics"
	"github.com/navneet-singh26/inventory-sync/internal/store"
	apperrors "github.com/navneet-singh26/inventory-sync/pkg/errors"
)

// Publisher is the subset of *event.Publisher the engine depends on, kept
// narrow so tests can substitute a no-op.
type Publisher interface {
	StockMutated(ctx context.Context, row *domain.StockRow, kind domain.TransactionKind, ref string)
}

// noopPublisher satisfies Publisher without requiring callers to wire
// eventing before they can construct an Engine.
type noopPublisher struct{}

func (noopPublisher) StockMutated(context.Context, *domain.StockRow, domain.TransactionKind, string) {
}

// maxVersionConflictRetries bounds the internal retry of Apply when it
// returns a VersionConflict, per §4.4: retried up to K times within the
// same lock lease, then surfaced.
const maxVersionConflictRetries = 3

// Store is the subset of *store.Store the engine depends on, so tests can
// substitute a fake.
type Store interface {
	Get(ctx context.Context, productID, warehouseID string) (*domain.StockRow, error)
	GetByProduct(ctx context.Context, productID string) ([]domain.StockRow, error)
	UpsertInit(ctx context.Context, productID, warehouseID string) (*domain.StockRow, error)
	Apply(ctx context.Context, m store.Mutation, expectedVersion int64) (*domain.StockRow, error)
}

// Locker is the subset of *lock.Service the engine depends on.
type Locker interface {
	Acquire(ctx context.Context, resource string, opts lock.AcquireOpts) (*lock.Lease, error)
	Release(ctx context.Context, lease *lock.Lease)
}

// Engine is the inventory kernel.
type Engine struct {
	store     Store
	locker    Locker
	cache     *cache.Cache
	publisher Publisher
	logger    *slog.Logger

	lockTTL        time.Duration
	lockRetryTimes int
	lockRetryDelay time.Duration

	flashSaleTTL        time.Duration
	flashSaleRetryTimes int
	flashSaleRetryDelay time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLockPolicy overrides the default lock TTL/retry policy.
func WithLockPolicy(ttl time.Duration, retryTimes int, retryDelay time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
		e.lockRetryTimes = retryTimes
		e.lockRetryDelay = retryDelay
	}
}

// WithFlashSaleLockPolicy overrides the flash-sale lock TTL/retry policy.
func WithFlashSaleLockPolicy(ttl time.Duration, retryTimes int, retryDelay time.Duration) Option {
	return func(e *Engine) {
		e.flashSaleTTL = ttl
		e.flashSaleRetryTimes = retryTimes
		e.flashSaleRetryDelay = retryDelay
	}
}

// WithPublisher attaches a domain event publisher; every successful
// mutation is published after it commits.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// New builds a Reservation Engine with the default lock policy (30s TTL, 3
// retries, 200ms delay) and the default flash-sale policy (5s TTL, 10
// retries, 50ms delay).
func New(s Store, locker Locker, c *cache.Cache, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:               s,
		locker:              locker,
		cache:               c,
		publisher:           noopPublisher{},
		logger:              logger,
		lockTTL:             30 * time.Second,
		lockRetryTimes:      3,
		lockRetryDelay:      200 * time.Millisecond,
		flashSaleTTL:        5 * time.Second,
		flashSaleRetryTimes: 10,
		flashSaleRetryDelay: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) acquireWith(ctx context.Context, resource string, ttl time.Duration, retryTimes int, retryDelay time.Duration) (*lock.Lease, error) {
	lease, err := e.locker.Acquire(ctx, resource, lock.AcquireOpts{
		TTL:        ttl,
		RetryTimes: retryTimes,
		RetryDelay: retryDelay,
	})
	if err != nil {
		return nil, apperrors.Unavailable(fmt.Sprintf("could not acquire lock on %s: %v", resource, err))
	}
	return lease, nil
}

// withLock acquires the lock on resource using the default policy, runs
// fn, and releases the lock on every exit path. fn must never make an
// external network call other than the local store and cache, per §4.3's
// scope discipline.
func (e *Engine) withLock(ctx context.Context, resource string, fn func(ctx context.Context) (*domain.StockRow, error)) (*domain.StockRow, error) {
	lease, err := e.acquireWith(ctx, resource, e.lockTTL, e.lockRetryTimes, e.lockRetryDelay)
	if err != nil {
		return nil, err
	}
	defer e.locker.Release(ctx, lease)

	return fn(ctx)
}

// withFlashSaleLock is withLock using the flash-sale lock policy.
func (e *Engine) withFlashSaleLock(ctx context.Context, resource string, fn func(ctx context.Context) (*domain.StockRow, error)) (*domain.StockRow, error) {
	lease, err := e.acquireWith(ctx, resource, e.flashSaleTTL, e.flashSaleRetryTimes, e.flashSaleRetryDelay)
	if err != nil {
		return nil, err
	}
	defer e.locker.Release(ctx, lease)

	return fn(ctx)
}

// applyWithRetry retries Apply on VersionConflict up to
// maxVersionConflictRetries times within the same lock lease.
func (e *Engine) applyWithRetry(ctx context.Context, productID, warehouseID string, build func(current *domain.StockRow) store.Mutation) (*domain.StockRow, error) {
	var row *domain.StockRow
	var err error

	for attempt := 0; attempt < maxVersionConflictRetries+1; attempt++ {
		row, err = e.store.Get(ctx, productID, warehouseID)
		if err != nil {
			return nil, err
		}

		mutation := build(row)
		updated, applyErr := e.store.Apply(ctx, mutation, row.Version)
		if applyErr == nil {
			return updated, nil
		}
		if !errors.Is(applyErr, apperrors.ErrVersionConflict) {
			return nil, applyErr
		}
		err = applyErr
	}

	return nil, apperrors.Unavailable(fmt.Sprintf("version conflict persisted after %d retries: %v", maxVersionConflictRetries, err))
}

// Reserve claims qty units of (product, warehouse) for orderID.
func (e *Engine) Reserve(ctx context.Context, productID, warehouseID string, qty int, orderID string) (*domain.StockRow, error) {
	if qty <= 0 {
		return nil, apperrors.InvalidInput("quantity must be > 0")
	}

	resource := lock.ProductWarehouseKey(productID, warehouseID)
	row, err := e.withLock(ctx, resource, func(ctx context.Context) (*domain.StockRow, error) {
		return e.applyWithRetry(ctx, productID, warehouseID, func(current *domain.StockRow) store.Mutation {
			return store.Mutation{
				ProductID:     productID,
				WarehouseID:   warehouseID,
				ReservedDelta: qty,
				Kind:          domain.TxnReserve,
				ReferenceID:   orderID,
			}
		})
	})
	if err != nil {
		e.logWarn(ctx, "reserve failed", productID, warehouseID, err)
		return nil, err
	}

	metrics.StockMutations.WithLabelValues(metrics.OpReserve).Inc()
	e.cache.Invalidate(ctx, productID, warehouseID)
	e.publisher.StockMutated(ctx, row, domain.TxnReserve, orderID)
	e.logger.InfoContext(ctx, "stock reserved",
		slog.String("product_id", productID),
		slog.String("warehouse_id", warehouseID),
		slog.Int("quantity", qty),
		slog.String("order_id", orderID),
	)
	return row, nil
}

// ReserveFlashSale is Reserve scoped to the flash-sale lock namespace: the
// lock key is per-product (not per-product-warehouse) so a burst of
// contending reservations on the same hot product serializes through one
// short-TTL, aggressively-retried lock rather than the normal product+
// warehouse key.
func (e *Engine) ReserveFlashSale(ctx context.Context, productID, warehouseID string, qty int, orderID string) (*domain.StockRow, error) {
	if qty <= 0 {
		return nil, apperrors.InvalidInput("quantity must be > 0")
	}

	resource := lock.FlashSaleKey(productID)
	row, err := e.withFlashSaleLock(ctx, resource, func(ctx context.Context) (*domain.StockRow, error) {
		return e.applyWithRetry(ctx, productID, warehouseID, func(current *domain.StockRow) store.Mutation {
			return store.Mutation{
				ProductID:     productID,
				WarehouseID:   warehouseID,
				ReservedDelta: qty,
				Kind:          domain.TxnReserve,
				ReferenceID:   orderID,
			}
		})
	})
	if err != nil {
		e.logWarn(ctx, "flash sale reserve failed", productID, warehouseID, err)
		return nil, err
	}

	metrics.StockMutations.WithLabelValues(metrics.OpReserve).Inc()
	e.cache.Invalidate(ctx, productID, warehouseID)
	e.publisher.StockMutated(ctx, row, domain.TxnReserve, orderID)
	e.logger.InfoContext(ctx, "flash sale stock reserved",
		slog.String("product_id", productID),
		slog.String("warehouse_id", warehouseID),
		slog.Int("quantity", qty),
		slog.String("order_id", orderID),
	)
	return row, nil
}

// Release gives back qty units previously reserved under orderID.
func (e *Engine) Release(ctx context.Context, productID, warehouseID string, qty int, orderID string) (*domain.StockRow, error) {
	if qty <= 0 {
		return nil, apperrors.InvalidInput("quantity must be > 0")
	}

	resource := lock.ProductWarehouseKey(productID, warehouseID)
	row, err := e.withLock(ctx, resource, func(ctx context.Context) (*domain.StockRow, error) {
		return e.applyWithRetry(ctx, productID, warehouseID, func(current *domain.StockRow) store.Mutation {
			return store.Mutation{
				ProductID:     productID,
				WarehouseID:   warehouseID,
				ReservedDelta: -qty,
				Kind:          domain.TxnRelease,
				ReferenceID:   orderID,
			}
		})
	})
	if err != nil {
		e.logWarn(ctx, "release failed", productID, warehouseID, err)
		return nil, err
	}

	metrics.StockMutations.WithLabelValues(metrics.OpRelease).Inc()
	e.cache.Invalidate(ctx, productID, warehouseID)
	e.publisher.StockMutated(ctx, row, domain.TxnRelease, orderID)
	e.logger.InfoContext(ctx, "stock released",
		slog.String("product_id", productID),
		slog.String("warehouse_id", warehouseID),
		slog.Int("quantity", qty),
		slog.String("order_id", orderID),
	)
	return row, nil
}

// Adjust changes quantity by delta (positive or negative) and records kind.
// If the warehouse row does not exist it is upsert-initialized first.
func (e *Engine) Adjust(ctx context.Context, productID, warehouseID string, delta int, kind domain.TransactionKind, ref string) (*domain.StockRow, error) {
	resource := lock.ProductWarehouseKey(productID, warehouseID)
	row, err := e.withLock(ctx, resource, func(ctx context.Context) (*domain.StockRow, error) {
		if _, err := e.store.UpsertInit(ctx, productID, warehouseID); err != nil {
			return nil, err
		}
		return e.applyWithRetry(ctx, productID, warehouseID, func(current *domain.StockRow) store.Mutation {
			return store.Mutation{
				ProductID:     productID,
				WarehouseID:   warehouseID,
				QuantityDelta: delta,
				Kind:          kind,
				ReferenceID:   ref,
			}
		})
	})
	if err != nil {
		e.logWarn(ctx, "adjust failed", productID, warehouseID, err)
		return nil, err
	}

	label := metrics.OpAdjust
	if kind == domain.TxnSync {
		label = metrics.OpSync
	}
	metrics.StockMutations.WithLabelValues(label).Inc()
	e.cache.Invalidate(ctx, productID, warehouseID)
	e.publisher.StockMutated(ctx, row, kind, ref)
	e.logger.InfoContext(ctx, "stock adjusted",
		slog.String("product_id", productID),
		slog.String("warehouse_id", warehouseID),
		slog.Int("delta", delta),
		slog.String("kind", string(kind)),
		slog.String("reference_id", ref),
	)
	return row, nil
}

// GetAvailable returns a snapshot for productID, optionally scoped to a
// single warehouseID. The empty warehouseID aggregates across all
// warehouses. Reads are served from the cache (C5) when present.
func (e *Engine) GetAvailable(ctx context.Context, productID, warehouseID string) (*domain.StockSnapshot, error) {
	if snap, ok := e.cache.Get(ctx, productID, warehouseID); ok {
		return snap, nil
	}

	var snap *domain.StockSnapshot
	if warehouseID != "" {
		row, err := e.store.Get(ctx, productID, warehouseID)
		if err != nil {
			return nil, err
		}
		snap = &domain.StockSnapshot{
			ProductID: productID,
			Warehouse: warehouseID,
			Quantity:  row.Quantity,
			Reserved:  row.Reserved,
			Available: row.Available,
		}
	} else {
		rows, err := e.store.GetByProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		snap = &domain.StockSnapshot{ProductID: productID}
		for _, r := range rows {
			snap.Quantity += r.Quantity
			snap.Reserved += r.Reserved
			snap.Available += r.Available
			snap.Breakdown = append(snap.Breakdown, domain.WarehouseStockLine{
				WarehouseID: r.WarehouseID,
				Quantity:    r.Quantity,
				Reserved:    r.Reserved,
				Available:   r.Available,
			})
		}
	}

	e.cache.Set(ctx, productID, warehouseID, snap)
	return snap, nil
}

func (e *Engine) logWarn(ctx context.Context, msg, productID, warehouseID string, err error) {
	e.logger.WarnContext(ctx, msg,
		slog.String("product_id", productID),
		slog.String("warehouse_id", warehouseID),
		slog.String("error", err.Error()),
	)
}
