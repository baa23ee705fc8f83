package reservation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/navneet-singh26/inventory-sync/internal/cache"
	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/internal/lock"
	"github.com/navneet-singh26/inventory-sync/internal/store"
	apperrors "github.com/navneet-singh26/inventory-sync/pkg/errors"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, productID, warehouseID string) (*domain.StockRow, error) {
	args := m.Called(ctx, productID, warehouseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockRow), args.Error(1)
}

func (m *mockStore) GetByProduct(ctx context.Context, productID string) ([]domain.StockRow, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StockRow), args.Error(1)
}

func (m *mockStore) UpsertInit(ctx context.Context, productID, warehouseID string) (*domain.StockRow, error) {
	args := m.Called(ctx, productID, warehouseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockRow), args.Error(1)
}

func (m *mockStore) Apply(ctx context.Context, mut store.Mutation, expectedVersion int64) (*domain.StockRow, error) {
	args := m.Called(ctx, mut, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockRow), args.Error(1)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, resource string, opts lock.AcquireOpts) (*lock.Lease, error) {
	args := m.Called(ctx, resource, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lock.Lease), args.Error(1)
}

func (m *mockLocker) Release(ctx context.Context, lease *lock.Lease) {
	m.Called(ctx, lease)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEngine(t *testing.T) (*Engine, *mockStore, *mockLocker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.New(client, time.Minute, testLogger())

	ms := &mockStore{}
	ml := &mockLocker{}
	e := New(ms, ml, c, testLogger())
	return e, ms, ml
}

func sampleStockRow(productID, warehouseID string, quantity, reserved, version int64) *domain.StockRow {
	return &domain.StockRow{
		ID:          "row-1",
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    int(quantity),
		Reserved:    int(reserved),
		Available:   int(quantity - reserved),
		Version:     version,
	}
}

func TestEngine_Reserve_Success(t *testing.T) {
	e, ms, ml := setupEngine(t)
	resource := lock.ProductWarehouseKey("p1", "w1")
	lease := &lock.Lease{Resource: resource, HolderID: "h1"}

	ml.On("Acquire", mock.Anything, resource, mock.Anything).Return(lease, nil)
	ml.On("Release", mock.Anything, lease).Return()
	ms.On("Get", mock.Anything, "p1", "w1").Return(sampleStockRow("p1", "w1", 100, 10, 1), nil)
	ms.On("Apply", mock.Anything, mock.MatchedBy(func(m store.Mutation) bool {
		return m.ReservedDelta == 5 && m.Kind == domain.TxnReserve
	}), int64(1)).Return(sampleStockRow("p1", "w1", 100, 15, 2), nil)

	row, err := e.Reserve(context.Background(), "p1", "w1", 5, "order-1")
	require.NoError(t, err)
	assert.Equal(t, 15, row.Reserved)
	ms.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestEngine_Reserve_RejectsNonPositiveQuantity(t *testing.T) {
	e, _, _ := setupEngine(t)
	_, err := e.Reserve(context.Background(), "p1", "w1", 0, "order-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEngine_Reserve_LockAcquireFailureSurfacesUnavailable(t *testing.T) {
	e, _, ml := setupEngine(t)
	resource := lock.ProductWarehouseKey("p1", "w1")
	ml.On("Acquire", mock.Anything, resource, mock.Anything).Return(nil, apperrors.QuorumFailed(resource))

	_, err := e.Reserve(context.Background(), "p1", "w1", 5, "order-1")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

func TestEngine_Reserve_RetriesOnVersionConflictThenSucceeds(t *testing.T) {
	e, ms, ml := setupEngine(t)
	resource := lock.ProductWarehouseKey("p1", "w1")
	lease := &lock.Lease{Resource: resource, HolderID: "h1"}

	ml.On("Acquire", mock.Anything, resource, mock.Anything).Return(lease, nil)
	ml.On("Release", mock.Anything, lease).Return()

	ms.On("Get", mock.Anything, "p1", "w1").Return(sampleStockRow("p1", "w1", 100, 10, 1), nil).Once()
	ms.On("Apply", mock.Anything, mock.Anything, int64(1)).Return(nil, apperrors.ErrVersionConflict).Once()

	ms.On("Get", mock.Anything, "p1", "w1").Return(sampleStockRow("p1", "w1", 100, 10, 2), nil).Once()
	ms.On("Apply", mock.Anything, mock.Anything, int64(2)).Return(sampleStockRow("p1", "w1", 100, 15, 3), nil).Once()

	row, err := e.Reserve(context.Background(), "p1", "w1", 5, "order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), row.Version)
}

func TestEngine_Reserve_VersionConflictExhaustsRetries(t *testing.T) {
	e, ms, ml := setupEngine(t)
	resource := lock.ProductWarehouseKey("p1", "w1")
	lease := &lock.Lease{Resource: resource, HolderID: "h1"}

	ml.On("Acquire", mock.Anything, resource, mock.Anything).Return(lease, nil)
	ml.On("Release", mock.Anything, lease).Return()

	ms.On("Get", mock.Anything, "p1", "w1").Return(sampleStockRow("p1", "w1", 100, 10, 1), nil)
	ms.On("Apply", mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.ErrVersionConflict)

	_, err := e.Reserve(context.Background(), "p1", "w1", 5, "order-1")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	ms.AssertNumberOfCalls(t, "Apply", maxVersionConflictRetries+1)
}

func TestEngine_Release_Success(t *testing.T) {
	e, ms, ml := setupEngine(t)
	resource := lock.ProductWarehouseKey("p1", "w1")
	lease := &lock.Lease{Resource: resource, HolderID: "h1"}

	ml.On("Acquire", mock.Anything, resource, mock.Anything).Return(lease, nil)
	ml.On("Release", mock.Anything, lease).Return()
	ms.On("Get", mock.Anything, "p1", "w1").Return(sampleStockRow("p1", "w1", 100, 10, 1), nil)
	ms.On("Apply", mock.Anything, mock.MatchedBy(func(m store.Mutation) bool {
		return m.ReservedDelta == -5 && m.Kind == domain.TxnRelease
	}), int64(1)).Return(sampleStockRow("p1", "w1", 100, 5, 2), nil)

	row, err := e.Release(context.Background(), "p1", "w1", 5, "order-1")
	require.NoError(t, err)
	assert.Equal(t, 5, row.Reserved)
}

func TestEngine_Adjust_UpsertsThenApplies(t *testing.T) {
	e, ms, ml := setupEngine(t)
	resource := lock.ProductWarehouseKey("p1", "w1")
	lease := &lock.Lease{Resource: resource, HolderID: "h1"}

	ml.On("Acquire", mock.Anything, resource, mock.Anything).Return(lease, nil)
	ml.On("Release", mock.Anything, lease).Return()
	ms.On("UpsertInit", mock.Anything, "p1", "w1").Return(sampleStockRow("p1", "w1", 100, 0, 1), nil)
	ms.On("Get", mock.Anything, "p1", "w1").Return(sampleStockRow("p1", "w1", 100, 0, 1), nil)
	ms.On("Apply", mock.Anything, mock.MatchedBy(func(m store.Mutation) bool {
		return m.QuantityDelta == 20 && m.Kind == domain.TxnIn
	}), int64(1)).Return(sampleStockRow("p1", "w1", 120, 0, 2), nil)

	row, err := e.Adjust(context.Background(), "p1", "w1", 20, domain.TxnIn, "restock-1")
	require.NoError(t, err)
	assert.Equal(t, 120, row.Quantity)
}

func TestEngine_GetAvailable_CacheHit(t *testing.T) {
	e, ms, _ := setupEngine(t)
	snap := &domain.StockSnapshot{ProductID: "p1", Warehouse: "w1", Quantity: 50, Available: 40}
	e.cache.Set(context.Background(), "p1", "w1", snap)

	got, err := e.GetAvailable(context.Background(), "p1", "w1")
	require.NoError(t, err)
	assert.Equal(t, 40, got.Available)
	ms.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_GetAvailable_CacheMissFetchesSingleWarehouse(t *testing.T) {
	e, ms, _ := setupEngine(t)
	ms.On("Get", mock.Anything, "p1", "w1").Return(sampleStockRow("p1", "w1", 100, 10, 1), nil)

	got, err := e.GetAvailable(context.Background(), "p1", "w1")
	require.NoError(t, err)
	assert.Equal(t, 90, got.Available)

	cached, ok := e.cache.Get(context.Background(), "p1", "w1")
	require.True(t, ok)
	assert.Equal(t, 90, cached.Available)
}

func TestEngine_GetAvailable_CacheMissAggregatesAcrossWarehouses(t *testing.T) {
	e, ms, _ := setupEngine(t)
	ms.On("GetByProduct", mock.Anything, "p1").Return([]domain.StockRow{
		*sampleStockRow("p1", "w1", 100, 10, 1),
		*sampleStockRow("p1", "w2", 50, 5, 1),
	}, nil)

	got, err := e.GetAvailable(context.Background(), "p1", "")
	require.NoError(t, err)
	assert.Equal(t, 150, got.Quantity)
	assert.Equal(t, 135, got.Available)
	assert.Len(t, got.Breakdown, 2)
}
