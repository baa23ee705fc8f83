package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
	apperrors "github.com/navneet-singh26/inventory-sync/pkg/errors"
	"github.com/navneet-singh26/inventory-sync/pkg/httputil"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Reserve(ctx context.Context, productID, warehouseID string, qty int, orderID string) (*domain.StockRow, error) {
	args := m.Called(ctx, productID, warehouseID, qty, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockRow), args.Error(1)
}

func (m *mockEngine) ReserveFlashSale(ctx context.Context, productID, warehouseID string, qty int, orderID string) (*domain.StockRow, error) {
	args := m.Called(ctx, productID, warehouseID, qty, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockRow), args.Error(1)
}

func (m *mockEngine) Release(ctx context.Context, productID, warehouseID string, qty int, orderID string) (*domain.StockRow, error) {
	args := m.Called(ctx, productID, warehouseID, qty, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockRow), args.Error(1)
}

func (m *mockEngine) Adjust(ctx context.Context, productID, warehouseID string, delta int, kind domain.TransactionKind, ref string) (*domain.StockRow, error) {
	args := m.Called(ctx, productID, warehouseID, delta, kind, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockRow), args.Error(1)
}

func (m *mockEngine) GetAvailable(ctx context.Context, productID, warehouseID string) (*domain.StockSnapshot, error) {
	args := m.Called(ctx, productID, warehouseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockSnapshot), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHandler(engine *mockEngine) *Handler {
	return &Handler{
		engine: engine,
		tasks:  newTaskTracker(),
		logger: testLogger(),
	}
}

func routeWithProductID(h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Post("/{productId}", h)
	return r
}

func TestReserveStock_Success(t *testing.T) {
	engine := new(mockEngine)
	row := &domain.StockRow{ID: "row-1", ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 10, Reserved: 2, Available: 8}
	engine.On("Reserve", mock.Anything, "prod-1", "wh-1", 3, "order-1").Return(row, nil)

	h := newTestHandler(engine)
	router := routeWithProductID(h.ReserveStock)

	body, _ := json.Marshal(ReserveStockRequest{WarehouseID: "wh-1", Quantity: 3, OrderID: "order-1"})
	req := httptest.NewRequest(http.MethodPost, "/prod-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	engine.AssertExpectations(t)
}

func TestReserveStock_InsufficientStock(t *testing.T) {
	engine := new(mockEngine)
	engine.On("Reserve", mock.Anything, "prod-1", "wh-1", 100, "order-1").
		Return(nil, apperrors.InsufficientStock("prod-1", "wh-1", 100, 8))

	h := newTestHandler(engine)
	router := routeWithProductID(h.ReserveStock)

	body, _ := json.Marshal(ReserveStockRequest{WarehouseID: "wh-1", Quantity: 100, OrderID: "order-1"})
	req := httptest.NewRequest(http.MethodPost, "/prod-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReserveStock_ValidationError(t *testing.T) {
	engine := new(mockEngine)
	h := newTestHandler(engine)
	router := routeWithProductID(h.ReserveStock)

	body, _ := json.Marshal(ReserveStockRequest{WarehouseID: "wh-1", Quantity: 0, OrderID: "order-1"})
	req := httptest.NewRequest(http.MethodPost, "/prod-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	engine.AssertNotCalled(t, "Reserve")
}

func TestReserveStock_FlashSale(t *testing.T) {
	engine := new(mockEngine)
	row := &domain.StockRow{ID: "row-1", ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 10, Reserved: 5, Available: 5}
	engine.On("ReserveFlashSale", mock.Anything, "prod-1", "wh-1", 5, "order-2").Return(row, nil)

	h := newTestHandler(engine)
	router := routeWithProductID(h.ReserveStock)

	body, _ := json.Marshal(ReserveStockRequest{WarehouseID: "wh-1", Quantity: 5, OrderID: "order-2", FlashSale: true})
	req := httptest.NewRequest(http.MethodPost, "/prod-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestReleaseStock_Overrelease(t *testing.T) {
	engine := new(mockEngine)
	engine.On("Release", mock.Anything, "prod-1", "wh-1", 50, "order-1").
		Return(nil, apperrors.Overrelease("prod-1", "wh-1", 50, 2))

	h := newTestHandler(engine)
	router := routeWithProductID(h.ReleaseStock)

	body, _ := json.Marshal(ReserveStockRequest{WarehouseID: "wh-1", Quantity: 50, OrderID: "order-1"})
	req := httptest.NewRequest(http.MethodPost, "/prod-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProductAvailability_Success(t *testing.T) {
	engine := new(mockEngine)
	snap := &domain.StockSnapshot{ProductID: "prod-1", Quantity: 10, Reserved: 2, Available: 8}
	engine.On("GetAvailable", mock.Anything, "prod-1", "wh-1").Return(snap, nil)

	h := newTestHandler(engine)
	r := chi.NewRouter()
	r.Get("/{productId}/availability", h.GetProductAvailability)

	req := httptest.NewRequest(http.MethodGet, "/prod-1/availability?warehouse_id=wh-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}
