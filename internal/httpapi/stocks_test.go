package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
	apperrors "github.com/navneet-singh26/inventory-sync/pkg/errors"
)

func TestAdjustStock_PositiveDeltaUsesIn(t *testing.T) {
	engine := new(mockEngine)
	row := &domain.StockRow{ID: "row-1", ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 15, Available: 15}
	engine.On("Adjust", mock.Anything, "prod-1", "wh-1", 5, domain.TxnIn, "restock").Return(row, nil)

	h := newTestHandler(engine)
	r := chi.NewRouter()
	r.Post("/{productId}/{warehouseId}/adjust_stock", h.AdjustStock)

	body, _ := json.Marshal(AdjustStockRequest{Quantity: 5, Reason: "restock"})
	req := httptest.NewRequest(http.MethodPost, "/prod-1/wh-1/adjust_stock", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestAdjustStock_NegativeDeltaUsesOut(t *testing.T) {
	engine := new(mockEngine)
	row := &domain.StockRow{ID: "row-1", ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 5, Available: 5}
	engine.On("Adjust", mock.Anything, "prod-1", "wh-1", -3, domain.TxnOut, "damaged").Return(row, nil)

	h := newTestHandler(engine)
	r := chi.NewRouter()
	r.Post("/{productId}/{warehouseId}/adjust_stock", h.AdjustStock)

	body, _ := json.Marshal(AdjustStockRequest{Quantity: -3, Reason: "damaged"})
	req := httptest.NewRequest(http.MethodPost, "/prod-1/wh-1/adjust_stock", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestBatchUpdate_PartialFailureDoesNotBlockOtherItems(t *testing.T) {
	engine := new(mockEngine)
	row := &domain.StockRow{ID: "row-1", ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 10, Available: 10}
	engine.On("Adjust", mock.Anything, "prod-1", "wh-1", 5, domain.TxnIn, "restock").Return(row, nil)
	engine.On("Adjust", mock.Anything, "prod-2", "wh-1", -100, domain.TxnOut, "damaged").
		Return(nil, apperrors.NegativeStock("prod-2", "wh-1", -100, 10))

	h := newTestHandler(engine)
	r := chi.NewRouter()
	r.Post("/batch_update", h.BatchUpdate)

	body, _ := json.Marshal(BatchUpdateRequest{Items: []BatchUpdateItem{
		{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 5, Reason: "restock"},
		{ProductID: "prod-2", WarehouseID: "wh-1", Quantity: -100, Reason: "damaged"},
	}})
	req := httptest.NewRequest(http.MethodPost, "/batch_update", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestGetSyncStatus_UnknownTaskID(t *testing.T) {
	h := newTestHandler(new(mockEngine))
	r := chi.NewRouter()
	r.Get("/sync/status", h.GetSyncStatus)

	req := httptest.NewRequest(http.MethodGet, "/sync/status?task_id=does-not-exist", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSyncStatus_KnownTask(t *testing.T) {
	h := newTestHandler(new(mockEngine))
	taskID := h.tasks.create()
	h.tasks.set(taskID, taskRecord{Status: syncDone})

	r := chi.NewRouter()
	r.Get("/sync/status", h.GetSyncStatus)

	req := httptest.NewRequest(http.MethodGet, "/sync/status?task_id="+taskID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetSyncStatus_MissingTaskIDParam(t *testing.T) {
	h := newTestHandler(new(mockEngine))
	r := chi.NewRouter()
	r.Get("/sync/status", h.GetSyncStatus)

	req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
