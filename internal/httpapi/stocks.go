package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/pkg/httputil"
	"github.com/navneet-singh26/inventory-sync/pkg/validator"
)

// CreateStockRequest is the JSON request body for POST /api/v1/stocks,
// idempotently initializing a zeroed stock row for a product/warehouse pair.
type CreateStockRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	WarehouseID string `json:"warehouse_id" validate:"required"`
}

// CreateStock handles POST /api/v1/stocks
func (h *Handler) CreateStock(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req CreateStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	row, err := h.store.UpsertInit(r.Context(), req.ProductID, req.WarehouseID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: row})
}

// GetStock handles GET /api/v1/stocks/{productId}/{warehouseId}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	warehouseID := chi.URLParam(r, "warehouseId")

	row, err := h.store.Get(r.Context(), productID, warehouseID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: row})
}

// AdjustStockRequest is the JSON request body for POST
// /api/v1/stocks/{productId}/{warehouseId}/adjust_stock.
type AdjustStockRequest struct {
	Quantity int    `json:"quantity" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

// AdjustStock handles POST /api/v1/stocks/{productId}/{warehouseId}/adjust_stock
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	warehouseID := chi.URLParam(r, "warehouseId")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	kind := domain.TxnIn
	if req.Quantity < 0 {
		kind = domain.TxnOut
	}

	row, err := h.engine.Adjust(r.Context(), productID, warehouseID, req.Quantity, kind, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: row})
}

// BatchUpdateItem is one line of a batch_update request.
type BatchUpdateItem struct {
	ProductID   string `json:"product_id" validate:"required"`
	WarehouseID string `json:"warehouse_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
}

// BatchUpdateRequest is the JSON request body for POST /api/v1/stocks/batch_update.
type BatchUpdateRequest struct {
	Items []BatchUpdateItem `json:"items" validate:"required,min=1,dive"`
}

// BatchUpdateResult reports the per-item outcome of a batch_update call.
type BatchUpdateResult struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Error       string `json:"error,omitempty"`
}

// BatchUpdate handles POST /api/v1/stocks/batch_update. Each line item is
// applied independently; a failure on one line does not block the rest.
func (h *Handler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req BatchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	results := make([]BatchUpdateResult, len(req.Items))
	for i, item := range req.Items {
		kind := domain.TxnIn
		if item.Quantity < 0 {
			kind = domain.TxnOut
		}
		_, err := h.engine.Adjust(r.Context(), item.ProductID, item.WarehouseID, item.Quantity, kind, item.Reason)
		result := BatchUpdateResult{ProductID: item.ProductID, WarehouseID: item.WarehouseID}
		if err != nil {
			result.Error = err.Error()
		}
		results[i] = result
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: results})
}

// Reconcile handles POST /api/v1/stocks/reconcile?warehouse_id=
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	warehouseID := r.URL.Query().Get("warehouse_id")

	report := h.reconciler.Run(r.Context(), warehouseID)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}
