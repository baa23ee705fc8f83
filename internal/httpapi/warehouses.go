package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
	apperrors "github.com/navneet-singh26/inventory-sync/pkg/errors"
	"github.com/navneet-singh26/inventory-sync/pkg/httputil"
	"github.com/navneet-singh26/inventory-sync/pkg/pagination"
	"github.com/navneet-singh26/inventory-sync/pkg/validator"
)

// CreateWarehouseRequest is the JSON request body for POST /api/v1/warehouses.
type CreateWarehouseRequest struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Location string `json:"location" validate:"omitempty"`
	Priority int    `json:"priority" validate:"gte=0"`
}

// CreateWarehouse handles POST /api/v1/warehouses
func (h *Handler) CreateWarehouse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req CreateWarehouseRequest
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

	warehouse, err := h.catalog.CreateWarehouse(r.Context(), req.Code, req.Name, req.Location, req.Priority)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: warehouse})
}

// GetWarehouse handles GET /api/v1/warehouses/{warehouseId}
func (h *Handler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	warehouseID := chi.URLParam(r, "warehouseId")

	warehouse, err := h.catalog.GetWarehouse(r.Context(), warehouseID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: warehouse})
}

// ListWarehouseInventory handles GET /api/v1/warehouses/{warehouseId}/inventory.
// Supports page/per_page query params (defaulting leniently rather than
// rejecting bad values, since this is a read-only scan over a full
// warehouse and not a transactional filter like ListTransactions).
func (h *Handler) ListWarehouseInventory(w http.ResponseWriter, r *http.Request) {
	warehouseID := chi.URLParam(r, "warehouseId")

	var rows []domain.StockRow
	err := h.store.ScanAll(r.Context(), warehouseID, func(row domain.StockRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	params := pagination.FromRequest(r)
	total := len(rows)
	start := params.Offset
	if start > total {
		start = total
	}
	end := start + params.PerPage
	if end > total {
		end = total
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(rows[start:end], total, params.Page, params.PerPage))
}

// ListWarehouseLowStock handles GET /api/v1/warehouses/{warehouseId}/low_stock_products?threshold=
func (h *Handler) ListWarehouseLowStock(w http.ResponseWriter, r *http.Request) {
	warehouseID := chi.URLParam(r, "warehouseId")
	threshold := 10
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.Atoi(v)
		if err != nil || t < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "threshold must be a non-negative integer"},
			})
			return
		}
		threshold = t
	}

	alerts, err := h.views.LowStockAlerts(r.Context(), threshold)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	filtered := alerts[:0]
	for _, a := range alerts {
		if a.WarehouseID == warehouseID {
			filtered = append(filtered, a)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: filtered})
}

// SyncWarehouseStock handles POST /api/v1/warehouses/{warehouseId}/sync_stock
// and returns a task_id queryable via GET /api/v1/sync/status.
func (h *Handler) SyncWarehouseStock(w http.ResponseWriter, r *http.Request) {
	warehouseID := chi.URLParam(r, "warehouseId")

	name := r.URL.Query().Get("adapter")
	if name == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "adapter query parameter is required"},
		})
		return
	}

	wh, err := h.adapters.Warehouse(name)
	if err != nil {
		httputil.WriteError(w, r, apperrors.NotFound("warehouse_adapter", name), h.logger)
		return
	}

	taskID := h.tasks.create()
	go h.runWarehouseSync(taskID, warehouseID, wh)

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"task_id": taskID}})
}
