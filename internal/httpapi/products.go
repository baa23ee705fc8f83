package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/pkg/httputil"
	"github.com/navneet-singh26/inventory-sync/pkg/validator"
)

// CreateProductRequest is the JSON request body for POST /api/v1/products.
type CreateProductRequest struct {
	SKU        string `json:"sku" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Category   string `json:"category" validate:"omitempty"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

// CreateProduct handles POST /api/v1/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req CreateProductRequest
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

	product, err := h.catalog.CreateProduct(r.Context(), req.SKU, req.Name, req.Category, req.PriceCents)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// GetProduct handles GET /api/v1/products/{productId}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// ReserveStockRequest is the JSON request body for the reserve_stock and
// release_stock product actions.
type ReserveStockRequest struct {
	WarehouseID string `json:"warehouse_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	OrderID     string `json:"order_id" validate:"required"`
	FlashSale   bool   `json:"flash_sale"`
}

// ReserveStock handles POST /api/v1/products/{productId}/reserve_stock
func (h *Handler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req ReserveStockRequest
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

	var (
		row *domain.StockRow
		err error
	)
	if req.FlashSale {
		row, err = h.engine.ReserveFlashSale(r.Context(), productID, req.WarehouseID, req.Quantity, req.OrderID)
	} else {
		row, err = h.engine.Reserve(r.Context(), productID, req.WarehouseID, req.Quantity, req.OrderID)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: row})
}

// ReleaseStock handles POST /api/v1/products/{productId}/release_stock
func (h *Handler) ReleaseStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req ReserveStockRequest
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

	row, err := h.engine.Release(r.Context(), productID, req.WarehouseID, req.Quantity, req.OrderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: row})
}

// GetProductAvailability handles GET /api/v1/products/{productId}/availability?warehouse_id=
func (h *Handler) GetProductAvailability(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	warehouseID := r.URL.Query().Get("warehouse_id")

	snap, err := h.engine.GetAvailable(r.Context(), productID, warehouseID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}
