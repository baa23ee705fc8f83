package httpapi

import (
	"net/http"
	"strconv"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/internal/store"
	"github.com/navneet-singh26/inventory-sync/pkg/httputil"
)

// ListTransactions handles GET /api/v1/transactions with optional filters
// {product_id, warehouse_id, transaction_type, start_date, end_date} and
// page/per_page pagination.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return
		}
		page = p
	}
	perPage := clampPerPage(0)
	if v := q.Get("per_page"); v != "" {
		pp, err := strconv.Atoi(v)
		if err != nil || pp < 1 || pp > 100 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and 100"},
			})
			return
		}
		perPage = pp
	}

	startDate, ok := parseDateParam(q.Get("start_date"))
	if !ok {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "start_date must be RFC3339 or YYYY-MM-DD"},
		})
		return
	}
	endDate, ok := parseDateParam(q.Get("end_date"))
	if !ok {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "end_date must be RFC3339 or YYYY-MM-DD"},
		})
		return
	}

	filter := store.TransactionFilter{
		ProductID:   q.Get("product_id"),
		WarehouseID: q.Get("warehouse_id"),
		Kind:        domain.TransactionKind(q.Get("transaction_type")),
		StartDate:   startDate,
		EndDate:     endDate,
		Page:        page,
		PerPage:     perPage,
	}

	txns, total, err := h.store.ListTransactions(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse[domain.StockTransaction](txns, total, page, perPage))
}
