package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navneet-singh26/inventory-sync/internal/adapter"
)

func newTestHandlerWithAdapters(adapters *adapter.Registry) *Handler {
	return &Handler{
		engine:   new(mockEngine),
		adapters: adapters,
		tasks:    newTaskTracker(),
		logger:   testLogger(),
	}
}

func TestSyncWarehouseStock_MissingAdapterParam(t *testing.T) {
	h := newTestHandlerWithAdapters(adapter.NewRegistry())
	r := chi.NewRouter()
	r.Post("/{warehouseId}/sync_stock", h.SyncWarehouseStock)

	req := httptest.NewRequest(http.MethodPost, "/wh-1/sync_stock", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncWarehouseStock_UnknownAdapter(t *testing.T) {
	h := newTestHandlerWithAdapters(adapter.NewRegistry())
	r := chi.NewRouter()
	r.Post("/{warehouseId}/sync_stock", h.SyncWarehouseStock)

	req := httptest.NewRequest(http.MethodPost, "/wh-1/sync_stock?adapter=does-not-exist", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncMarketplaceStock_UnknownMarketplace(t *testing.T) {
	h := newTestHandlerWithAdapters(adapter.NewRegistry())
	r := chi.NewRouter()
	r.Post("/{name}/sync_stock", h.SyncMarketplaceStock)

	req := httptest.NewRequest(http.MethodPost, "/shopify/sync_stock", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateWarehouse_ValidationError(t *testing.T) {
	h := newTestHandlerWithAdapters(adapter.NewRegistry())
	r := chi.NewRouter()
	r.Post("/warehouses", h.CreateWarehouse)

	body, _ := json.Marshal(CreateWarehouseRequest{Code: "", Name: ""})
	req := httptest.NewRequest(http.MethodPost, "/warehouses", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateWarehouse_InvalidJSONBody(t *testing.T) {
	h := newTestHandlerWithAdapters(adapter.NewRegistry())
	r := chi.NewRouter()
	r.Post("/warehouses", h.CreateWarehouse)

	req := httptest.NewRequest(http.MethodPost, "/warehouses", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactions_InvalidPage(t *testing.T) {
	h := newTestHandlerWithAdapters(adapter.NewRegistry())
	r := chi.NewRouter()
	r.Get("/transactions", h.ListTransactions)

	req := httptest.NewRequest(http.MethodGet, "/transactions?page=0", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactions_InvalidPerPage(t *testing.T) {
	h := newTestHandlerWithAdapters(adapter.NewRegistry())
	r := chi.NewRouter()
	r.Get("/transactions", h.ListTransactions)

	req := httptest.NewRequest(http.MethodGet, "/transactions?per_page=1000", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactions_InvalidStartDate(t *testing.T) {
	h := newTestHandlerWithAdapters(adapter.NewRegistry())
	r := chi.NewRouter()
	r.Get("/transactions", h.ListTransactions)

	req := httptest.NewRequest(http.MethodGet, "/transactions?start_date=not-a-date", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseDateParam(t *testing.T) {
	_, ok := parseDateParam("")
	require.True(t, ok)

	v, ok := parseDateParam("2026-01-15")
	require.True(t, ok)
	require.NotNil(t, v)

	_, ok = parseDateParam("garbage")
	assert.False(t, ok)
}

func TestClampPerPage(t *testing.T) {
	assert.Equal(t, 20, clampPerPage(0))
	assert.Equal(t, 100, clampPerPage(500))
	assert.Equal(t, 42, clampPerPage(42))
}
