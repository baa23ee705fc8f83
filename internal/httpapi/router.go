package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/navneet-singh26/inventory-sync/pkg/health"
	"github.com/navneet-singh26/inventory-sync/pkg/middleware"
)

// NewRouter builds the chi router for the inventory HTTP surface.
func NewRouter(h *Handler, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("inventory-sync"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("inventory-sync"))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.CreateProduct)
			r.Get("/{productId}", h.GetProduct)
			r.Get("/{productId}/availability", h.GetProductAvailability)
			r.Post("/{productId}/reserve_stock", h.ReserveStock)
			r.Post("/{productId}/release_stock", h.ReleaseStock)
		})

		r.Route("/warehouses", func(r chi.Router) {
			r.Post("/", h.CreateWarehouse)
			r.Get("/{warehouseId}", h.GetWarehouse)
			r.Get("/{warehouseId}/inventory", h.ListWarehouseInventory)
			r.Get("/{warehouseId}/low_stock_products", h.ListWarehouseLowStock)
			r.Post("/{warehouseId}/sync_stock", h.SyncWarehouseStock)
		})

		r.Route("/marketplaces", func(r chi.Router) {
			r.Post("/{name}/sync_stock", h.SyncMarketplaceStock)
		})

		r.Route("/stocks", func(r chi.Router) {
			r.Post("/", h.CreateStock)
			r.Get("/{productId}/{warehouseId}", h.GetStock)
			r.Post("/{productId}/{warehouseId}/adjust_stock", h.AdjustStock)
			r.Post("/batch_update", h.BatchUpdate)
			r.Post("/reconcile", h.Reconcile)
		})

		r.Get("/transactions", h.ListTransactions)

		r.Get("/sync/status", h.GetSyncStatus)
	})

	return r
}
