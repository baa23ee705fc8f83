package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/navneet-singh26/inventory-sync/internal/adapter"
	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/internal/scheduler"
	apperrors "github.com/navneet-singh26/inventory-sync/pkg/errors"
	"github.com/navneet-singh26/inventory-sync/pkg/httputil"
)

// syncJob is a pending sync unit of work, mapped onto a scheduler.Job at
// dispatch time.
type syncJob struct {
	kind   string
	target string
	policy scheduler.RetryPolicy
	run    func(ctx context.Context) error
}

func (h *Handler) runJobs(ctx context.Context, jobs []syncJob) []scheduler.Result {
	schedJobs := make([]scheduler.Job, len(jobs))
	for i, j := range jobs {
		schedJobs[i] = scheduler.Job{Kind: j.kind, Target: j.target, Policy: j.policy, Run: j.run}
	}
	return h.scheduler.RunFanout(ctx, schedJobs)
}

func (h *Handler) finishTask(taskID string, results []scheduler.Result) {
	handle := scheduler.Handle{Results: results}
	if err := handle.Err(); err != nil {
		h.tasks.set(taskID, taskRecord{Status: syncFailed, Result: results, Error: err.Error()})
		return
	}
	h.tasks.set(taskID, taskRecord{Status: syncDone, Result: results})
}

// syncStatus is the lifecycle state of an asynchronous warehouse or
// marketplace sync operation dispatched through the worker pool.
type syncStatus string

const (
	syncPending syncStatus = "pending"
	syncRunning syncStatus = "running"
	syncDone    syncStatus = "done"
	syncFailed  syncStatus = "failed"
)

// taskRecord is the point-in-time state of one tracked async operation.
type taskRecord struct {
	Status syncStatus `json:"status"`
	Result any        `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// taskTracker is an in-process registry of task_id to outcome, sufficient
// for a single instance; a multi-instance deployment would back this with
// the cache's Redis client instead, but nothing in this surface requires
// that yet.
type taskTracker struct {
	mu    sync.Mutex
	tasks map[string]taskRecord
}

func newTaskTracker() *taskTracker {
	return &taskTracker{tasks: make(map[string]taskRecord)}
}

func (t *taskTracker) create() string {
	id := uuid.New().String()
	t.mu.Lock()
	t.tasks[id] = taskRecord{Status: syncPending}
	t.mu.Unlock()
	return id
}

func (t *taskTracker) set(id string, rec taskRecord) {
	t.mu.Lock()
	t.tasks[id] = rec
	t.mu.Unlock()
}

func (t *taskTracker) get(id string) (taskRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.tasks[id]
	return rec, ok
}

// GetSyncStatus handles GET /api/v1/sync/status?task_id=
func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "task_id query parameter is required"},
		})
		return
	}

	rec, ok := h.tasks.get(taskID)
	if !ok {
		httputil.WriteError(w, r, apperrors.NotFound("task", taskID), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rec})
}

func (h *Handler) runWarehouseSync(taskID, warehouseID string, wh adapter.WarehouseAdapter) {
	h.tasks.set(taskID, taskRecord{Status: syncRunning})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	products, err := h.catalog.ListActiveProducts(ctx)
	if err != nil {
		h.tasks.set(taskID, taskRecord{Status: syncFailed, Error: err.Error()})
		return
	}

	jobs := make([]syncJob, 0, len(products))
	for _, p := range products {
		p := p
		jobs = append(jobs, syncJob{
			kind:   scheduler.KindWarehousePull,
			target: p.SKU,
			policy: scheduler.WarehousePolicy,
			run: func(ctx context.Context) error {
				qty, err := wh.GetStock(ctx, p.SKU)
				if err != nil {
					return err
				}
				row, err := h.store.Get(ctx, p.ID, warehouseID)
				if err != nil {
					return err
				}
				delta := int(qty) - row.Quantity
				if delta == 0 {
					return nil
				}
				_, err = h.engine.Adjust(ctx, p.ID, warehouseID, delta, domain.TxnSync, "warehouse_sync:"+wh.Name()+":"+p.ID)
				return err
			},
		})
	}

	result := h.runJobs(ctx, jobs)
	h.finishTask(taskID, result)
}

func (h *Handler) runMarketplaceSync(taskID string, mp adapter.MarketplaceAdapter) {
	h.tasks.set(taskID, taskRecord{Status: syncRunning})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	products, err := h.catalog.ListActiveProducts(ctx)
	if err != nil {
		h.tasks.set(taskID, taskRecord{Status: syncFailed, Error: err.Error()})
		return
	}

	jobs := make([]syncJob, 0, len(products))
	for _, p := range products {
		p := p
		jobs = append(jobs, syncJob{
			kind:   scheduler.KindMarketplacePush,
			target: p.SKU,
			policy: scheduler.MarketplacePolicy,
			run: func(ctx context.Context) error {
				snap, err := h.engine.GetAvailable(ctx, p.ID, "")
				if err != nil {
					return err
				}
				return mp.UpdateStock(ctx, p.SKU, int64(snap.Available))
			},
		})
	}

	result := h.runJobs(ctx, jobs)
	h.finishTask(taskID, result)
}

// SyncMarketplaceStock handles POST /api/v1/marketplaces/{name}/sync_stock
func (h *Handler) SyncMarketplaceStock(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	mp, err := h.adapters.Marketplace(name)
	if err != nil {
		httputil.WriteError(w, r, apperrors.NotFound("marketplace_adapter", name), h.logger)
		return
	}

	taskID := h.tasks.create()
	go h.runMarketplaceSync(taskID, mp)

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"task_id": taskID}})
}
