// Package metrics defines the Metrics Surface (C9): counters and
// histograms for every stock mutator, every sync task, and every
// distributed lock attempt.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StockMutations counts stock mutations by operation.
	StockMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_stock_mutations_total",
			Help: "Total number of stock mutations",
		},
		[]string{"operation"},
	)

	// SyncTasks counts sync scheduler job completions by type and status.
	SyncTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_sync_tasks_total",
			Help: "Total number of sync scheduler tasks completed",
		},
		[]string{"task_type", "status"},
	)

	// SyncTaskDuration observes sync scheduler job durations by type.
	SyncTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_sync_task_duration_seconds",
			Help:    "Duration of sync scheduler tasks in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	// LockAttempts counts distributed lock attempts by resource namespace
	// and outcome (acquired / timeout / quorum_fail).
	LockAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_lock_attempts_total",
			Help: "Total number of distributed lock attempts",
		},
		[]string{"resource_namespace", "outcome"},
	)

	// ReconcilerDiscrepancies counts discrepancies found and corrected by
	// the reconciler across runs.
	ReconcilerDiscrepancies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_reconciler_discrepancies_total",
			Help: "Total number of stock row discrepancies found by the reconciler",
		},
		[]string{"outcome"},
	)
)

// Mutation operation labels used with StockMutations.
const (
	OpReserve = "reserve"
	OpRelease = "release"
	OpAdjust  = "adjust"
	OpSync    = "sync"
)

// Sync task type labels used with SyncTasks and SyncTaskDuration.
const (
	TaskWarehousePull   = "warehouse"
	TaskMarketplacePush = "marketplace"
	TaskRefreshViews    = "refresh_views"
	TaskReconcile       = "reconcile"
	TaskRetention       = "retention"
	TaskFlashSale       = "flash_sale"
	TaskStockAlert      = "stock_alert"
)

// Sync task status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
