// Package scheduler implements the Sync Scheduler (C7): a bounded worker
// pool that drives typed sync jobs (warehouse pulls, marketplace pushes,
// view refreshes, reconciliation, retention, flash-sale reservations, and
// stock alerts), each retried with exponential backoff and jitter per its
// own policy, in the same convention the teacher's Kafka consumer uses for
// handler retries.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/navneet-singh26/inventory-sync/internal/metrics"
)

// Job kinds, used as metrics labels and in job result reporting.
const (
	KindWarehousePull   = metrics.TaskWarehousePull
	KindMarketplacePush = metrics.TaskMarketplacePush
	KindRefreshViews    = metrics.TaskRefreshViews
	KindReconcile       = metrics.TaskReconcile
	KindRetention       = metrics.TaskRetention
	KindFlashSale       = metrics.TaskFlashSale
	KindStockAlert      = metrics.TaskStockAlert
)

// RetryPolicy bounds a job kind's retry behavior. Delay doubles each
// attempt up to MaxDelay, with ±25% jitter applied, matching the teacher's
// Kafka consumer handler-retry convention.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Default retry policies per job kind, per §4.7's stated defaults.
var (
	WarehousePolicy   = RetryPolicy{MaxAttempts: 3, BaseDelay: 60 * time.Second, MaxDelay: 60 * time.Second}
	MarketplacePolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 120 * time.Second, MaxDelay: 120 * time.Second}
	FlashSalePolicy   = RetryPolicy{MaxAttempts: 5, BaseDelay: 1 * time.Second, MaxDelay: 1 * time.Second}
	DefaultPolicy     = RetryPolicy{MaxAttempts: 1, BaseDelay: 0, MaxDelay: 0}
)

func jitteredDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base * time.Duration(1<<uint(attempt-1))
	if delay > max {
		delay = max
	}
	jitter := (rand.Float64() - 0.5) * 0.5 // ±25%
	return time.Duration(float64(delay) * (1.0 + jitter))
}

// Job is one unit of scheduled work.
type Job struct {
	Kind   string
	Target string
	Policy RetryPolicy
	Run    func(ctx context.Context) error
}

// Result reports the outcome of a single job's execution, including
// however many attempts the retry policy consumed.
type Result struct {
	Kind     string
	Target   string
	Attempts int
	Err      error
}

// Scheduler is a bounded worker pool: Run blocks once PoolSize workers
// are all busy, providing the backpressure §4.7 requires instead of
// silently dropping enqueued work.
type Scheduler struct {
	sem    chan struct{}
	logger *slog.Logger
}

// New builds a Scheduler with the given pool size.
func New(poolSize int, logger *slog.Logger) *Scheduler {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Scheduler{sem: make(chan struct{}, poolSize), logger: logger}
}

// Run executes job synchronously against the pool's concurrency budget,
// retrying per job.Policy, and returns the outcome. It blocks acquiring a
// pool slot if every worker is busy.
func (s *Scheduler) Run(ctx context.Context, job Job) Result {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{Kind: job.Kind, Target: job.Target, Err: ctx.Err()}
	}
	defer func() { <-s.sem }()

	policy := job.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy
	}

	start := time.Now()
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		attempts = attempt
		lastErr = job.Run(ctx)
		if lastErr == nil {
			break
		}
		s.logger.WarnContext(ctx, "sync job attempt failed",
			slog.String("kind", job.Kind),
			slog.String("target", job.Target),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", policy.MaxAttempts),
			slog.String("error", lastErr.Error()),
		)
		if attempt < policy.MaxAttempts {
			wait := jitteredDelay(policy.BaseDelay, policy.MaxDelay, attempt)
			if wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					lastErr = ctx.Err()
					goto done
				}
			}
		}
	}
done:

	status := metrics.StatusSuccess
	if lastErr != nil {
		status = metrics.StatusError
	}
	metrics.SyncTasks.WithLabelValues(job.Kind, status).Inc()
	metrics.SyncTaskDuration.WithLabelValues(job.Kind).Observe(time.Since(start).Seconds())

	return Result{Kind: job.Kind, Target: job.Target, Attempts: attempts, Err: lastErr}
}

// RunFanout dispatches one Job per target in parallel and returns every
// result once all targets have completed, per sync_all_warehouses /
// sync_all_marketplaces. Each job still competes for the bounded pool, so
// overall parallelism is capped at PoolSize even though all targets are
// submitted at once.
func (s *Scheduler) RunFanout(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	done := make(chan struct{}, len(jobs))

	for i, job := range jobs {
		i, job := i, job
		go func() {
			results[i] = s.Run(ctx, job)
			done <- struct{}{}
		}()
	}
	for range jobs {
		<-done
	}
	return results
}

// ErrNoTargets reports that no adapters are registered for the requested
// scope. RunFanout does not return it: given no jobs, RunFanout returns an
// empty result slice.
var ErrNoTargets = errors.New("no sync targets registered")

// Handle aggregates fan-out results for callers that want a single
// success/failure verdict alongside the per-target detail.
type Handle struct {
	Results []Result
}

// Err returns the first job error encountered, or nil if every job in the
// handle succeeded.
func (h Handle) Err() error {
	for _, r := range h.Results {
		if r.Err != nil {
			return fmt.Errorf("%s/%s: %w", r.Kind, r.Target, r.Err)
		}
	}
	return nil
}
