// Package lock implements a Redlock-style distributed mutual-exclusion
// service: a quorum lock over N independent Redis servers with TTL leases
// and fencing by a random holder id, per the original system's
// sync_engine.distributed_lock module.
package lock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/navneet-singh26/inventory-sync/pkg/errors"
)

// releaseScript is a compare-and-delete: it only deletes the key if the
// stored value still matches the caller's holder id, so a caller can never
// delete a successor's lock after its own lease expired.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// driftFactor and minDriftMillis implement validity = ttl - elapsed - drift,
// where drift = ttl*driftFactor + minDriftMillis, matching the original
// DistributedLock's clock_drift_factor of 0.01 plus a fixed 2ms floor.
const (
	driftFactor    = 0.01
	minDriftMillis = 2
)

// Outcome classifies a lock attempt for the C9 lock-attempt metric.
type Outcome string

const (
	OutcomeAcquired    Outcome = "acquired"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeQuorumFail  Outcome = "quorum_fail"
)

// Lease represents a held lock. The zero value is not valid; obtain one
// from Service.Acquire.
type Lease struct {
	Resource string
	HolderID string
	Validity time.Duration
	acquired []*redis.Client
}

// Service is a Redlock quorum lock over a fixed set of independent Redis
// clients. Each client should point at an independent Redis server (or at
// least an independently-failing one); N should be odd and >= 3.
type Service struct {
	clients []*redis.Client
	quorum  int

	perServerTimeout time.Duration
	onOutcome        func(namespace string, outcome Outcome)
}

// NewService builds a Redlock service from a set of already-connected Redis
// clients. perServerTimeout bounds each individual SET/EVAL call so a dead
// server cannot stall the whole acquisition attempt.
func NewService(clients []*redis.Client, perServerTimeout time.Duration) (*Service, error) {
	if len(clients) < 3 {
		return nil, fmt.Errorf("redlock requires at least 3 servers, got %d", len(clients))
	}
	return &Service{
		clients:          clients,
		quorum:           len(clients)/2 + 1,
		perServerTimeout: perServerTimeout,
	}, nil
}

// OnOutcome registers a callback invoked once per Acquire call with the
// final outcome, for C9 metrics. namespace is derived from the resource
// name's leading segment (e.g. "inventory:product").
func (s *Service) OnOutcome(fn func(namespace string, outcome Outcome)) {
	s.onOutcome = fn
}

func namespaceOf(resource string) string {
	for i, c := range resource {
		if c == ':' {
			for j := i + 1; j < len(resource); j++ {
				if resource[j] == ':' {
					return resource[:j]
				}
			}
			return resource
		}
	}
	return resource
}

// AcquireOpts parameterizes an Acquire call. Zero values fall back to
// Service-level defaults where applicable.
type AcquireOpts struct {
	TTL        time.Duration
	RetryTimes int
	RetryDelay time.Duration
}

// Acquire attempts to obtain the lock on resource following the Redlock
// protocol: try every server with NX+PX, require a quorum of successes
// within a positive validity window, else unwind and retry with jittered
// backoff up to RetryTimes.
func (s *Service) Acquire(ctx context.Context, resource string, opts AcquireOpts) (*Lease, error) {
	namespace := namespaceOf(resource)
	retries := opts.RetryTimes
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		lease, err := s.tryAcquireOnce(ctx, resource, opts.TTL)
		if err == nil {
			s.report(namespace, OutcomeAcquired)
			return lease, nil
		}
		lastErr = err

		if attempt < retries-1 {
			wait := jitteredDelay(opts.RetryDelay)
			select {
			case <-ctx.Done():
				s.report(namespace, OutcomeTimeout)
				return nil, fmt.Errorf("acquire lock %s: %w", resource, ctx.Err())
			case <-time.After(wait):
			}
		}
	}

	s.report(namespace, OutcomeQuorumFail)
	return nil, errors.Join(apperrors.QuorumFailed(resource), lastErr)
}

func (s *Service) report(namespace string, outcome Outcome) {
	if s.onOutcome != nil {
		s.onOutcome(namespace, outcome)
	}
}

func jitteredDelay(base time.Duration) time.Duration {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1))
	return base + jitter
}

func (s *Service) tryAcquireOnce(ctx context.Context, resource string, ttl time.Duration) (*Lease, error) {
	holderID := uuid.New().String()
	start := time.Now()

	acquired := make([]*redis.Client, 0, len(s.clients))
	for _, c := range s.clients {
		cctx, cancel := context.WithTimeout(ctx, s.perServerTimeout)
		ok, err := c.SetNX(cctx, resource, holderID, ttl).Result()
		cancel()
		if err == nil && ok {
			acquired = append(acquired, c)
		}
	}

	elapsed := time.Since(start)
	drift := time.Duration(float64(ttl)*driftFactor) + minDriftMillis*time.Millisecond
	validity := ttl - elapsed - drift

	if len(acquired) >= s.quorum && validity > 0 {
		return &Lease{Resource: resource, HolderID: holderID, Validity: validity, acquired: acquired}, nil
	}

	// Quorum not reached, or validity window already exhausted: release
	// whatever we did acquire before reporting failure upward.
	s.releaseOn(ctx, resource, holderID, acquired)
	if len(acquired) < s.quorum {
		return nil, fmt.Errorf("acquired on %d/%d servers, need %d", len(acquired), len(s.clients), s.quorum)
	}
	return nil, fmt.Errorf("validity window exhausted (elapsed %s, ttl %s)", elapsed, ttl)
}

// Release unlocks every server the lease was granted on, using the
// compare-and-delete script keyed by holder id.
func (s *Service) Release(ctx context.Context, lease *Lease) {
	s.releaseOn(ctx, lease.Resource, lease.HolderID, lease.acquired)
}

func (s *Service) releaseOn(ctx context.Context, resource, holderID string, clients []*redis.Client) {
	for _, c := range clients {
		cctx, cancel := context.WithTimeout(ctx, s.perServerTimeout)
		c.Eval(cctx, releaseScript, []string{resource}, holderID)
		cancel()
	}
}

// Lock key namespace helpers, per the lock-key namespaces enumerated for
// the distributed lock service.
func ProductKey(productID string) string {
	return fmt.Sprintf("inventory:product:%s", productID)
}

func ProductWarehouseKey(productID, warehouseID string) string {
	return fmt.Sprintf("inventory:product:%s:warehouse:%s", productID, warehouseID)
}

func WarehouseKey(warehouseID string) string {
	return fmt.Sprintf("inventory:warehouse:%s", warehouseID)
}

func OrderKey(orderID string) string {
	return fmt.Sprintf("inventory:order:%s", orderID)
}

func FlashSaleKey(productID string) string {
	return fmt.Sprintf("inventory:flashsale:%s", productID)
}
