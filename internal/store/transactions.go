package store

import (
	"context"
	"fmt"
	"time"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
)

// ListTransactionsByStock returns the most recent transaction log entries
// for a stock row, most recent first.
func (s *Store) ListTransactionsByStock(ctx context.Context, stockID string, limit, offset int) ([]domain.StockTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, selectTransactionsByStock, stockID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// TransactionsByReference returns every ledger entry correlated to a given
// reference id (e.g. an order id), across RESERVE/RELEASE/etc.
func (s *Store) TransactionsByReference(ctx context.Context, referenceID string) ([]domain.StockTransaction, error) {
	rows, err := s.pool.Query(ctx, selectTransactionsByReference, referenceID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by reference: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]domain.StockTransaction, error) {
	var out []domain.StockTransaction
	for rows.Next() {
		var t domain.StockTransaction
		if err := rows.Scan(&t.ID, &t.StockID, &t.Kind, &t.Delta, &t.ReferenceID, &t.Actor, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return out, nil
}

// PurgeTransactionsOlderThan deletes transaction log entries older than
// the retention cutoff, returning the number of rows deleted. This is the
// only delete path against the otherwise append-only ledger.
func (s *Store) PurgeTransactionsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, deleteTransactionsOlderThan, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge transaction log: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkSynced records the timestamp of the most recent authoritative sync
// for a stock row. It does not touch quantity/reserved/available and is
// not part of the optimistic-concurrency path; callers that need to adjust
// quantity as part of a sync should use Apply with domain.TxnSync.
func (s *Store) MarkSynced(ctx context.Context, stockID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, updateLastSync, at, stockID)
	if err != nil {
		return fmt.Errorf("mark stock row synced: %w", err)
	}
	return nil
}
