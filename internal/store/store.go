// Package store implements the durable Stock Store (C1) and Transaction Log
// (C2): per-(product,warehouse) stock rows with optimistic versioning, and
// an append-only audit ledger committed in the same transaction as every
// row mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/pkg/database"
	apperrors "github.com/navneet-singh26/inventory-sync/pkg/errors"
)

// Mutation describes a single requested change to a stock row. Exactly one
// of QuantityDelta/ReservedDelta is expected to be non-zero for RESERVE,
// RELEASE, IN, OUT, ADJUST, SYNC; the kind determines which field the
// caller intends to move, but Apply always recomputes Available from both.
type Mutation struct {
	ProductID     string
	WarehouseID   string
	QuantityDelta int
	ReservedDelta int
	Kind          domain.TransactionKind
	ReferenceID   string
	Actor         string
	Notes         string
}

// Store is the Postgres-backed implementation of the Stock Store and
// Transaction Log.
type Store struct {
	pool database.TxPool
}

// New wraps a connection pool as a Store. Accepting database.TxPool instead
// of a concrete *pgxpool.Pool lets tests substitute a pgxmock pool.
func New(pool database.TxPool) *Store {
	return &Store{pool: pool}
}

// Get retrieves the stock row for (product, warehouse).
func (s *Store) Get(ctx context.Context, productID, warehouseID string) (*domain.StockRow, error) {
	return scanRow(s.pool.QueryRow(ctx, selectByProductWarehouse, productID, warehouseID))
}

// GetByProduct retrieves every stock row for a product across warehouses.
func (s *Store) GetByProduct(ctx context.Context, productID string) ([]domain.StockRow, error) {
	rows, err := s.pool.Query(ctx, selectByProduct, productID)
	if err != nil {
		return nil, fmt.Errorf("get stock by product: %w", err)
	}
	defer rows.Close()

	var out []domain.StockRow
	for rows.Next() {
		row, err := scanRowFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		out = append(out, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock rows: %w", err)
	}
	return out, nil
}

// scanPageSize bounds each page fetched by ScanAll, so a reconciliation run
// over the full table never holds a single huge result set in memory.
const scanPageSize = 500

// ScanAll streams every stock row (optionally scoped to one warehouse) to
// fn in batches ordered by id, so the reconciler can walk the whole table
// without loading it all at once. The scan ends when a page comes back
// empty. Iteration stops at the first error fn returns.
func (s *Store) ScanAll(ctx context.Context, warehouseID string, fn func(domain.StockRow) error) error {
	lastID := ""
	for {
		rows, err := s.fetchPage(ctx, warehouseID, lastID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			if err := fn(row); err != nil {
				return err
			}
		}
		lastID = rows[len(rows)-1].ID
	}
}

func (s *Store) fetchPage(ctx context.Context, warehouseID, afterID string) ([]domain.StockRow, error) {
	var rows pgx.Rows
	var err error
	if warehouseID != "" {
		rows, err = s.pool.Query(ctx, selectAllRowsByWarehouse, warehouseID, afterID, scanPageSize)
	} else {
		rows, err = s.pool.Query(ctx, selectAllRows, afterID, scanPageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("scan stock rows page: %w", err)
	}
	defer rows.Close()

	var out []domain.StockRow
	for rows.Next() {
		row, err := scanRowFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

// TransactionFilter narrows a ListTransactions call. A nil/zero-value field
// means "don't filter on this dimension".
type TransactionFilter struct {
	ProductID   string
	WarehouseID string
	Kind        domain.TransactionKind
	StartDate   *time.Time
	EndDate     *time.Time
	Page        int
	PerPage     int
}

// ListTransactions returns the audit log entries matching the filter, newest
// first, alongside the total count matching the filter (ignoring pagination).
func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter) ([]domain.StockTransaction, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if f.ProductID != "" {
		conditions = append(conditions, fmt.Sprintf("sr.product_id = $%d", argIndex))
		args = append(args, f.ProductID)
		argIndex++
	}
	if f.WarehouseID != "" {
		conditions = append(conditions, fmt.Sprintf("sr.warehouse_id = $%d", argIndex))
		args = append(args, f.WarehouseID)
		argIndex++
	}
	if f.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("t.kind = $%d", argIndex))
		args = append(args, string(f.Kind))
		argIndex++
	}
	if f.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("t.created_at >= $%d", argIndex))
		args = append(args, *f.StartDate)
		argIndex++
	}
	if f.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("t.created_at <= $%d", argIndex))
		args = append(args, *f.EndDate)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	perPage := f.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	offset := 0
	if f.Page > 1 {
		offset = (f.Page - 1) * perPage
	}

	query := fmt.Sprintf("%s\n%s\nORDER BY t.created_at DESC\nLIMIT $%d OFFSET $%d",
		transactionListColumns, whereClause, argIndex, argIndex+1)
	args = append(args, perPage, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var (
		out        []domain.StockTransaction
		totalCount int
	)
	for rows.Next() {
		var txn domain.StockTransaction
		var kind string
		if err := rows.Scan(&txn.ID, &txn.StockID, &kind, &txn.Delta, &txn.ReferenceID, &txn.Actor, &txn.Notes, &txn.CreatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		txn.Kind = domain.TransactionKind(kind)
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, totalCount, nil
}

// UpsertInit idempotently creates a zeroed stock row for (product,
// warehouse) if one does not already exist, returning the existing or
// newly created row.
func (s *Store) UpsertInit(ctx context.Context, productID, warehouseID string) (*domain.StockRow, error) {
	row, err := scanRow(s.pool.QueryRow(ctx, upsertInit, uuid.New().String(), productID, warehouseID))
	if err != nil {
		return nil, fmt.Errorf("upsert init stock row: %w", err)
	}
	return row, nil
}

// Apply atomically validates and commits a mutation against the row's
// expected version, appending the corresponding transaction log entry in
// the same database transaction. Returns apperrors.ErrVersionConflict if
// expectedVersion is stale, and the business-rule errors from §4.4
// (Insufficient, Overrelease, NegativeStock) when the mutation would
// violate a stock invariant.
func (s *Store) Apply(ctx context.Context, m Mutation, expectedVersion int64) (*domain.StockRow, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row, err := scanRow(tx.QueryRow(ctx, selectByProductWarehouseForUpdate, m.ProductID, m.WarehouseID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lock stock row: %w", err)
	}

	if row.Version != expectedVersion {
		return nil, apperrors.VersionConflict(m.ProductID, m.WarehouseID)
	}

	newQuantity := row.Quantity + m.QuantityDelta
	newReserved := row.Reserved + m.ReservedDelta

	if newQuantity < 0 {
		return nil, apperrors.NegativeStock(m.ProductID, m.WarehouseID, m.QuantityDelta, row.Quantity)
	}
	if newReserved < 0 {
		return nil, apperrors.Overrelease(m.ProductID, m.WarehouseID, -m.ReservedDelta, row.Reserved)
	}
	if newReserved > newQuantity {
		return nil, apperrors.InsufficientStock(m.ProductID, m.WarehouseID, m.ReservedDelta, row.Quantity-row.Reserved)
	}

	if m.ReferenceID != "" {
		if err := insertTransactionLog(ctx, tx, row.ID, m); err != nil {
			return nil, err
		}
	} else {
		if err := insertTransactionLogNoRef(ctx, tx, row.ID, m); err != nil {
			return nil, err
		}
	}

	updated, err := scanRow(tx.QueryRow(ctx, updateRow, newQuantity, newReserved, newQuantity-newReserved, time.Now().UTC(), row.ID, row.Version))
	if err != nil {
		return nil, fmt.Errorf("apply stock mutation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit stock mutation: %w", err)
	}

	return updated, nil
}

func insertTransactionLog(ctx context.Context, tx pgx.Tx, stockID string, m Mutation) error {
	delta := m.QuantityDelta
	if m.ReservedDelta != 0 {
		delta = m.ReservedDelta
	}
	_, err := tx.Exec(ctx, insertTransaction, uuid.New().String(), stockID, string(m.Kind), delta, m.ReferenceID, actorOrDefault(m.Actor), m.Notes)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.DuplicateReference(string(m.Kind), m.ReferenceID)
		}
		return fmt.Errorf("append transaction log: %w", err)
	}
	return nil
}

func insertTransactionLogNoRef(ctx context.Context, tx pgx.Tx, stockID string, m Mutation) error {
	delta := m.QuantityDelta
	if m.ReservedDelta != 0 {
		delta = m.ReservedDelta
	}
	_, err := tx.Exec(ctx, insertTransactionNoRef, uuid.New().String(), stockID, string(m.Kind), delta, actorOrDefault(m.Actor), m.Notes)
	if err != nil {
		return fmt.Errorf("append transaction log: %w", err)
	}
	return nil
}

func actorOrDefault(actor string) string {
	if actor == "" {
		return "system"
	}
	return actor
}

// isUniqueViolation checks for Postgres SQLSTATE 23505 through any error in
// the chain that exposes a SQLState() method, without importing pgconn's
// concrete error type.
func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(r rowScanner) (*domain.StockRow, error) {
	return scanRowFrom(r)
}

func scanRowFrom(r rowScanner) (*domain.StockRow, error) {
	var row domain.StockRow
	err := r.Scan(
		&row.ID,
		&row.ProductID,
		&row.WarehouseID,
		&row.Quantity,
		&row.Reserved,
		&row.Available,
		&row.Version,
		&row.LastSyncAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}
