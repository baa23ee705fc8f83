// Package catalog is the thin persistence layer for the Product and
// Warehouse identities that stock rows are keyed against. Catalog editing
// itself is out of scope; this package exists so the inventory core can
// list, look up, and register the identities it reasons about.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/pkg/database"
	apperrors "github.com/navneet-singh26/inventory-sync/pkg/errors"
)

// Store is the Postgres-backed product/warehouse catalog.
type Store struct {
	pool database.DBTX
}

// New wraps a connection pool as a catalog Store. Accepting database.DBTX
// instead of a concrete *pgxpool.Pool lets tests substitute a pgxmock pool.
func New(pool database.DBTX) *Store {
	return &Store{pool: pool}
}

// CreateProduct registers a new product and returns the persisted row.
func (s *Store) CreateProduct(ctx context.Context, sku, name, category string, priceCents int64) (*domain.Product, error) {
	row := s.pool.QueryRow(ctx, insertProduct, uuid.New().String(), sku, name, category, priceCents)
	return scanProduct(row)
}

// GetProduct retrieves a product by id.
func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(s.pool.QueryRow(ctx, selectProductByID, id))
}

// GetProductBySKU retrieves a product by SKU.
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return scanProduct(s.pool.QueryRow(ctx, selectProductBySKU, sku))
}

// ListActiveProducts returns every active product, ordered by SKU, used by
// MarketplacePushJob when no explicit product_ids scope is given.
func (s *Store) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, selectActiveProducts)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProductFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CreateWarehouse registers a new warehouse and returns the persisted row.
func (s *Store) CreateWarehouse(ctx context.Context, code, name, location string, priority int) (*domain.Warehouse, error) {
	row := s.pool.QueryRow(ctx, insertWarehouse, uuid.New().String(), code, name, location, priority)
	return scanWarehouse(row)
}

// GetWarehouse retrieves a warehouse by id.
func (s *Store) GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error) {
	return scanWarehouse(s.pool.QueryRow(ctx, selectWarehouseByID, id))
}

// ListActiveWarehouses returns every active warehouse ordered by descending
// priority, matching domain.ByPriorityDesc.
func (s *Store) ListActiveWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	rows, err := s.pool.Query(ctx, selectActiveWarehouses)
	if err != nil {
		return nil, fmt.Errorf("list active warehouses: %w", err)
	}
	defer rows.Close()

	var out []domain.Warehouse
	for rows.Next() {
		w, err := scanWarehouseFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warehouse row: %w", err)
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (*domain.Product, error) {
	return scanProductFrom(r)
}

func scanProductFrom(r rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := r.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanWarehouse(r rowScanner) (*domain.Warehouse, error) {
	return scanWarehouseFrom(r)
}

func scanWarehouseFrom(r rowScanner) (*domain.Warehouse, error) {
	var w domain.Warehouse
	err := r.Scan(&w.ID, &w.Code, &w.Name, &w.Location, &w.Priority, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}
