package catalog

const insertProduct = `
INSERT INTO products (id, sku, name, category, price_cents, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, true, NOW(), NOW())
RETURNING id, sku, name, category, price_cents, is_active, created_at, updated_at`

const selectProductByID = `
SELECT id, sku, name, category, price_cents, is_active, created_at, updated_at
FROM products WHERE id = $1`

const selectProductBySKU = `
SELECT id, sku, name, category, price_cents, is_active, created_at, updated_at
FROM products WHERE sku = $1`

const selectActiveProducts = `
SELECT id, sku, name, category, price_cents, is_active, created_at, updated_at
FROM products WHERE is_active ORDER BY sku`

const insertWarehouse = `
INSERT INTO warehouses (id, code, name, location, priority, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, true, NOW(), NOW())
RETURNING id, code, name, location, priority, is_active, created_at, updated_at`

const selectWarehouseByID = `
SELECT id, code, name, location, priority, is_active, created_at, updated_at
FROM warehouses WHERE id = $1`

const selectActiveWarehouses = `
SELECT id, code, name, location, priority, is_active, created_at, updated_at
FROM warehouses WHERE is_active ORDER BY priority DESC, name ASC`
