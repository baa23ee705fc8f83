package store

const selectByProductWarehouse = `
SELECT id, product_id, warehouse_id, quantity, reserved, available, version, last_sync_at, created_at, updated_at
FROM stock_rows
WHERE product_id = $1 AND warehouse_id = $2`

const selectByProductWarehouseForUpdate = selectByProductWarehouse + `
FOR UPDATE`

const selectByProduct = `
SELECT id, product_id, warehouse_id, quantity, reserved, available, version, last_sync_at, created_at, updated_at
FROM stock_rows
WHERE product_id = $1
ORDER BY warehouse_id`

const upsertInit = `
INSERT INTO stock_rows (id, product_id, warehouse_id, quantity, reserved, available, version, created_at, updated_at)
VALUES ($1, $2, $3, 0, 0, 0, 0, NOW(), NOW())
ON CONFLICT (product_id, warehouse_id) DO UPDATE SET updated_at = stock_rows.updated_at
RETURNING id, product_id, warehouse_id, quantity, reserved, available, version, last_sync_at, created_at, updated_at`

const updateRow = `
UPDATE stock_rows
SET quantity = $1, reserved = $2, available = $3, version = version + 1, updated_at = $4
WHERE id = $5 AND version = $6
RETURNING id, product_id, warehouse_id, quantity, reserved, available, version, last_sync_at, created_at, updated_at`

const insertTransaction = `
INSERT INTO stock_transactions (id, stock_id, kind, delta, reference_id, actor, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

const insertTransactionNoRef = `
INSERT INTO stock_transactions (id, stock_id, kind, delta, reference_id, actor, notes, created_at)
VALUES ($1, $2, $3, $4, '', $5, $6, NOW())`

const selectTransactionsByStock = `
SELECT id, stock_id, kind, delta, reference_id, actor, notes, created_at
FROM stock_transactions
WHERE stock_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

const selectTransactionsByReference = `
SELECT id, stock_id, kind, delta, reference_id, actor, notes, created_at
FROM stock_transactions
WHERE reference_id = $1
ORDER BY created_at DESC`

const deleteTransactionsOlderThan = `
DELETE FROM stock_transactions
WHERE created_at < $1`

const selectAllRows = `
SELECT id, product_id, warehouse_id, quantity, reserved, available, version, last_sync_at, created_at, updated_at
FROM stock_rows
WHERE id > $1
ORDER BY id
LIMIT $2`

const selectAllRowsByWarehouse = `
SELECT id, product_id, warehouse_id, quantity, reserved, available, version, last_sync_at, created_at, updated_at
FROM stock_rows
WHERE warehouse_id = $1 AND id > $2
ORDER BY id
LIMIT $3`

const updateLastSync = `
UPDATE stock_rows
SET last_sync_at = $1
WHERE id = $2`

const transactionListColumns = `
SELECT t.id, t.stock_id, t.kind, t.delta, t.reference_id, t.actor, t.notes, t.created_at,
       count(*) OVER() AS total_count
FROM stock_transactions t
JOIN stock_rows sr ON sr.id = t.stock_id`
