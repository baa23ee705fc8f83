package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgxpool.Pool (and pgx.Tx) that repositories need.
// Accepting this interface instead of a concrete *pgxpool.Pool lets a
// repository run unmodified inside a caller-managed transaction and lets
// tests substitute a pgxmock.PgxPoolIface.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner is satisfied by a *pgxpool.Pool and lets callers start a
// transaction without depending on the concrete pool type.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxPool is the subset of pgxpool.Pool needed by repositories that both run
// plain queries and manage their own transactions. pgxmock.PgxPoolIface
// satisfies it, so tests can substitute a mock pool wherever a repository
// accepts TxPool.
type TxPool interface {
	DBTX
	Beginner
}

var (
	_ DBTX     = (*pgxpool.Pool)(nil)
	_ Beginner = (*pgxpool.Pool)(nil)
	_ TxPool   = (*pgxpool.Pool)(nil)
	_ DBTX     = (pgx.Tx)(nil)
)
