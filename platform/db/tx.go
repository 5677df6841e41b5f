package db

import (
	"context"
	"fmt"

	"labor_pipeline_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx runs fn inside a read-committed transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txKey struct{}

// InTx runs fn with a transaction carried on ctx. Repositories that resolve
// their querier through Conn join it automatically. A ctx that already
// carries a transaction is reused, so nested calls share one commit.
func InTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction carried on ctx, or pool when there is none.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// RetryOnConflict runs fn and, if it fails with a concurrency conflict,
// runs it exactly once more. fn must re-read state on every call.
func RetryOnConflict(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !apperr.Is(err, apperr.KindConcurrencyConflict) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fn(ctx)
}

// StaleVersion is returned by repositories when an optimistic update matched no row.
func StaleVersion(entity string) *apperr.Error {
	return apperr.ConcurrencyConflict(entity + " was modified concurrently; reload and retry")
}
