// Package uow implements ports.UnitOfWork over a pgxpool.Pool.
package uow

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/tx"
)

// PostgresUoW starts one pgx transaction per Begin call and stashes it in
// the returned context for every repository under it to share.
type PostgresUoW struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *PostgresUoW {
	return &PostgresUoW{pool: pool}
}

func (u *PostgresUoW) Begin(ctx context.Context) (context.Context, error) {
	pgxTx, err := u.pool.Begin(ctx)
	if err != nil {
		return ctx, domain.WrapUnavailable("uow.begin", err)
	}

	return tx.WithTx(ctx, pgxTx), nil
}

func (u *PostgresUoW) Commit(ctx context.Context) error {
	pgxTx := tx.FromContext(ctx)
	if pgxTx == nil {
		return nil
	}

	return pgxTx.Commit(ctx)
}

// Rollback is a no-op once Commit has already succeeded, matching pgx.Tx's
// own semantics for a transaction that already closed.
func (u *PostgresUoW) Rollback(ctx context.Context) error {
	pgxTx := tx.FromContext(ctx)
	if pgxTx == nil {
		return nil
	}

	return pgxTx.Rollback(ctx)
}
