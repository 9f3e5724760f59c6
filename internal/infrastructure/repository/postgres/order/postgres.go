// Package postgres implements ports.OrderRepository over a pgxpool.Pool.
// Queries are hand-written rather than sqlc-generated: that step needs
// the sqlc binary to run against this schema, which this module never
// invokes — see DESIGN.md.
package postgres

import (
	"context"
	"embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shortlink-org/go-sdk/db"
	"github.com/shortlink-org/go-sdk/db/drivers/postgres/migrate"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrTransactionRequired is returned when a method that must participate
// in the caller's UnitOfWork transaction is invoked outside of one.
var ErrTransactionRequired = errors.New("order: transaction required, use UnitOfWork.Begin()")

// Store implements ports.OrderRepository.
type Store struct {
	pool *pgxpool.Pool
}

// New runs migrations against store and returns a ready Store.
func New(ctx context.Context, store db.DB) (*Store, error) {
	pool, ok := store.GetConn().(*pgxpool.Pool)
	if !ok {
		return nil, db.ErrGetConnection
	}

	if err := migrate.Migration(ctx, store, migrations, "repository_order"); err != nil {
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so read methods
// that don't strictly need the caller's transaction can still use one if
// present (for read-your-writes within Create), falling back to the pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

var _ ports.OrderRepository = (*Store)(nil)
